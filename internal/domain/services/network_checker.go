package services

import (
	"context"
	"fmt"

	"virtnic-agent/internal/domain/errors"
	"virtnic-agent/internal/domain/interfaces"
)

// NetworkCheckService는 가상 네트워크 이름 참조를 검증하는 도메인
// 서비스입니다. entities.NetworkChecker를 구현합니다.
type NetworkCheckService struct {
	host interfaces.HostConnection
}

// NewNetworkCheckService는 새로운 NetworkCheckService를 생성합니다
func NewNetworkCheckService(host interfaces.HostConnection) *NetworkCheckService {
	return &NetworkCheckService{host: host}
}

// CheckNetwork는 이름으로 네트워크를 조회하고 활성 상태인지 확인합니다.
// 존재하지 않거나 시작되지 않은 네트워크는 설정 에러입니다.
func (s *NetworkCheckService) CheckNetwork(ctx context.Context, name string) error {
	network, err := s.host.LookupNetwork(ctx, name)
	if err != nil {
		return errors.NewValidationError(
			fmt.Sprintf("virtual network '%s' does not exist", name), err)
	}

	if network.Active {
		return nil
	}

	// 일부 드라이버는 조회 응답에 활성 여부를 싣지 않으므로 활성 네트워크
	// 목록에서 한 번 더 확인합니다
	active, err := s.host.ListActiveNetworks(ctx)
	if err != nil {
		return err
	}
	for _, n := range active {
		if n == name {
			return nil
		}
	}

	return errors.NewValidationError(
		fmt.Sprintf("virtual network '%s' has not been started", name), nil)
}
