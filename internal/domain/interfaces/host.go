package interfaces

import (
	"context"

	"virtnic-agent/internal/domain/entities"
)

// HostConnection은 가상화 호스트 데몬에 대한 질의 인터페이스입니다.
// 모든 메서드는 원격 데몬에 대한 블로킹 호출이며, 타임아웃 정책은
// 구현체의 책임입니다.
type HostConnection interface {
	// DriverType은 하이퍼바이저 드라이버 종류를 반환합니다 (예: QEMU, Xen)
	DriverType(ctx context.Context) (string, error)

	// ListGuests는 현재 정의된 모든 게스트와 그 인터페이스들을 조회합니다
	ListGuests(ctx context.Context) ([]entities.Guest, error)

	// LookupNetwork는 이름으로 가상 네트워크를 조회합니다.
	// 존재하지 않으면 NotFound 에러를 반환합니다.
	LookupNetwork(ctx context.Context, name string) (entities.VirtualNetwork, error)

	// ListActiveNetworks는 활성 가상 네트워크의 이름 목록을 반환합니다
	ListActiveNetworks(ctx context.Context) ([]string, error)

	// DefaultBridge는 호스트의 기본 브리지 디바이스 이름을 반환합니다.
	// 기본 브리지가 없으면 빈 문자열을 반환합니다.
	DefaultBridge(ctx context.Context) (string, error)
}

// PredictableConnection은 재현 가능한 테스트 픽스처를 위한 선택적
// 인터페이스입니다. MAC 할당기는 타입 단언으로 이를 탐지하여 고정된
// 테스트 주소를 반환합니다.
type PredictableConnection interface {
	PredictableMACs() bool
}
