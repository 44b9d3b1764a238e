package usecases

import (
	"context"
	"strings"

	"virtnic-agent/internal/domain/errors"
	"virtnic-agent/internal/domain/interfaces"
	"virtnic-agent/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// AuditInterfacesUseCase는 정의된 모든 게스트의 인터페이스를 스캔하여
// MAC 주소 중복을 감지하는 유스케이스입니다. 호스트 상태를 변경하지
// 않습니다.
type AuditInterfacesUseCase struct {
	host   interfaces.HostConnection
	logger *logrus.Logger
}

// NewAuditInterfacesUseCase는 새로운 AuditInterfacesUseCase를 생성합니다
func NewAuditInterfacesUseCase(
	host interfaces.HostConnection,
	logger *logrus.Logger,
) *AuditInterfacesUseCase {
	return &AuditInterfacesUseCase{
		host:   host,
		logger: logger,
	}
}

// AuditInterfacesOutput은 유스케이스의 출력 결과입니다
type AuditInterfacesOutput struct {
	GuestCount       int
	InterfaceCount   int
	FatalConflicts   int
	WarningConflicts int
}

// HasConflicts는 중복이 하나라도 감지되었는지 확인합니다
func (o *AuditInterfacesOutput) HasConflicts() bool {
	return o.FatalConflicts > 0 || o.WarningConflicts > 0
}

// macHolder는 특정 MAC 주소를 보유한 게스트입니다
type macHolder struct {
	guestName string
	running   bool
}

// Execute는 감사 유스케이스를 실행합니다
func (uc *AuditInterfacesUseCase) Execute(ctx context.Context) (*AuditInterfacesOutput, error) {
	guests, err := uc.host.ListGuests(ctx)
	if err != nil {
		metrics.RecordError("network")
		return nil, errors.NewNetworkError("게스트 목록 조회 실패", err)
	}

	output := &AuditInterfacesOutput{GuestCount: len(guests)}

	// MAC 주소별 보유 게스트 수집 (대소문자 무시)
	holders := map[string][]macHolder{}
	for _, guest := range guests {
		for _, dev := range guest.Interfaces {
			output.InterfaceCount++

			mac, err := dev.MACAddress(ctx)
			if err != nil {
				return nil, err
			}
			if mac == "" {
				continue
			}

			key := strings.ToLower(mac)
			holders[key] = append(holders[key], macHolder{
				guestName: guest.Name,
				running:   guest.Running,
			})
		}
	}

	// 둘 이상의 인터페이스가 공유하는 주소를 보고
	for mac, hs := range holders {
		if len(hs) < 2 {
			continue
		}

		names := make([]string, 0, len(hs))
		anyRunning := false
		for _, h := range hs {
			names = append(names, h.guestName)
			if h.running {
				anyRunning = true
			}
		}

		fields := logrus.Fields{
			"mac_address": mac,
			"guests":      strings.Join(names, ", "),
		}
		if anyRunning {
			output.FatalConflicts++
			metrics.RecordMACConflict("fatal")
			uc.logger.WithFields(fields).Error("실행 중인 게스트가 포함된 MAC 주소 중복 감지")
		} else {
			output.WarningConflicts++
			metrics.RecordMACConflict("warning")
			uc.logger.WithFields(fields).Warn("비활성 게스트 간 MAC 주소 중복 감지")
		}
	}

	metrics.RecordAuditScan(float64(output.GuestCount), float64(output.InterfaceCount))

	return output, nil
}
