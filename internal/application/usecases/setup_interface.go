package usecases

import (
	"context"

	"virtnic-agent/internal/domain/entities"
	"virtnic-agent/internal/domain/errors"
	"virtnic-agent/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// SetupInterfaceUseCase는 인터페이스 디바이스의 호스트 적용 직전 사전
// 검증을 처리하는 유스케이스입니다
type SetupInterfaceUseCase struct {
	logger *logrus.Logger
}

// NewSetupInterfaceUseCase는 새로운 SetupInterfaceUseCase를 생성합니다
func NewSetupInterfaceUseCase(logger *logrus.Logger) *SetupInterfaceUseCase {
	return &SetupInterfaceUseCase{logger: logger}
}

// SetupInterfaceInput은 유스케이스의 입력 파라미터입니다
type SetupInterfaceInput struct {
	Device *entities.NetworkInterfaceDevice
}

// Execute는 사전 검증을 실행합니다. 실행 중인 게스트와의 MAC 충돌은
// 에러로 중단되고, 비활성 게스트와의 충돌은 경고 로그 후 진행됩니다.
func (uc *SetupInterfaceUseCase) Execute(ctx context.Context, input SetupInterfaceInput) error {
	warning, err := input.Device.Setup(ctx)
	if err != nil {
		if errors.IsConflictError(err) {
			metrics.RecordMACConflict("fatal")
			metrics.RecordError("conflict")
			uc.logger.WithError(err).Error("인터페이스 사전 검증 실패: MAC 주소 충돌")
		}
		return err
	}

	if warning != "" {
		metrics.RecordMACConflict("warning")
		uc.logger.WithField("detail", warning).Warn("비활성 게스트와의 MAC 주소 충돌, 계속 진행")
	}

	return nil
}
