package container

import (
	"context"

	"virtnic-agent/internal/application/usecases"
	"virtnic-agent/internal/domain/entities"
	"virtnic-agent/internal/domain/interfaces"
	"virtnic-agent/internal/domain/services"
	"virtnic-agent/internal/infrastructure/adapters"
	"virtnic-agent/internal/infrastructure/config"
	"virtnic-agent/internal/infrastructure/health"
	libvirtconn "virtnic-agent/internal/infrastructure/libvirt"
	"virtnic-agent/internal/infrastructure/metrics"
	"virtnic-agent/pkg/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Container는 의존성 주입을 관리하는 컨테이너입니다
type Container struct {
	config *config.Config
	logger *logrus.Logger

	// 인프라스트럭처 어댑터들
	clock        interfaces.Clock
	randomSource interfaces.RandomSource
	host         *libvirtconn.HostAdapter

	// 서비스들
	healthService  *health.HealthService
	macAllocator   *services.MACAllocator
	networkChecker *services.NetworkCheckService

	// 유스케이스
	auditInterfacesUseCase *usecases.AuditInterfacesUseCase
	setupInterfaceUseCase  *usecases.SetupInterfaceUseCase

	// 프로세스별 에이전트 인스턴스 식별자
	instanceID string
}

// NewContainer는 새로운 Container를 생성합니다
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	container := &Container{
		config:     cfg,
		logger:     logger,
		instanceID: uuid.NewString(),
	}

	if err := container.initializeInfrastructure(); err != nil {
		return nil, err
	}

	if err := container.initializeServices(); err != nil {
		return nil, err
	}

	container.initializeUseCases()

	return container, nil
}

// initializeInfrastructure는 인프라스트럭처 컴포넌트들을 초기화합니다
func (c *Container) initializeInfrastructure() error {
	c.clock = adapters.NewRealClock()
	c.randomSource = adapters.NewCryptoRandomSource()

	// libvirt 데몬이 아직 준비되지 않았을 수 있으므로 재시도하며 연결
	return utils.RetryWithBackoff(context.Background(), utils.DefaultRetryConfig, func() error {
		host, err := libvirtconn.NewHostAdapter(c.config.Libvirt, c.logger)
		if err != nil {
			c.logger.WithError(err).Warn("libvirt 연결 실패, 재시도 예정")
			return err
		}
		c.host = host
		return nil
	})
}

// initializeServices는 서비스들을 초기화합니다
func (c *Container) initializeServices() error {
	// 헬스 서비스
	c.healthService = health.NewHealthService(c.clock, c.logger, c.instanceID)

	// 드라이버별 OUI 프리픽스 테이블 변환
	prefixes := make(map[string]services.OUIPrefix, len(c.config.OUI.Prefixes))
	for driver, raw := range c.config.OUI.Prefixes {
		prefix, err := services.ParseOUIPrefix(raw)
		if err != nil {
			return err
		}
		prefixes[driver] = prefix
	}

	// MAC 할당기와 네트워크 검증 서비스
	c.macAllocator = services.NewMACAllocator(c.host, c.randomSource, prefixes, c.logger)
	c.networkChecker = services.NewNetworkCheckService(c.host)

	return nil
}

// initializeUseCases는 유스케이스들을 초기화합니다
func (c *Container) initializeUseCases() {
	c.auditInterfacesUseCase = usecases.NewAuditInterfacesUseCase(c.host, c.logger)
	c.setupInterfaceUseCase = usecases.NewSetupInterfaceUseCase(c.logger)
}

// GetConfig는 설정을 반환합니다
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetInstanceID는 에이전트 인스턴스 식별자를 반환합니다
func (c *Container) GetInstanceID() string {
	return c.instanceID
}

// GetHostConnection은 하이퍼바이저 연결을 반환합니다
func (c *Container) GetHostConnection() interfaces.HostConnection {
	return c.host
}

// GetHealthService는 헬스 서비스를 반환합니다
func (c *Container) GetHealthService() *health.HealthService {
	return c.healthService
}

// GetMACAllocator는 MAC 할당기를 반환합니다
func (c *Container) GetMACAllocator() *services.MACAllocator {
	return c.macAllocator
}

// instrumentedMACGenerator는 생성 결과를 메트릭으로 기록하는
// MACGenerator 데코레이터입니다
type instrumentedMACGenerator struct {
	allocator *services.MACAllocator
}

func (g *instrumentedMACGenerator) GenerateMAC(ctx context.Context) (string, error) {
	mac, err := g.allocator.GenerateMAC(ctx)
	if err != nil {
		return "", err
	}
	if mac == "" {
		metrics.RecordMACGeneration("exhausted")
	} else {
		metrics.RecordMACGeneration("allocated")
	}
	return mac, nil
}

// GetDeviceCollaborators는 신규 인터페이스 디바이스 생성에 주입할
// 협력자 묶음을 반환합니다
func (c *Container) GetDeviceCollaborators() entities.Collaborators {
	return entities.Collaborators{
		MACGenerator:    &instrumentedMACGenerator{allocator: c.macAllocator},
		ConflictChecker: c.macAllocator,
		BridgeResolver:  c.host,
		NetworkChecker:  c.networkChecker,
	}
}

// GetNetworkChecker는 네트워크 검증 서비스를 반환합니다
func (c *Container) GetNetworkChecker() *services.NetworkCheckService {
	return c.networkChecker
}

// GetAuditInterfacesUseCase는 인터페이스 감사 유스케이스를 반환합니다
func (c *Container) GetAuditInterfacesUseCase() *usecases.AuditInterfacesUseCase {
	return c.auditInterfacesUseCase
}

// GetSetupInterfaceUseCase는 사전 검증 유스케이스를 반환합니다
func (c *Container) GetSetupInterfaceUseCase() *usecases.SetupInterfaceUseCase {
	return c.setupInterfaceUseCase
}

// Close는 컨테이너를 정리합니다
func (c *Container) Close() error {
	if c.host != nil {
		return c.host.Close()
	}
	return nil
}
