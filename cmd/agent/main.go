package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"virtnic-agent/internal/application/polling"
	"virtnic-agent/internal/application/usecases"
	"virtnic-agent/internal/infrastructure/adapters"
	"virtnic-agent/internal/infrastructure/config"
	"virtnic-agent/internal/infrastructure/container"
	"virtnic-agent/internal/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const version = "0.3.0"

func main() {
	// 로거 초기화
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// LOG_LEVEL 환경 변수 설정
	logLevelStr := os.Getenv("LOG_LEVEL")
	if logLevelStr != "" {
		logLevel, err := logrus.ParseLevel(logLevelStr)
		if err != nil {
			logger.WithError(err).Warnf("Unknown LOG_LEVEL value: %s. Using default Info level.", logLevelStr)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(logLevel)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// 설정 로드
	configLoader := config.NewEnvironmentConfigLoader(adapters.NewRealFileSystem())
	cfg, err := configLoader.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	// 의존성 주입 컨테이너 생성
	appContainer, err := container.NewContainer(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create dependency injection container")
	}
	defer func() {
		if err := appContainer.Close(); err != nil {
			logger.WithError(err).Error("Failed to cleanup container")
		}
	}()

	// 애플리케이션 시작
	app := NewApplication(appContainer, logger)
	if err := app.Run(); err != nil {
		logger.WithError(err).Fatal("Failed to run application")
	}
}

// Application은 메인 애플리케이션 구조체입니다
type Application struct {
	container    *container.Container
	logger       *logrus.Logger
	auditUseCase *usecases.AuditInterfacesUseCase
	healthServer *http.Server
}

// NewApplication은 새로운 Application을 생성합니다
func NewApplication(container *container.Container, logger *logrus.Logger) *Application {
	return &Application{
		container:    container,
		logger:       logger,
		auditUseCase: container.GetAuditInterfacesUseCase(),
	}
}

// Run은 애플리케이션을 실행합니다
func (a *Application) Run() error {
	cfg := a.container.GetConfig()

	// 하이퍼바이저 드라이버 종류 확인
	driver, err := a.container.GetHostConnection().DriverType(context.Background())
	if err != nil {
		return err
	}
	a.logger.WithField("driver", driver).Info("Connected to hypervisor")
	a.container.GetHealthService().SetDriverType(driver)

	// 에이전트 정보 메트릭 설정
	hostname, _ := os.Hostname()
	if idx := strings.Index(hostname, "."); idx != -1 {
		hostname = hostname[:idx]
	}
	metrics.SetAgentInfo(version, driver, hostname, a.container.GetInstanceID())

	// 헬스체크 서버 시작
	if err := a.startHealthServer(cfg.Health.Port); err != nil {
		return err
	}

	// 컨텍스트 및 시그널 핸들링 설정
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 폴링 전략 설정
	strategy := a.buildStrategy(cfg)
	pollingController := polling.NewPollingController(strategy, a.logger)

	a.logger.WithField("instance_id", a.container.GetInstanceID()).Info("virtnic agent started")

	// 시그널 처리를 위한 goroutine
	go func() {
		<-sigChan
		a.logger.Info("Received shutdown signal")
		cancel()
	}()

	// 폴링 시작
	return pollingController.Start(ctx, func(ctx context.Context) error {
		err := a.auditInterfaces(ctx)
		if err != nil {
			a.logger.WithError(err).Error("Failed to audit guest interfaces")
			a.container.GetHealthService().UpdateLibvirtHealth(false, err)
			metrics.SetLibvirtConnectionStatus(false)
			return err
		}
		a.container.GetHealthService().UpdateLibvirtHealth(true, nil)
		metrics.SetLibvirtConnectionStatus(true)
		return nil
	})
}

// buildStrategy는 설정에 따라 폴링 전략을 생성합니다
func (a *Application) buildStrategy(cfg *config.Config) polling.Strategy {
	switch cfg.Agent.Strategy {
	case config.StrategyBackoff:
		a.logger.WithFields(logrus.Fields{
			"base_interval": cfg.Agent.PollInterval,
			"max_interval":  cfg.Agent.Backoff.MaxInterval,
			"multiplier":    cfg.Agent.Backoff.Multiplier,
		}).Info("Exponential backoff polling enabled")
		return polling.NewExponentialBackoffStrategy(
			cfg.Agent.PollInterval,
			cfg.Agent.Backoff.MaxInterval,
			cfg.Agent.Backoff.Multiplier,
			a.logger,
		)
	case config.StrategyAdaptive:
		a.logger.WithField("base_interval", cfg.Agent.PollInterval).Info("Adaptive polling enabled")
		return polling.NewAdaptiveStrategy(
			cfg.Agent.PollInterval,
			cfg.Agent.Backoff.MaxInterval,
			cfg.Agent.Backoff.MaxInterval*2,
			a.logger,
		)
	default:
		a.logger.WithField("interval", cfg.Agent.PollInterval).Info("Fixed interval polling enabled")
		return polling.NewFixedIntervalStrategy(cfg.Agent.PollInterval)
	}
}

// startHealthServer는 헬스체크 서버를 시작합니다
func (a *Application) startHealthServer(port string) error {
	healthService := a.container.GetHealthService()

	// HTTP 핸들러 설정
	mux := http.NewServeMux()
	mux.Handle("/", healthService)
	mux.Handle("/metrics", promhttp.Handler())

	a.healthServer = &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		a.logger.WithField("port", port).Info("Health check server started (with /metrics)")
		if err := a.healthServer.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.WithError(err).Error("Health check server failed")
		}
	}()

	return nil
}

// auditInterfaces는 감사 사이클 한 번을 실행합니다
func (a *Application) auditInterfaces(ctx context.Context) error {
	startTime := time.Now()

	output, err := a.auditUseCase.Execute(ctx)
	if err != nil {
		return err
	}

	// 헬스체크 통계 업데이트
	healthService := a.container.GetHealthService()
	healthService.AddAuditedGuests(int64(output.GuestCount))
	healthService.AddDetectedConflicts(int64(output.FatalConflicts + output.WarningConflicts))

	// 충돌이 감지되었을 때만 요약 로그 출력
	if output.HasConflicts() {
		a.logger.WithFields(logrus.Fields{
			"guests":            output.GuestCount,
			"interfaces":        output.InterfaceCount,
			"fatal_conflicts":   output.FatalConflicts,
			"warning_conflicts": output.WarningConflicts,
		}).Info("Interface audit completed with conflicts")
	}

	// 폴링 사이클 메트릭 기록
	metrics.RecordPollingCycle(time.Since(startTime).Seconds())

	return nil
}

// shutdown은 애플리케이션을 정리하고 종료합니다
func (a *Application) shutdown() error {
	// 헬스체크 서버 정리
	if a.healthServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := a.healthServer.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).Error("Failed to shutdown health check server")
		}
	}

	return nil
}
