package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MAC 할당 관련 메트릭
	MACGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtnic_mac_generations_total",
			Help: "Total number of MAC address generation requests",
		},
		[]string{"result"}, // allocated, exhausted
	)

	MACConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtnic_mac_conflicts_total",
			Help: "Total number of MAC address conflicts detected",
		},
		[]string{"severity"}, // fatal, warning
	)

	// 게스트 감사 관련 메트릭
	GuestsScanned = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "virtnic_guests_scanned",
			Help: "Number of defined guests scanned in the last audit cycle",
		},
	)

	InterfacesScanned = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "virtnic_interfaces_scanned",
			Help: "Number of guest interfaces scanned in the last audit cycle",
		},
	)

	// 폴링 관련 메트릭
	PollingCycleCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "virtnic_polling_cycles_total",
			Help: "Total number of polling cycles executed",
		},
	)

	PollingCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "virtnic_polling_cycle_duration_seconds",
			Help:    "Time spent in each polling cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	PollingBackoffLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "virtnic_polling_backoff_level",
			Help: "Current backoff level (0 = no backoff)",
		},
	)

	// libvirt 연결 관련 메트릭
	LibvirtConnectionStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "virtnic_libvirt_connection_status",
			Help: "Libvirt connection status (1 = connected, 0 = disconnected)",
		},
	)

	// 에러 메트릭
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtnic_errors_total",
			Help: "Total number of errors encountered",
		},
		[]string{"error_type"}, // validation, conflict, network, system, not_found
	)

	// 시스템 정보
	AgentInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "virtnic_agent_info",
			Help: "Agent information",
		},
		[]string{"version", "driver_type", "node_name", "instance_id"},
	)
)

// RecordMACGeneration은 MAC 주소 생성 결과를 기록합니다
func RecordMACGeneration(result string) {
	MACGenerations.WithLabelValues(result).Inc()
}

// RecordMACConflict는 MAC 주소 충돌 감지를 기록합니다
func RecordMACConflict(severity string) {
	MACConflicts.WithLabelValues(severity).Inc()
}

// RecordAuditScan은 감사 사이클의 스캔 규모를 기록합니다
func RecordAuditScan(guests, interfaces float64) {
	GuestsScanned.Set(guests)
	InterfacesScanned.Set(interfaces)
}

// RecordPollingCycle은 폴링 사이클 메트릭을 기록합니다
func RecordPollingCycle(duration float64) {
	PollingCycleCount.Inc()
	PollingCycleDuration.Observe(duration)
}

// RecordError는 에러 발생을 기록합니다
func RecordError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}

// SetBackoffLevel은 현재 백오프 레벨을 설정합니다
func SetBackoffLevel(level float64) {
	PollingBackoffLevel.Set(level)
}

// SetLibvirtConnectionStatus는 libvirt 연결 상태를 설정합니다
func SetLibvirtConnectionStatus(connected bool) {
	if connected {
		LibvirtConnectionStatus.Set(1)
	} else {
		LibvirtConnectionStatus.Set(0)
	}
}

// SetAgentInfo는 에이전트 정보를 설정합니다
func SetAgentInfo(version, driverType, nodeName, instanceID string) {
	AgentInfo.WithLabelValues(version, driverType, nodeName, instanceID).Set(1)
}
