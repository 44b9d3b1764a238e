package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"virtnic-agent/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// HealthService provides health check functionality
type HealthService struct {
	mu                sync.RWMutex
	clock             interfaces.Clock
	logger            *logrus.Logger
	startTime         time.Time
	instanceID        string
	libvirtHealthy    bool
	libvirtError      error
	driverType        string
	auditedGuests     int64
	detectedConflicts int64
}

// HealthStatus represents health check status
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the health check response struct
type HealthResponse struct {
	Status     HealthStatus           `json:"status"`
	Timestamp  string                 `json:"timestamp"`
	InstanceID string                 `json:"instance_id"`
	Components map[string]interface{} `json:"components"`
	Statistics map[string]interface{} `json:"statistics"`
}

// NewHealthService creates a new HealthService
func NewHealthService(clock interfaces.Clock, logger *logrus.Logger, instanceID string) *HealthService {
	return &HealthService{
		clock:          clock,
		logger:         logger,
		startTime:      clock.Now(),
		instanceID:     instanceID,
		libvirtHealthy: false,
	}
}

// UpdateLibvirtHealth updates the libvirt connection health status
func (h *HealthService) UpdateLibvirtHealth(healthy bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.libvirtHealthy = healthy
	h.libvirtError = err
}

// SetDriverType records the hypervisor driver type in use
func (h *HealthService) SetDriverType(driver string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.driverType = driver
}

// AddAuditedGuests adds to the audited guest count
func (h *HealthService) AddAuditedGuests(n int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.auditedGuests += n
}

// AddDetectedConflicts adds to the detected conflict count
func (h *HealthService) AddDetectedConflicts(n int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.detectedConflicts += n
}

// ServeHTTP handles the HTTP health check endpoint
func (h *HealthService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := h.buildHealthResponse()

	// Set HTTP status code based on health status
	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("failed to encode health check response")
	}
}

// buildHealthResponse constructs the health check response
func (h *HealthService) buildHealthResponse() HealthResponse {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.clock.Now()

	components := map[string]interface{}{
		"libvirt": map[string]interface{}{
			"healthy": h.libvirtHealthy,
			"error":   h.formatError(h.libvirtError),
		},
		"driver": map[string]interface{}{
			"type": h.driverType,
		},
	}

	statistics := map[string]interface{}{
		"audited_guests":     h.auditedGuests,
		"detected_conflicts": h.detectedConflicts,
		"uptime":             h.formatUptime(now.Sub(h.startTime)),
	}

	status := StatusHealthy
	if !h.libvirtHealthy {
		status = StatusUnhealthy
	}

	return HealthResponse{
		Status:     status,
		Timestamp:  now.Format(time.RFC3339),
		InstanceID: h.instanceID,
		Components: components,
		Statistics: statistics,
	}
}

// formatError formats an error to string
func (h *HealthService) formatError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// formatUptime formats uptime duration to human-readable format
func (h *HealthService) formatUptime(duration time.Duration) string {
	days := int(duration.Hours()) / 24
	hours := int(duration.Hours()) % 24
	minutes := int(duration.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd%dh%dm", days, hours, minutes)
	} else if hours > 0 {
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
