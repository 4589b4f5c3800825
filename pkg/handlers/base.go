package handlers

import (
	"time"

	"whatsflow/pkg/config"
	"whatsflow/pkg/scheduler"
)

// Service identity reported by the status endpoints
const (
	ServiceName    = "whatsflow"
	ServiceVersion = "1.0.0"
)

// HandlerService provides HTTP handlers for the API
type HandlerService struct {
	config       *config.Config
	startedAt    time.Time
	auditEnabled func() bool
	levels       LevelController
	rotation     RotationReporter
}

// HandlerOption configures a HandlerService
type HandlerOption func(*HandlerService)

// WithAuditState reports whether the audit sink is attached.
func WithAuditState(fn func() bool) HandlerOption {
	return func(h *HandlerService) {
		h.auditEnabled = fn
	}
}

// RotationReporter reports the audit rotation job.
type RotationReporter interface {
	Status() scheduler.JobStatus
}

// WithRotationReporter adds the audit rotation job to the status endpoint.
func WithRotationReporter(r RotationReporter) HandlerOption {
	return func(h *HandlerService) {
		h.rotation = r
	}
}

// WithStartTime overrides the process start time used for uptime.
func WithStartTime(t time.Time) HandlerOption {
	return func(h *HandlerService) {
		h.startedAt = t
	}
}

// NewHandlerService creates a new handler service
func NewHandlerService(cfg *config.Config, opts ...HandlerOption) *HandlerService {
	h := &HandlerService{
		config:    cfg,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetConfig returns the handler service configuration
func (h *HandlerService) GetConfig() *config.Config {
	return h.config
}

// Uptime returns how long the service has been running.
func (h *HandlerService) Uptime() time.Duration {
	return time.Since(h.startedAt)
}

func getCurrentTimestamp() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
