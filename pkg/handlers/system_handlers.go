package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"whatsflow/pkg/apperror"
	"whatsflow/pkg/middleware"
	"whatsflow/pkg/models"
)

// SystemRouter exposes service status and sanitized settings under /system.
type SystemRouter struct {
	h *HandlerService
}

// NewSystemRouter creates the /system sub-router.
func NewSystemRouter(h *HandlerService) *SystemRouter {
	return &SystemRouter{h: h}
}

// Prefix implements router.Mountable.
func (r *SystemRouter) Prefix() string {
	return "/system"
}

// Register implements router.Mountable.
func (r *SystemRouter) Register(g *gin.RouterGroup) {
	g.GET("/status", r.h.GetStatus)
	g.GET("/config", middleware.Handle(r.h.GetAppConfig))
	g.PUT("/config", middleware.Handle(r.h.UpdateConfig))
	g.GET("/log-level", middleware.Handle(r.h.GetLogLevel))
	g.PUT("/log-level", middleware.Handle(r.h.SetLogLevel))
}

// GetStatus returns the overall system status
func (h *HandlerService) GetStatus(c *gin.Context) {
	status := models.SystemStatus{
		Service:       ServiceName,
		Version:       ServiceVersion,
		Status:        "running",
		Timestamp:     getCurrentTimestamp(),
		UptimeSeconds: int64(h.Uptime().Seconds()),
	}
	if h.config != nil && h.config.App != nil {
		status.Environment = h.config.App.Environment
	}
	if h.rotation != nil {
		js := h.rotation.Status()
		status.AuditRotation = &models.AuditRotation{
			Schedule:  js.Spec,
			Status:    js.Status,
			NextRun:   js.NextRun,
			LastRun:   js.LastRun,
			LastError: js.LastError,
		}
	}

	c.JSON(http.StatusOK, status)
}

// GetAppConfig returns the current configuration with file paths masked
// outside debug mode.
func (h *HandlerService) GetAppConfig(c *gin.Context) error {
	if h.config == nil || h.config.App == nil {
		return apperror.Wrap(nil, "configuration not loaded")
	}

	c.JSON(http.StatusOK, h.sanitizeConfig())
	return nil
}

// UpdateConfig is rejected: settings are read-only after startup.
func (h *HandlerService) UpdateConfig(c *gin.Context) error {
	return apperror.New(http.StatusNotImplemented, "Configuration updates are not supported")
}

// sanitizeConfig removes sensitive information from config before returning
func (h *HandlerService) sanitizeConfig() models.ConfigResponse {
	cfg := h.config
	resp := models.ConfigResponse{
		App: models.AppSettings{
			Debug:       cfg.App.Debug,
			Environment: cfg.App.Environment,
			LogLevel:    cfg.App.LogLevel,
			Timezone:    cfg.App.Timezone,
		},
		API: models.APISettings{V1Prefix: cfg.V1Prefix()},
	}
	if cfg.Debug() {
		resp.App.AuditLogFile = cfg.App.AuditLogFile
	}
	return resp
}
