package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"whatsflow/pkg/models"
)

// Health check statuses
const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDegraded  = "degraded"
)

// HealthCheck reports configuration and audit sink state. It is served at
// the root, outside the versioned prefix.
func (h *HandlerService) HealthCheck(c *gin.Context) {
	health := models.HealthResponse{
		Status:    statusHealthy,
		Timestamp: getCurrentTimestamp(),
		Checks: map[string]models.HealthCheck{
			"config": h.checkConfigHealth(),
			"audit":  h.checkAuditHealth(),
		},
	}

	for _, check := range health.Checks {
		switch check.Status {
		case statusUnhealthy:
			health.Status = statusUnhealthy
		case statusDegraded:
			if health.Status == statusHealthy {
				health.Status = statusDegraded
			}
		}
	}

	code := http.StatusOK
	if health.Status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, health)
}

func (h *HandlerService) checkConfigHealth() models.HealthCheck {
	if h.config == nil || h.config.App == nil || h.config.API == nil {
		return models.HealthCheck{Status: statusUnhealthy, Error: "configuration not loaded"}
	}
	if err := h.config.ValidateConfig(); err != nil {
		return models.HealthCheck{Status: statusUnhealthy, Error: err.Error()}
	}
	return models.HealthCheck{Status: statusHealthy}
}

// A missing audit sink degrades the service without taking it out of
// rotation; console logging still works.
func (h *HandlerService) checkAuditHealth() models.HealthCheck {
	if h.auditEnabled == nil || !h.auditEnabled() {
		return models.HealthCheck{Status: statusDegraded, Error: "audit sink not attached"}
	}
	return models.HealthCheck{Status: statusHealthy}
}
