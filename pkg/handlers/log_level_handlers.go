package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"whatsflow/pkg/apperror"
)

// LevelController reads and changes the console log level.
type LevelController interface {
	GetLevel() string
	SetLevel(level string) error
}

// WithLevelController enables the log level endpoints.
func WithLevelController(lc LevelController) HandlerOption {
	return func(h *HandlerService) {
		h.levels = lc
	}
}

// LogLevelRequest is the body of PUT /system/log-level
type LogLevelRequest struct {
	Level string `json:"level" binding:"required,oneof=debug info warn error"`
}

// GetLogLevel returns the current console log level
func (h *HandlerService) GetLogLevel(c *gin.Context) error {
	if h.levels == nil {
		return apperror.NewNotFound("Log level control not available")
	}
	c.JSON(http.StatusOK, gin.H{"level": h.levels.GetLevel()})
	return nil
}

// SetLogLevel changes the console log level. Only allowed in debug mode.
func (h *HandlerService) SetLogLevel(c *gin.Context) error {
	if h.levels == nil {
		return apperror.NewNotFound("Log level control not available")
	}
	if !h.config.Debug() {
		return apperror.NewAuthorization("Log level changes are only allowed in debug mode")
	}

	var req LogLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return err
		}
		return apperror.NewValidation("Invalid request body").WithCause(err)
	}

	if err := h.levels.SetLevel(req.Level); err != nil {
		return apperror.NewValidation("Invalid log level").WithCause(err)
	}

	c.JSON(http.StatusOK, gin.H{"level": h.levels.GetLevel()})
	return nil
}
