package config

import (
	"fmt"
	"net"
	"strings"
	"time"
	_ "time/tzdata" // audit timestamps use a named zone even on hosts without zoneinfo

	"github.com/robfig/cron/v3"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig validates every section
func (c *Config) ValidateConfig() error {
	if err := c.validateAppConfig(); err != nil {
		return fmt.Errorf("%w: %w", ErrAppConfig, err)
	}

	if err := c.validateAPIConfig(); err != nil {
		return fmt.Errorf("%w: %w", ErrAPIConfig, err)
	}

	if err := c.validateServerConfig(); err != nil {
		return fmt.Errorf("%w: %w", ErrServerConfig, err)
	}

	return nil
}

// validateAppConfig validates the app section
func (c *Config) validateAppConfig() error {
	if c.App == nil {
		return fmt.Errorf("%w: app", ErrMissingRequired)
	}

	app := c.App

	if !validLogLevels[strings.ToLower(app.LogLevel)] {
		return fmt.Errorf("%w: log_level must be one of debug, info, warn, error", ErrInvalidValue)
	}

	if app.AuditLogFile == "" {
		return fmt.Errorf("%w: audit_log_file", ErrMissingRequired)
	}

	if _, err := time.LoadLocation(app.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidValue, app.Timezone, err)
	}

	if _, err := cron.ParseStandard(app.AuditRotateCron); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidCron, app.AuditRotateCron, err)
	}

	return nil
}

// validateAPIConfig validates the API section
func (c *Config) validateAPIConfig() error {
	if c.API == nil {
		return fmt.Errorf("%w: api", ErrMissingRequired)
	}

	prefix := c.API.V1Prefix
	if prefix == "" {
		return fmt.Errorf("%w: v1_prefix", ErrMissingRequired)
	}
	if !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("%w: v1_prefix must start with '/'", ErrInvalidValue)
	}
	if len(prefix) > 1 && strings.HasSuffix(prefix, "/") {
		return fmt.Errorf("%w: v1_prefix must not end with '/'", ErrInvalidValue)
	}

	for _, proxy := range c.API.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("%w: trusted proxy %q is neither an IP nor a CIDR", ErrInvalidValue, proxy)
		}
	}

	return nil
}

// validateServerConfig validates the server section
func (c *Config) validateServerConfig() error {
	if c.Server == nil {
		return fmt.Errorf("%w: server", ErrMissingRequired)
	}

	srv := c.Server

	if srv.Port <= 0 || srv.Port > 65535 {
		return fmt.Errorf("%w: port must be within 1-65535", ErrInvalidValue)
	}

	if srv.ReadTimeout < 0 || srv.WriteTimeout < 0 || srv.IdleTimeout < 0 || srv.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidValue)
	}

	return nil
}
