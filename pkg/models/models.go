// Package models holds the response bodies of the system endpoints.
package models

import "time"

// SystemStatus represents the system status response
type SystemStatus struct {
	Service       string    `json:"service"`
	Version       string    `json:"version"`
	Status        string    `json:"status"`
	Environment   string    `json:"environment,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds int64     `json:"uptime_seconds"`

	AuditRotation *AuditRotation `json:"audit_rotation,omitempty"`
}

// AuditRotation reports the audit log rotation job
type AuditRotation struct {
	Schedule  string    `json:"schedule"`
	Status    string    `json:"status"`
	NextRun   time.Time `json:"next_run"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

// HealthCheck is the result of one health probe
type HealthCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]HealthCheck `json:"checks"`
}

// AppSettings is the sanitized view of the app settings. AuditLogFile is
// only filled in debug mode.
type AppSettings struct {
	Debug        bool   `json:"debug"`
	Environment  string `json:"environment"`
	LogLevel     string `json:"log_level"`
	Timezone     string `json:"timezone"`
	AuditLogFile string `json:"audit_log_file,omitempty"`
}

// APISettings is the sanitized view of the API settings
type APISettings struct {
	V1Prefix string `json:"v1_prefix"`
}

// ConfigResponse represents the sanitized configuration response
type ConfigResponse struct {
	App AppSettings `json:"app"`
	API APISettings `json:"api"`
}
