package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults
const (
	DefaultAPIV1Prefix     = "/api/v1"
	DefaultAuditLogFile    = "./logs/audit.log"
	DefaultTimezone        = "America/Sao_Paulo"
	DefaultAuditRotateCron = "0 0 * * *"
	DefaultLogLevel        = "info"
)

// AppConfig represents application configuration settings
type AppConfig struct {
	Debug           bool   `json:"debug" yaml:"debug"`
	Environment     string `json:"environment" yaml:"environment"`
	LogLevel        string `json:"log_level" yaml:"log_level"`
	AuditLogFile    string `json:"audit_log_file" yaml:"audit_log_file"`
	AuditRequired   bool   `json:"audit_required" yaml:"audit_required"`
	Timezone        string `json:"timezone" yaml:"timezone"`
	AuditRotateCron string `json:"audit_rotate_cron" yaml:"audit_rotate_cron"`
}

// APIConfig represents the HTTP API surface settings
type APIConfig struct {
	V1Prefix           string   `json:"v1_prefix" yaml:"v1_prefix"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins"`
	// TrustedProxies may set X-Forwarded-For. Empty trusts no proxy.
	TrustedProxies     []string `json:"trusted_proxies" yaml:"trusted_proxies"`
}

// ServerConfig represents server configuration settings
type ServerConfig struct {
	Port            int    `json:"port" yaml:"port"`
	Address         string `json:"address" yaml:"address"`
	ReadTimeout     int    `json:"read_timeout" yaml:"read_timeout"`         // seconds
	WriteTimeout    int    `json:"write_timeout" yaml:"write_timeout"`       // seconds
	IdleTimeout     int    `json:"idle_timeout" yaml:"idle_timeout"`         // seconds
	ShutdownTimeout int    `json:"shutdown_timeout" yaml:"shutdown_timeout"` // seconds
}

// NewAppConfig creates an application configuration with default values populated from environment variables
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Debug:           getEnvBool("DEBUG", false),
		Environment:     getEnv("APP_ENV", "production"),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		AuditLogFile:    getEnv("AUDIT_LOG_FILE", DefaultAuditLogFile),
		AuditRequired:   getEnvBool("AUDIT_REQUIRED", false),
		Timezone:        getEnv("LOG_TIMEZONE", DefaultTimezone),
		AuditRotateCron: getEnv("AUDIT_ROTATE_CRON", DefaultAuditRotateCron),
	}
}

// NewAPIConfig creates an API configuration with default values populated from environment variables
func NewAPIConfig() *APIConfig {
	origins := []string{"*"}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins = parseStringList(v)
	}
	var proxies []string
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		proxies = parseStringList(v)
	}
	return &APIConfig{
		V1Prefix:           getEnv("API_V1_PREFIX", DefaultAPIV1Prefix),
		CORSAllowedOrigins: origins,
		TrustedProxies:     proxies,
	}
}

// NewServerConfig creates a server configuration with default values populated from environment variables
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnvInt("SERVER_PORT", 8080),
		Address:         getEnv("SERVER_ADDRESS", "0.0.0.0"),
		ReadTimeout:     getEnvInt("SERVER_READ_TIMEOUT", 30),
		WriteTimeout:    getEnvInt("SERVER_WRITE_TIMEOUT", 30),
		IdleTimeout:     getEnvInt("SERVER_IDLE_TIMEOUT", 120),
		ShutdownTimeout: getEnvInt("SERVER_SHUTDOWN_TIMEOUT", 10),
	}
}

// Timeout helpers

func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

func (s *ServerConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Second
}

func (s *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

func parseStringList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
