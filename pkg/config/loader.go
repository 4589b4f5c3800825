package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the config file at configPath. Priority: environment
// variables > file > defaults.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	// Missing file: defaults plus environment
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigNotFound, err)
	}

	config := &Config{}
	ext := filepath.Ext(configPath)

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: JSON parsing failed: %v", ErrInvalidFormat, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: YAML parsing failed: %v", ErrInvalidFormat, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config file format: %s", ErrInvalidFormat, ext)
	}

	applyDefaults(config)
	mergeEnvVars(config)
	return config, nil
}

// SaveConfig writes config to configPath
func SaveConfig(config *Config, configPath string) error {
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	// Ensure the directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	ext := filepath.Ext(configPath)
	var data []byte
	var err error

	switch ext {
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		return fmt.Errorf("%w: unsupported config file format: %s", ErrInvalidFormat, ext)
	}

	if err != nil {
		return fmt.Errorf("config serialization failed: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getDefaultConfigPath returns the first existing default config path
func getDefaultConfigPath() string {
	// Priority: working directory > user config dir > system config dir
	paths := []string{
		"./config.yaml",
		"./config.json",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".whatsflow", "config.yaml"),
			filepath.Join(homeDir, ".whatsflow", "config.json"),
		)
	}

	paths = append(paths,
		"/etc/whatsflow/config.yaml",
		"/etc/whatsflow/config.json",
	)

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "./config.yaml"
}

// applyDefaults fills sections and fields the file left out.
func applyDefaults(config *Config) {
	if config.App == nil {
		config.App = NewAppConfig()
	}
	if config.API == nil {
		config.API = NewAPIConfig()
	}
	if config.Server == nil {
		config.Server = NewServerConfig()
	}

	app := config.App
	if app.LogLevel == "" {
		app.LogLevel = DefaultLogLevel
	}
	if app.AuditLogFile == "" {
		app.AuditLogFile = DefaultAuditLogFile
	}
	if app.Timezone == "" {
		app.Timezone = DefaultTimezone
	}
	if app.AuditRotateCron == "" {
		app.AuditRotateCron = DefaultAuditRotateCron
	}

	if config.API.V1Prefix == "" {
		config.API.V1Prefix = DefaultAPIV1Prefix
	}
	if len(config.API.CORSAllowedOrigins) == 0 {
		config.API.CORSAllowedOrigins = []string{"*"}
	}

	srv, def := config.Server, NewServerConfig()
	if srv.Port == 0 {
		srv.Port = def.Port
	}
	if srv.Address == "" {
		srv.Address = def.Address
	}
	if srv.ReadTimeout == 0 {
		srv.ReadTimeout = def.ReadTimeout
	}
	if srv.WriteTimeout == 0 {
		srv.WriteTimeout = def.WriteTimeout
	}
	if srv.IdleTimeout == 0 {
		srv.IdleTimeout = def.IdleTimeout
	}
	if srv.ShutdownTimeout == 0 {
		srv.ShutdownTimeout = def.ShutdownTimeout
	}
}

// mergeEnvVars overrides file values with environment variables
func mergeEnvVars(config *Config) {
	mergeAppEnvVars(config)
	mergeAPIEnvVars(config)
	mergeServerEnvVars(config)
}

// mergeAppEnvVars merges app environment variables
func mergeAppEnvVars(config *Config) {
	app := config.App

	envMappings := map[string]*string{
		"APP_ENV":           &app.Environment,
		"LOG_LEVEL":         &app.LogLevel,
		"AUDIT_LOG_FILE":    &app.AuditLogFile,
		"LOG_TIMEZONE":      &app.Timezone,
		"AUDIT_ROTATE_CRON": &app.AuditRotateCron,
	}
	for envKey, ptr := range envMappings {
		if value := os.Getenv(envKey); value != "" {
			*ptr = value
		}
	}

	if debug := os.Getenv("DEBUG"); debug != "" {
		app.Debug = debug == "true" || debug == "1"
	}
	if required := os.Getenv("AUDIT_REQUIRED"); required != "" {
		app.AuditRequired = required == "true" || required == "1"
	}
}

// mergeAPIEnvVars merges API environment variables
func mergeAPIEnvVars(config *Config) {
	if prefix := os.Getenv("API_V1_PREFIX"); prefix != "" {
		config.API.V1Prefix = prefix
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		config.API.CORSAllowedOrigins = parseStringList(origins)
	}
	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		config.API.TrustedProxies = parseStringList(proxies)
	}
}

// mergeServerEnvVars merges server environment variables
func mergeServerEnvVars(config *Config) {
	if port := getEnvInt("SERVER_PORT", 0); port != 0 {
		config.Server.Port = port
	}
	if address := os.Getenv("SERVER_ADDRESS"); address != "" {
		config.Server.Address = address
	}
	timeouts := map[string]*int{
		"SERVER_READ_TIMEOUT":     &config.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":    &config.Server.WriteTimeout,
		"SERVER_IDLE_TIMEOUT":     &config.Server.IdleTimeout,
		"SERVER_SHUTDOWN_TIMEOUT": &config.Server.ShutdownTimeout,
	}
	for envKey, ptr := range timeouts {
		if timeout := getEnvInt(envKey, 0); timeout != 0 {
			*ptr = timeout
		}
	}
}
