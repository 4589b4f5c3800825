package config

// Config is the root configuration
type Config struct {
	App    *AppConfig    `json:"app" yaml:"app"`
	API    *APIConfig    `json:"api" yaml:"api"`
	Server *ServerConfig `json:"server" yaml:"server"`
}

// getDefaultConfig returns a config with every section at its defaults
func getDefaultConfig() *Config {
	return &Config{
		App:    NewAppConfig(),
		API:    NewAPIConfig(),
		Server: NewServerConfig(),
	}
}

// Debug reports whether the process runs in debug mode.
func (c *Config) Debug() bool {
	return c != nil && c.App != nil && c.App.Debug
}

// V1Prefix returns the mount prefix of the v1 API.
func (c *Config) V1Prefix() string {
	if c != nil && c.API != nil && c.API.V1Prefix != "" {
		return c.API.V1Prefix
	}
	return DefaultAPIV1Prefix
}
