package config

// Config represents the full storefront configuration
type Config struct {
	Version string `yaml:"version" mapstructure:"version"`

	// API server settings
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Order database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Payment gateway credentials
	Gateway GatewayConfig `yaml:"gateway" mapstructure:"gateway"`

	// Upstream card issuer settings
	Issuer IssuerConfig `yaml:"issuer" mapstructure:"issuer"`

	// Client-side recovery settings
	Client ClientConfig `yaml:"client" mapstructure:"client"`
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
	// ReconcileIntervalSeconds controls the background sync of pending orders
	ReconcileIntervalSeconds int `yaml:"reconcile_interval_seconds" mapstructure:"reconcile_interval_seconds"`
}

// DatabaseConfig configures order persistence
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// GatewayConfig holds payment gateway credentials
type GatewayConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	KeyID     string `yaml:"key_id" mapstructure:"key_id"`
	KeySecret string `yaml:"key_secret" mapstructure:"key_secret"`
}

// IssuerConfig configures the upstream card issuer client
type IssuerConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// ClientConfig configures the client-side tracker and recovery poller
type ClientConfig struct {
	BaseURL              string `yaml:"base_url" mapstructure:"base_url"`
	StateDir             string `yaml:"state_dir" mapstructure:"state_dir"`
	InitialDelaySeconds  int    `yaml:"initial_delay_seconds" mapstructure:"initial_delay_seconds"`
	RetryIntervalSeconds int    `yaml:"retry_interval_seconds" mapstructure:"retry_interval_seconds"`
	ProbeIntervalSeconds int    `yaml:"probe_interval_seconds" mapstructure:"probe_interval_seconds"`
}
