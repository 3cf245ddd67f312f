package config

// DefaultConfig returns the built-in configuration defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			Addr:                     ":8080",
			ReconcileIntervalSeconds: 60,
		},
		Database: DatabaseConfig{
			Path: "~/.xeromart/orders.db",
		},
		Gateway: GatewayConfig{
			BaseURL: "https://api.razorpay.com",
		},
		Issuer: IssuerConfig{},
		Client: ClientConfig{
			BaseURL:              "http://localhost:8080",
			StateDir:             "~/.xeromart/client",
			InitialDelaySeconds:  2,
			RetryIntervalSeconds: 5,
			ProbeIntervalSeconds: 5,
		},
	}
}
