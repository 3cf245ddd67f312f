package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Load loads and merges configuration from global and project sources
func Load() (*Config, error) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, nil // Return defaults if no home dir
	}

	cwd, err := os.Getwd()
	if err != nil {
		return cfg, nil // Return defaults if no cwd
	}

	// Load global config first
	globalPath := filepath.Join(home, ".xeromart", "config.yaml")
	if err := loadFile(globalPath, cfg); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load %s: %v", globalPath, err)
	}

	// Load project config (overrides global)
	projectPath := filepath.Join(cwd, ".xeromart", "config.yaml")
	if err := loadFile(projectPath, cfg); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load %s: %v", projectPath, err)
	}

	// Env overrides for credentials
	if v := os.Getenv("XM_GATEWAY_KEY_ID"); v != "" {
		cfg.Gateway.KeyID = v
	}
	if v := os.Getenv("XM_GATEWAY_KEY_SECRET"); v != "" {
		cfg.Gateway.KeySecret = v
	}
	if v := os.Getenv("XM_ISSUER_API_KEY"); v != "" {
		cfg.Issuer.APIKey = v
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

// GlobalConfigPath returns the path to the global config file
func GlobalConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".xeromart", "config.yaml")
}

// ExpandPath expands a leading ~ to the user home directory
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
