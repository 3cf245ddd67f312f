package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xeromart/storefront/internal/config"
)

var configInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the merged configuration (defaults, global, project, env).

With --init, write a starter config file to ` + "`~/.xeromart/config.yaml`" + ` if none exists.`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "write a starter global config file")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configInit {
		return writeStarterConfig()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Never print credentials.
	cfg.Gateway.KeySecret = redact(cfg.Gateway.KeySecret)
	cfg.Issuer.APIKey = redact(cfg.Issuer.APIKey)

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "<set>"
}

func writeStarterConfig() error {
	path := config.GlobalConfigPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	out, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return err
	}

	fmt.Printf("Wrote starter config to %s\n", path)
	return nil
}
