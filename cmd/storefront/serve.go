package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/xeromart/storefront/internal/config"
	"github.com/xeromart/storefront/internal/order"
	"github.com/xeromart/storefront/internal/payment"
	"github.com/xeromart/storefront/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the storefront API server",
	Long: `Start the storefront HTTP API.

Examples:
  storefront serve
  storefront serve --addr :9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "server address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	service, err := order.NewService(order.Config{
		DBPath:        cfg.Database.Path,
		IssuerBaseURL: cfg.Issuer.BaseURL,
		IssuerAPIKey:  cfg.Issuer.APIKey,
		GatewaySecret: cfg.Gateway.KeySecret,
	})
	if err != nil {
		return fmt.Errorf("failed to create order service: %w", err)
	}
	defer service.Close()

	reconciler := order.NewReconciler(service,
		time.Duration(cfg.Server.ReconcileIntervalSeconds)*time.Second)
	reconciler.Start()
	defer reconciler.Stop()

	gateway := payment.NewHTTPGateway(cfg.Gateway.BaseURL, cfg.Gateway.KeyID, cfg.Gateway.KeySecret)
	verifier := payment.NewVerifier(cfg.Gateway.KeySecret)

	log.Printf("Starting storefront API on %s", addr)
	server := web.NewServer(service, gateway, verifier)
	return server.Run(addr)
}
