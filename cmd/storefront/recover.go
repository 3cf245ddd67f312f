package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xeromart/storefront/internal/client"
	"github.com/xeromart/storefront/internal/config"
	"github.com/xeromart/storefront/internal/recovery"
	"github.com/xeromart/storefront/internal/tracker"
	"github.com/xeromart/storefront/pkg/types"
)

var recoverOnce bool

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Resolve outstanding orders from the pending tracker",
	Long: `Drain the client-side pending tracker: force-update and re-check every
outstanding refno, printing cards that completed and cancellations.

By default keeps polling until the tracker is empty; --once runs a single pass.`,
	RunE: runRecover,
}

func init() {
	recoverCmd.Flags().BoolVar(&recoverOnce, "once", false, "run a single recovery pass and exit")
}

// printNotifier surfaces terminal outcomes on stdout.
type printNotifier struct{}

func (printNotifier) CardReady(card *types.DetailsData) {
	fmt.Printf("Card ready for %s: number %s pin %s (valid %s)\n",
		card.Refno, card.CardNumber, card.CardPin, card.Validity)
}

func (printNotifier) OrderCanceled(refno string) {
	fmt.Printf("Order %s was canceled upstream; no card will be issued.\n", refno)
}

func (printNotifier) OrderFailed(refno string) {
	fmt.Printf("Order %s failed upstream; contact support with this reference.\n", refno)
}

func runRecover(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	stateDir := config.ExpandPath(cfg.Client.StateDir)
	pending, err := tracker.NewTracker(tracker.NewFileRepository(stateDir, tracker.PendingFile))
	if err != nil {
		return fmt.Errorf("failed to load pending tracker: %w", err)
	}
	completed, err := tracker.NewCompletedSet(tracker.NewFileRepository(stateDir, tracker.CompletedFile))
	if err != nil {
		return fmt.Errorf("failed to load completed set: %w", err)
	}

	if pending.Len() == 0 {
		fmt.Println("No outstanding orders.")
		return nil
	}

	api := client.New(cfg.Client.BaseURL)

	if recoverOnce {
		poller := recovery.NewPoller(api, pending, completed, printNotifier{}, nil, recovery.Options{
			InitialDelay: time.Millisecond,
		})
		poller.RunPass(context.Background())
		fmt.Printf("%d order(s) still outstanding.\n", pending.Len())
		return nil
	}

	monitor := recovery.NewMonitor(api, time.Duration(cfg.Client.ProbeIntervalSeconds)*time.Second)
	monitor.Start()
	defer monitor.Stop()

	poller := recovery.NewPoller(api, pending, completed, printNotifier{}, monitor, recovery.Options{
		InitialDelay:  time.Duration(cfg.Client.InitialDelaySeconds) * time.Second,
		RetryInterval: time.Duration(cfg.Client.RetryIntervalSeconds) * time.Second,
	})
	poller.Start()
	defer poller.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-sigCh:
			fmt.Println("Interrupted; outstanding refnos remain tracked for next run.")
			return nil
		case <-ticker.C:
			if pending.Len() == 0 {
				fmt.Println("All outstanding orders resolved.")
				return nil
			}
		}
	}
}
