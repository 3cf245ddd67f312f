package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xeromart/storefront/internal/client"
	"github.com/xeromart/storefront/internal/config"
	"github.com/xeromart/storefront/internal/recovery"
	"github.com/xeromart/storefront/internal/tracker"
	"github.com/xeromart/storefront/pkg/types"
)

var placeReq types.PlaceOrderRequest

var placeCmd = &cobra.Command{
	Use:   "place",
	Short: "Place an order with a completed payment proof",
	Long: `Place an order for a paid checkout. Requires the payment proof triple the
gateway returned (order id, payment id, signature).

Returned refnos are resolved immediately; any that stay pending are persisted
to the tracker and picked up by 'storefront recover'.`,
	RunE: runPlace,
}

func init() {
	placeCmd.Flags().StringVar(&placeReq.SKU, "sku", "", "product SKU")
	placeCmd.Flags().Float64Var(&placeReq.Price, "price", 0, "unit price")
	placeCmd.Flags().IntVar(&placeReq.Quantity, "quantity", 1, "number of cards")
	placeCmd.Flags().StringVar(&placeReq.RazorpayOrderID, "order-id", "", "gateway order id")
	placeCmd.Flags().StringVar(&placeReq.RazorpayPayID, "payment-id", "", "gateway payment id")
	placeCmd.Flags().StringVar(&placeReq.RazorpaySig, "signature", "", "gateway payment signature")
	placeCmd.Flags().StringVar(&placeReq.FirstName, "first-name", "", "buyer first name")
	placeCmd.Flags().StringVar(&placeReq.LastName, "last-name", "", "buyer last name")
	placeCmd.Flags().StringVar(&placeReq.Email, "email", "", "buyer email")
	placeCmd.Flags().StringVar(&placeReq.Phone, "phone", "", "buyer phone")
	placeCmd.Flags().StringVar(&placeReq.ProductName, "product-name", "", "display name for the card")

	for _, f := range []string{"sku", "price", "order-id", "payment-id", "signature", "first-name", "last-name"} {
		placeCmd.MarkFlagRequired(f)
	}
}

func runPlace(cmd *cobra.Command, args []string) error {
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

	api := client.New(cfg.Client.BaseURL)
	ctx := context.Background()

	data, err := api.PlaceOrder(ctx, placeReq)
	if err != nil {
		return fmt.Errorf("order placement failed: %w", err)
	}

	refnos := make([]string, 0, len(data.Cards))
	for _, card := range data.Cards {
		refnos = append(refnos, card.Refno)
	}
	fmt.Printf("Placed %d order(s): %v\n", len(refnos), refnos)

	// Immediate resolution pass; records are fresh so no force-update.
	poller := recovery.NewPoller(api, pending, completed, printNotifier{}, nil, recovery.Options{
		SecretsRetryWait: 2 * time.Second,
	})
	poller.ResolveFresh(ctx, refnos)

	if n := pending.Len(); n > 0 {
		fmt.Printf("%d order(s) still pending; run 'storefront recover' to resolve them.\n", n)
	}
	return nil
}
