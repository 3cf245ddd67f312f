package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xeromart/storefront/internal/client"
	"github.com/xeromart/storefront/internal/config"
	"github.com/xeromart/storefront/pkg/types"
)

var statusDetails bool

var statusCmd = &cobra.Command{
	Use:   "status <refno>",
	Short: "Look up the status of an order",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusDetails, "details", false, "fetch full details including card data")
}

func runStatus(cmd *cobra.Command, args []string) error {
	refno := args[0]
	if !types.AuthoritativeRefno(refno) {
		return fmt.Errorf("%q is not a server-issued reference number", refno)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	api := client.New(cfg.Client.BaseURL)
	ctx := context.Background()

	if statusDetails {
		d, err := api.Details(ctx, refno)
		if err != nil {
			return err
		}
		fmt.Printf("Order %s: %s (%s), sku %s, amount %.2f\n",
			d.Refno, d.Status, d.LocalStatus, d.SKU, d.Amount)
		if d.CardNumber != "" {
			fmt.Printf("Card: %s pin %s valid %s issued %s\n",
				d.CardNumber, d.CardPin, d.Validity, d.IssuanceDate)
		}
		return nil
	}

	st, err := api.Status(ctx, refno)
	if err != nil {
		return err
	}
	fmt.Printf("Order %s: %s (%s)\n", refno, st.Status, st.LocalStatus)
	return nil
}
