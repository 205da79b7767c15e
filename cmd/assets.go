package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/apolopay/payment-button-go/app/api"
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "List the payable assets and their networks",
	Run:   runAssets,
}

func init() {
	rootCmd.AddCommand(assetsCmd)
}

func runAssets(_ *cobra.Command, _ []string) {
	cfg := mustLoadConfig()

	client := api.NewClient(api.Config{
		BaseURL:       cfg.API.BaseURL,
		P2PBaseURL:    cfg.API.P2PBaseURL,
		QRBaseURL:     cfg.API.QRBaseURL,
		PublicKey:     cfg.Payment.PublicKey,
		HTTPTimeout:   cfg.API.HTTPTimeout,
		DefaultExpiry: cfg.Payment.DefaultExpiry,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	assets, err := client.FetchAssets(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to fetch asset catalog")
	}

	for _, asset := range assets {
		fmt.Printf("%s (%s)\n", asset.Name, asset.Symbol)
		for _, network := range asset.Networks {
			fmt.Printf("  %s\t%s\n", network.ID, network.Name)
		}
	}
}
