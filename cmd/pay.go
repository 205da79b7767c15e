package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/apolopay/payment-button-go/app/session"
	"github.com/apolopay/payment-button-go/app/types"
)

var (
	payProcessID string
	payAssetID   string
	payNetworkID string
)

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Run a payment session and wait for confirmation",
	Long:  "Open a payment session for a process, resolve the deposit target for the chosen asset and network, and wait for the payment to confirm, fail, or expire.",
	Run:   runPay,
}

func init() {
	rootCmd.AddCommand(payCmd)

	payCmd.Flags().StringVar(&payProcessID, "process", "", "Payment process id")
	payCmd.Flags().StringVar(&payAssetID, "asset", "", "Asset id to pay with")
	payCmd.Flags().StringVar(&payNetworkID, "network", "", "Network id to pay on")
	_ = payCmd.MarkFlagRequired("process")
	_ = payCmd.MarkFlagRequired("asset")
	_ = payCmd.MarkFlagRequired("network")
}

func runPay(_ *cobra.Command, _ []string) {
	cfg := mustLoadConfig()

	done := make(chan error, 1)
	controller, err := session.NewFromConfig(cfg, payProcessID, session.Hooks{
		OnSuccess: func(result types.ConfirmationResult) {
			logrus.WithField("transaction_id", result.TransactionID).Info("Payment confirmed")
			done <- nil
		},
		OnError: func(pe *types.PaymentError) {
			done <- pe
		},
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create payment session")
	}
	defer controller.Close()

	depositShown := false
	unsubscribe := controller.Subscribe(func(snap session.Snapshot) {
		if snap.Deposit != nil && !depositShown {
			depositShown = true
			fmt.Printf("Deposit target: %s\n", snap.Deposit.DepositTarget)
			fmt.Printf("Amount:         %s\n", snap.Deposit.Amount)
			fmt.Printf("QR code:        %s\n", snap.Deposit.QRCodeURL)
		}
		if snap.Countdown != "" {
			fmt.Printf("\rExpires in %s ", snap.Countdown)
		}
	})
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := controller.Open(ctx); err != nil {
		logrus.WithError(err).Fatal("Failed to open payment session")
	}
	if err := controller.SelectAsset(payAssetID); err != nil {
		logrus.WithError(err).WithField("asset", payAssetID).Fatal("Asset selection failed")
	}
	if err := controller.SelectNetwork(ctx, payNetworkID); err != nil {
		logrus.WithError(err).WithField("network", payNetworkID).Fatal("Network selection failed")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-done:
		fmt.Println()
		if err != nil {
			logrus.WithError(err).Error("Payment did not complete")
			os.Exit(1)
		}
	case <-quit:
		fmt.Println()
		logrus.Info("Cancelling payment session")
		controller.Cancel()
	}
}
