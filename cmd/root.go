package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "payment-button",
	Short: "ApoloPay payment button client",
	Long:  "A client for the ApoloPay payment button flow: asset catalog, deposit resolution, and realtime payment confirmation.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
