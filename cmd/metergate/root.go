package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "metergate",
	Short: "Usage metering and entitlement service for multi-tenant APIs",
	Long: `MeterGate meters per-tenant API usage against subscription tiers.

It tracks monthly usage per principal, enforces tier quotas with a
calendar-month reset, applies a per-minute rate limit, and keeps tier
entitlements in sync with the billing provider.

Quick start:
  metergate serve     # Start the HTTP service
  metergate validate  # Validate configuration`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "metergate.yaml", "config file path")
}
