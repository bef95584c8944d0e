package main

import (
	"fmt"
	"os"

	"github.com/Fruitloop24/metergate/adapters/clock"
	"github.com/Fruitloop24/metergate/adapters/sqlite"
	"github.com/Fruitloop24/metergate/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the MeterGate configuration file.

Checks:
  - YAML syntax is valid
  - Required fields are present
  - Tier table is consistent
  - Store is writable (optional)

Examples:
  metergate validate
  metergate validate --config /etc/metergate/config.yaml`,
	RunE: runValidate,
}

var validateCheckStore bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckStore, "check-store", false, "check if the sqlite store is writable")
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config valid\n", checkMark)

	fmt.Printf("  %s Tier table: %d tiers, default %q\n", checkMark, len(cfg.Tiers), cfg.DefaultTier)

	if validateCheckStore && cfg.Store.Driver == "sqlite" {
		store, err := sqlite.Open(cfg.Store.SQLite.Path, clock.Real{})
		if err != nil {
			fmt.Printf("  %s Store writable\n", crossMark)
			return fmt.Errorf("store error: %w", err)
		}
		store.Close()
		fmt.Printf("  %s Store writable\n", checkMark)
	}

	fmt.Println("\nConfiguration is valid.")
	return nil
}
