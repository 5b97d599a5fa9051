package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/momentum/internal/app"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "momentum",
	Short:         "Momentum scoring and category allocation analysis",
	Long:          `Scores tickers on price, technical, fundamental and relative momentum, and compares portfolio holdings against target category allocations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file path (default: MOMENTUM_CONFIG, then momentum.toml beside the binary)")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(portfolioCmd)
	rootCmd.AddCommand(watchlistCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newApp initializes the shared services from the resolved config.
func newApp() (*app.App, error) {
	a, err := app.NewApp(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
