package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	ratingConfigFile string
	verbose          bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rating",
	Short: "Stock rating service",
	Long: `Stock rating service CLI

Downloads fundamentals and monthly prices for a ticker, forecasts the
one-year-ahead share price walk-forward and folds growth, profitability
and financial health into a 0-100 rating.

Usage:
  go run ./cmd/rating [command]

Examples:
  go run ./cmd/rating rate IBM --pretty
  go run ./cmd/rating api
  go run ./cmd/rating scheduler start
  go run ./cmd/rating config show`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&ratingConfigFile, "rating-config", "", "rating YAML (default: $RATING_CONFIG or built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
