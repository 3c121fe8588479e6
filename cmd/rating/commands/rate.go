package commands

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rateCmd represents the rate command
var rateCmd = &cobra.Command{
	Use:   "rate [ticker]",
	Short: "Rate one ticker and print the payload",
	Long: `Run the full pipeline for one ticker and print the JSON payload.

An unknown ticker or a too short history prints {"Error": "..."}.

Example:
  go run ./cmd/rating rate IBM
  go run ./cmd/rating rate IBM --pretty`,
	Args: cobra.ExactArgs(1),
	RunE: runRate,
}

var ratePretty bool

func init() {
	rootCmd.AddCommand(rateCmd)
	rateCmd.Flags().BoolVar(&ratePretty, "pretty", false, "indent the JSON output")
}

func runRate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.pipeline.Run(ctx, args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if ratePretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res.Payload)
}
