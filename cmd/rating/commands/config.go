package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/stockrate/backend/internal/ratingconfig"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Rating configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective rating config and its hash",
	Long: `Print the rating config in effect after defaults are applied, and
the hash recorded with every stored snapshot.

Example:
  go run ./cmd/rating config show --rating-config config/rating.yaml`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	rc, _, err := ratingconfig.Load(ratingConfigFile)
	if err != nil {
		return err
	}

	hash, err := ratingconfig.Hash(rc)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(rc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "# hash: %s\n%s", hash, out)
	return nil
}
