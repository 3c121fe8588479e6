package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockrate/backend/internal/store"
	"github.com/wonny/stockrate/backend/pkg/database"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Snapshot database",
}

var (
	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create the snapshot schema",
		RunE:  runDBMigrate,
	}

	dbCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "Ping the database and print pool statistics",
		RunE:  runDBCheck,
	}
)

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbCheckCmd)
}

func openDB(ctx context.Context) (*database.DB, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func runDBMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.NewRepository(db.Pool).Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✅ Snapshot schema ready")
	return nil
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Database healthy (%v)\n", status.ResponseTime)
	fmt.Fprintf(out, "   Connections: %d total, %d idle, %d acquired, %d max\n",
		status.TotalConns, status.IdleConns, status.AcquiredConns, status.MaxConns)
	return nil
}
