package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/stockrate/backend/internal/scheduler"
	"github.com/wonny/stockrate/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Watchlist scheduler",
	Long: `Rate the WATCHLIST tickers on the WATCHLIST_SCHEDULE cron expression.

Subcommands:
  start  - start the scheduler daemon
  run    - rate the watchlist once and exit

Example:
  WATCHLIST=IBM,MSFT go run ./cmd/rating scheduler start
  go run ./cmd/rating scheduler run`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler (Ctrl+C to stop)",
		RunE:  runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Rate the watchlist once",
		RunE:  runWatchlistOnce,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func newWatchlistJob(a *app) (*jobs.WatchlistJob, error) {
	job := jobs.NewWatchlistJob(a.pipeline, a.cfg.Rating.Watchlist, a.cfg.Rating.Schedule, a.log)
	if len(job.Tickers()) == 0 {
		return nil, fmt.Errorf("WATCHLIST is empty")
	}
	return job, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	job, err := newWatchlistJob(a)
	if err != nil {
		return err
	}

	sched := scheduler.New(a.log)
	if err := sched.AddJob(job); err != nil {
		return err
	}
	sched.Start()

	fmt.Printf("✅ Scheduler started: %d tickers on %q\n", len(job.Tickers()), job.Schedule())
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func runWatchlistOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	job, err := newWatchlistJob(a)
	if err != nil {
		return err
	}
	return job.Run(ctx)
}
