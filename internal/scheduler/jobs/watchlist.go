package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/stockrate/backend/internal/pipeline"
	"github.com/wonny/stockrate/backend/pkg/logger"
)

// Runner rates one ticker
type Runner interface {
	Run(ctx context.Context, ticker string) (*pipeline.Result, error)
}

// WatchlistJob re-rates a fixed list of tickers.
// Snapshots and events are emitted by the pipeline itself.
// ⭐ SSOT: the watchlist refresh schedule lives in this job only
type WatchlistJob struct {
	runner   Runner
	tickers  []string
	schedule string
	logger   *logger.Logger
}

// NewWatchlistJob creates a watchlist job; blank and duplicate tickers are dropped
func NewWatchlistJob(runner Runner, tickers []string, schedule string, log *logger.Logger) *WatchlistJob {
	seen := make(map[string]struct{}, len(tickers))
	clean := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		clean = append(clean, t)
	}

	return &WatchlistJob{
		runner:   runner,
		tickers:  clean,
		schedule: schedule,
		logger:   log.WithField("job", "watchlist_rating"),
	}
}

// Name returns the job name
func (j *WatchlistJob) Name() string {
	return "watchlist_rating"
}

// Schedule returns the cron schedule
func (j *WatchlistJob) Schedule() string {
	return j.schedule
}

// Tickers returns the normalized watchlist
func (j *WatchlistJob) Tickers() []string {
	return j.tickers
}

// Run rates every ticker in order. Tickers without a rating are logged and
// skipped; pipeline errors are collected and returned together.
func (j *WatchlistJob) Run(ctx context.Context) error {
	j.logger.WithField("tickers", len(j.tickers)).Info("Starting watchlist rating")

	var (
		errs  []error
		rated int
	)
	for _, ticker := range j.tickers {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := j.runner.Run(ctx, ticker)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ticker, err))
			continue
		}

		if res.Outcome != pipeline.OutcomeRated {
			j.logger.WithFields(map[string]interface{}{
				"ticker":  ticker,
				"outcome": res.Outcome,
			}).Warn("Ticker not rated")
			continue
		}
		rated++
	}

	j.logger.WithFields(map[string]interface{}{
		"rated":  rated,
		"failed": len(errs),
		"total":  len(j.tickers),
	}).Info("Watchlist rating completed")

	return errors.Join(errs...)
}
