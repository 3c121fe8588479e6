package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/stockrate/backend/internal/contracts"
	"github.com/wonny/stockrate/backend/internal/external/alphavantage"
	"github.com/wonny/stockrate/backend/internal/features"
	"github.com/wonny/stockrate/backend/internal/forecast"
	"github.com/wonny/stockrate/backend/internal/rating"
	"github.com/wonny/stockrate/backend/internal/ratingconfig"
	"github.com/wonny/stockrate/backend/internal/response"
	"github.com/wonny/stockrate/backend/pkg/logger"
	"github.com/wonny/stockrate/backend/pkg/metrics"
)

// ErrEmptyTicker is returned for a blank ticker symbol
var ErrEmptyTicker = errors.New("empty ticker")

// Run outcomes reported to metrics
const (
	OutcomeRated        = "rated"
	OutcomeNotAvailable = "not_available"
	OutcomeShortHistory = "insufficient_history"
	OutcomeFailed       = "failed"
)

// SnapshotStore persists successful results
type SnapshotStore interface {
	Save(ctx context.Context, s *contracts.RatingSnapshot) error
}

// Publisher emits a rating event
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// Result is the outcome of one run.
// Payload is always set; Breakdown only for a rated ticker.
type Result struct {
	RunID      string
	Ticker     string
	Outcome    string
	Payload    response.Payload
	Breakdown  *contracts.RatingBreakdown
	ConfigHash string
	Duration   time.Duration
}

// Pipeline rates one ticker end to end
// ⭐ SSOT: download → derive → forecast → rate → assemble
type Pipeline struct {
	provider   contracts.MarketDataProvider
	factory    contracts.RegressorFactory
	deriver    *features.Deriver
	engine     *rating.Engine
	configHash string

	store     SnapshotStore
	publisher Publisher
	topic     string

	metrics  *metrics.Recorder
	logger   *logger.Logger
	newRunID func() string
	now      func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithStore saves a snapshot after every rated run
func WithStore(s SnapshotStore) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithPublisher publishes a RatingComputedEvent to topic after every rated run
func WithPublisher(pub Publisher, topic string) Option {
	return func(p *Pipeline) {
		p.publisher = pub
		p.topic = topic
	}
}

// WithMetrics records run metrics
func WithMetrics(rec *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = rec }
}

// WithDeriver replaces the default feature deriver
func WithDeriver(d *features.Deriver) Option {
	return func(p *Pipeline) { p.deriver = d }
}

// WithRunIDs overrides run ID generation
func WithRunIDs(next func() string) Option {
	return func(p *Pipeline) { p.newRunID = next }
}

// New creates a pipeline. A nil cfg means the canonical rating defaults.
func New(
	provider contracts.MarketDataProvider,
	factory contracts.RegressorFactory,
	cfg *ratingconfig.Config,
	log *logger.Logger,
	opts ...Option,
) (*Pipeline, error) {
	if cfg == nil {
		cfg = ratingconfig.Default()
	}
	hash, err := ratingconfig.Hash(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		provider: provider,
		factory:  factory,
		deriver: features.NewDeriver(
			features.WithMaxGap(time.Duration(cfg.Alignment.MaxGapDays)*24*time.Hour),
			features.WithStaleAfter(time.Duration(cfg.Features.StaleLabelDays)*24*time.Hour),
		),
		engine:     rating.NewEngine(cfg),
		configHash: hash,
		logger:     log.WithField("component", "pipeline"),
		newRunID:   uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run rates ticker.
// Unknown tickers and short histories are not errors: they produce an error
// payload. The returned error is reserved for cancellation and bad input.
func (p *Pipeline) Run(ctx context.Context, ticker string) (*Result, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, ErrEmptyTicker
	}

	start := p.now()
	result := &Result{
		RunID:      p.newRunID(),
		Ticker:     ticker,
		ConfigHash: p.configHash,
	}
	log := p.logger.WithFields(map[string]interface{}{
		"run_id": result.RunID,
		"ticker": ticker,
	})
	log.Info("Starting rating run")

	err := p.rate(ctx, ticker, result)
	result.Duration = p.now().Sub(start)

	switch {
	case err == nil:
		result.Outcome = OutcomeRated
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		p.metrics.ObservePipeline(OutcomeFailed, result.Duration)
		return nil, err
	case errors.Is(err, forecast.ErrInsufficientHistory):
		result.Outcome = OutcomeShortHistory
		result.Payload = response.ErrorPayload(fmt.Sprintf("Not enough history to forecast %s", ticker))
	case errors.Is(err, contracts.ErrNotAvailable),
		errors.Is(err, features.ErrNoFundamentals),
		errors.Is(err, alphavantage.ErrMalformed):
		result.Outcome = OutcomeNotAvailable
		result.Payload = response.ErrorPayload(fmt.Sprintf("Information about %s not available", ticker))
	default:
		result.Outcome = OutcomeFailed
		p.metrics.RecordError("pipeline")
		result.Payload = response.ErrorPayload(fmt.Sprintf("Information about %s not available", ticker))
	}

	p.metrics.ObservePipeline(result.Outcome, result.Duration)

	if err != nil {
		log.WithError(err).WithField("outcome", result.Outcome).Warn("Rating run produced no rating")
		return result, nil
	}

	p.metrics.ObserveFinalRate(result.Breakdown.FinalRate)
	log.WithFields(map[string]interface{}{
		"final_rate":  result.Breakdown.FinalRate,
		"grade":       result.Breakdown.PriceReturnGrade,
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("Rating run completed")

	p.persist(ctx, result, log)
	return result, nil
}

func (p *Pipeline) rate(ctx context.Context, ticker string, result *Result) error {
	raw, err := p.download(ctx, ticker)
	if err != nil {
		return err
	}

	input, err := parse(raw)
	if err != nil {
		return err
	}

	table, err := p.deriver.Derive(input)
	if err != nil {
		return err
	}

	// fresh regressor per run
	wf := forecast.NewWalkForward(p.factory, p.logger.Zerolog())
	predictions, err := wf.Run(ctx, table.Rows)
	if err != nil {
		return err
	}

	breakdown, err := p.engine.Rate(table, predictions)
	if err != nil {
		return err
	}

	result.Breakdown = breakdown
	result.Payload = response.Assemble(raw, table, predictions, breakdown)
	return nil
}

// download fetches every dataset in order; the first failure stops the run
func (p *Pipeline) download(ctx context.Context, ticker string) (map[contracts.StatementType]contracts.RawTable, error) {
	raw := make(map[contracts.StatementType]contracts.RawTable, len(contracts.AllStatements))
	for _, st := range contracts.AllStatements {
		table, err := p.provider.Fetch(ctx, ticker, st)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", st, err)
		}
		raw[st] = table
	}
	return raw, nil
}

func parse(raw map[contracts.StatementType]contracts.RawTable) (features.Input, error) {
	in := features.Input{
		Statements: make(map[contracts.StatementType][]contracts.Report, len(contracts.FundamentalStatements)),
	}

	for _, st := range contracts.FundamentalStatements {
		reports, err := alphavantage.QuarterlyReports(raw[st])
		if err != nil {
			return in, fmt.Errorf("%s: %w", st, err)
		}
		in.Statements[st] = reports
	}

	prices, err := alphavantage.MonthlyAdjusted(raw[contracts.StatementPrices])
	if err != nil {
		return in, fmt.Errorf("%s: %w", contracts.StatementPrices, err)
	}
	in.Prices = prices

	overview, err := alphavantage.ParseOverview(raw[contracts.StatementOverview])
	if err != nil {
		return in, fmt.Errorf("%s: %w", contracts.StatementOverview, err)
	}
	in.Overview = overview

	return in, nil
}

// persist saves and publishes a rated result. Failures are logged only:
// the caller already has its payload.
func (p *Pipeline) persist(ctx context.Context, result *Result, log *logger.Logger) {
	computedAt := p.now()

	if p.store != nil {
		snapshot := &contracts.RatingSnapshot{
			RunID:      result.RunID,
			Ticker:     result.Ticker,
			FinalRate:  result.Breakdown.FinalRate,
			Grade:      result.Breakdown.PriceReturnGrade,
			ConfigHash: result.ConfigHash,
			Payload:    result.Payload,
			CreatedAt:  computedAt,
		}
		if err := p.store.Save(ctx, snapshot); err != nil {
			p.metrics.RecordError("store")
			log.WithError(err).Warn("Failed to save rating snapshot")
		}
	}

	if p.publisher != nil {
		event := contracts.RatingComputedEvent{
			RunID:      result.RunID,
			Ticker:     result.Ticker,
			FinalRate:  result.Breakdown.FinalRate,
			Grade:      result.Breakdown.PriceReturnGrade,
			ConfigHash: result.ConfigHash,
			ComputedAt: computedAt,
		}
		if err := p.publisher.Publish(ctx, p.topic, []byte(result.Ticker), event); err != nil {
			p.metrics.RecordError("publish")
			log.WithError(err).Warn("Failed to publish rating event")
		}
	}
}
