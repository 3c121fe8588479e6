package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/stockrate/backend/internal/external/alphavantage"
	"github.com/wonny/stockrate/backend/internal/forecast"
	"github.com/wonny/stockrate/backend/internal/pipeline"
	"github.com/wonny/stockrate/backend/internal/ratingconfig"
	"github.com/wonny/stockrate/backend/internal/store"
	"github.com/wonny/stockrate/backend/pkg/config"
	"github.com/wonny/stockrate/backend/pkg/database"
	"github.com/wonny/stockrate/backend/pkg/httputil"
	"github.com/wonny/stockrate/backend/pkg/kafka"
	"github.com/wonny/stockrate/backend/pkg/logger"
	"github.com/wonny/stockrate/backend/pkg/metrics"
	"github.com/wonny/stockrate/backend/pkg/redis"
)

// app holds the wired dependencies shared by the commands
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	rating   *ratingconfig.Config
	metrics  *metrics.Recorder
	redis    *redis.Client
	db       *database.DB
	repo     *store.Repository
	producer *kafka.Producer
	pipeline *pipeline.Pipeline
}

// loadConfig loads the environment config and the logger
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}

// loadRatingConfig resolves the rating YAML from the flag or the environment
func loadRatingConfig(cfg *config.Config) (*ratingconfig.Config, error) {
	path := ratingConfigFile
	if path == "" && cfg != nil {
		path = cfg.Rating.ConfigPath
	}
	rc, _, err := ratingconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load rating config: %w", err)
	}
	return rc, nil
}

// newApp wires every component. Redis, Postgres and Kafka are optional and
// switched on through the environment.
func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	a.rating, err = loadRatingConfig(cfg)
	if err != nil {
		return nil, err
	}

	a.redis, err = redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		a.redis = redis.Disabled()
	}

	httpClient := httputil.New(log)
	if a.redis.Enabled() {
		httpClient = httpClient.WithRateLimiter(
			redis.NewRateLimiter(a.redis, "stockrate"),
			redis.AlphaVantageRateLimit(cfg.AlphaVantage.RequestsPerMin),
		)
	} else {
		httpClient = httpClient.WithLocalLimit(cfg.AlphaVantage.RequestsPerMin)
	}

	provider := alphavantage.NewCachedProvider(
		alphavantage.NewClient(cfg.AlphaVantage, httpClient, a.metrics, log),
		redis.NewCache(a.redis, "stockrate"),
		cfg.AlphaVantage.CacheTTL,
	)

	factory, err := forecast.NewFactory(cfg.Rating.Regressor)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{pipeline.WithMetrics(a.metrics)}

	a.db, err = database.New(ctx, cfg.Database)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Debug("Database disabled, snapshots are not stored")
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		a.repo = store.NewRepository(a.db.Pool)
		opts = append(opts, pipeline.WithStore(a.repo))
	}

	if cfg.Kafka.Enabled {
		a.producer, err = kafka.NewProducer(kafka.WithBrokers(cfg.Kafka.Brokers))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create kafka producer: %w", err)
		}
		opts = append(opts, pipeline.WithPublisher(a.producer, cfg.Kafka.Topic))
	}

	a.pipeline, err = pipeline.New(provider, factory, a.rating, log, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// Close releases every connection the app opened
func (a *app) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close kafka producer")
		}
	}
	a.db.Close()
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
