package contracts

import (
	"context"
	"errors"
)

// ErrNotAvailable is the provider's single terminal failure: unknown ticker,
// empty reply or retries exhausted.
var ErrNotAvailable = errors.New("not available")

// RawTable is a provider reply decoded from JSON, kept verbatim for the payload
type RawTable map[string]interface{}

// MarketDataProvider fetches one dataset for a ticker.
// Rate-limit retries are the provider's business; callers only see success
// or ErrNotAvailable.
// ⭐ SSOT: market data ingestion interface
type MarketDataProvider interface {
	Fetch(ctx context.Context, ticker string, statement StatementType) (RawTable, error)
}

// Regressor is the trainable estimator consumed by the walk-forward loop.
// Feature matrices hold NaN for missing values. Fit is destructive: each call
// replaces the previous training state.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// RegressorFactory hands out a fresh Regressor per pipeline run.
// A Regressor instance must never be shared by concurrent runs.
type RegressorFactory func() Regressor
