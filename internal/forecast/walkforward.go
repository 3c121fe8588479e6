package forecast

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/wonny/stockrate/backend/internal/contracts"
)

// ErrInsufficientHistory means the loop ran out of rows before it could
// forecast every period, or there was no labeled row to train on
var ErrInsufficientHistory = errors.New("insufficient history")

// WalkForward runs the expanding-window retrain-and-predict loop
type WalkForward struct {
	factory contracts.RegressorFactory
	log     zerolog.Logger
}

// NewWalkForward creates a predictor that takes one fresh regressor per run
func NewWalkForward(factory contracts.RegressorFactory, log zerolog.Logger) *WalkForward {
	return &WalkForward{
		factory: factory,
		log:     log.With().Str("component", "forecast.walkforward").Logger(),
	}
}

// Run forecasts the price one year after every row but the first.
//
// A labeled row i refits the model on rows 0..i and forecasts row i+1.
// The first unlabeled row i ends the loop: the model is refit on rows
// 0..i-1 and rows i..n-1 are forecast in one batch, replacing the single
// forecast already made for row i. Reaching a labeled last row returns the
// forecasts made so far together with ErrInsufficientHistory.
// ⭐ SSOT: FeatureRows → PredictionRows
func (w *WalkForward) Run(ctx context.Context, rows []contracts.FeatureRow) ([]contracts.PredictionRow, error) {
	if len(rows) == 0 {
		return nil, ErrInsufficientHistory
	}

	rows = sortedRows(rows)
	n := len(rows)
	model := w.factory()
	preds := make([]contracts.PredictionRow, 0, n-1)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return preds, err
		}

		if rows[i].Label.Valid {
			if i == n-1 {
				w.log.Warn().
					Int("rows", n).
					Int("predictions", len(preds)).
					Msg("last row is labeled, nothing left to forecast")
				return preds, ErrInsufficientHistory
			}

			out, err := fitPredict(model, rows[:i+1], rows[i+1:i+2])
			if err != nil {
				return preds, fmt.Errorf("refit at row %d: %w", i, err)
			}
			preds = append(preds, predictionFor(rows[i+1], out[0]))
			continue
		}

		if i == 0 {
			w.log.Warn().Int("rows", n).Msg("no labeled rows to train on")
			return nil, ErrInsufficientHistory
		}

		out, err := fitPredict(model, rows[:i], rows[i:])
		if err != nil {
			return preds, fmt.Errorf("final batch from row %d: %w", i, err)
		}

		// row i was already forecast by the previous step
		preds = preds[:len(preds)-1]
		for j, p := range out {
			preds = append(preds, predictionFor(rows[i+j], p))
		}

		w.log.Debug().
			Int("rows", n).
			Int("trained_on", i).
			Int("batch", len(out)).
			Msg("walk-forward complete")
		return preds, nil
	}

	return preds, nil
}

func fitPredict(model contracts.Regressor, train, next []contracts.FeatureRow) ([]float64, error) {
	X := make([][]float64, len(train))
	y := make([]float64, len(train))
	for i, r := range train {
		X[i] = r.Vector()
		y[i] = r.Label.Float64
	}
	if err := model.Fit(X, y); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	Xn := make([][]float64, len(next))
	for i, r := range next {
		Xn[i] = r.Vector()
	}
	out, err := model.Predict(Xn)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(out) != len(next) {
		return nil, fmt.Errorf("predict: got %d values for %d rows", len(out), len(next))
	}
	return out, nil
}

func predictionFor(row contracts.FeatureRow, price float64) contracts.PredictionRow {
	return contracts.PredictionRow{
		Date:  row.FiscalDateEnding.Add(contracts.OneYear),
		Price: price,
	}
}

func sortedRows(rows []contracts.FeatureRow) []contracts.FeatureRow {
	out := make([]contracts.FeatureRow, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FiscalDateEnding.Before(out[j].FiscalDateEnding)
	})
	return out
}
