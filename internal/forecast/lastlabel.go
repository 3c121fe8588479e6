package forecast

import (
	"fmt"

	"github.com/wonny/stockrate/backend/internal/contracts"
)

// LastLabel is a naive baseline: every forecast is the most recent training label
type LastLabel struct {
	last   float64
	fitted bool
}

// Fit remembers y's last value
func (l *LastLabel) Fit(X [][]float64, y []float64) error {
	if len(y) == 0 {
		return ErrEmptyTraining
	}
	l.last = y[len(y)-1]
	l.fitted = true
	return nil
}

// Predict returns the remembered label for every row
func (l *LastLabel) Predict(X [][]float64) ([]float64, error) {
	if !l.fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i := range out {
		out[i] = l.last
	}
	return out, nil
}

// Regressor names accepted by NewFactory
const (
	RegressorRidge     = "ridge"
	RegressorLastLabel = "last_label"
)

// NewFactory maps a configured regressor name to a factory
func NewFactory(name string) (contracts.RegressorFactory, error) {
	switch name {
	case RegressorRidge, "":
		return func() contracts.Regressor { return NewRidge(DefaultRidgeLambda) }, nil
	case RegressorLastLabel:
		return func() contracts.Regressor { return &LastLabel{} }, nil
	}
	return nil, fmt.Errorf("unknown regressor %q", name)
}
