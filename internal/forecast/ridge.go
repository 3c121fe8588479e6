package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotFitted is returned by Predict before the first Fit
	ErrNotFitted = errors.New("regressor not fitted")
	// ErrEmptyTraining is returned by Fit without samples
	ErrEmptyTraining = errors.New("empty training set")
)

// DefaultRidgeLambda is the L2 penalty on standardized features
const DefaultRidgeLambda = 1.0

// Ridge is an L2-regularized linear regressor.
// Missing values (NaN) are imputed with the training column mean and every
// column is standardized before solving (ZᵀZ + λI)β = Zᵀ(y - ȳ).
type Ridge struct {
	Lambda float64

	means  []float64
	scales []float64
	beta   []float64
	yMean  float64
	fitted bool
}

// NewRidge creates a ridge regressor with the given penalty
func NewRidge(lambda float64) *Ridge {
	if lambda <= 0 {
		lambda = DefaultRidgeLambda
	}
	return &Ridge{Lambda: lambda}
}

// Fit replaces any previous training state
func (r *Ridge) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || len(y) == 0 {
		return ErrEmptyTraining
	}
	if len(y) != n {
		return fmt.Errorf("ridge: %d rows but %d labels", n, len(y))
	}
	p := len(X[0])
	for i, row := range X {
		if len(row) != p {
			return fmt.Errorf("ridge: row %d has %d features, want %d", i, len(row), p)
		}
	}

	r.means, r.scales = columnStats(X, p)

	Z := mat.NewDense(n, max(p, 1), nil)
	for i, row := range X {
		for j, v := range row {
			Z.Set(i, j, r.standardize(j, v))
		}
	}

	r.yMean = 0
	for _, v := range y {
		r.yMean += v
	}
	r.yMean /= float64(n)

	yc := mat.NewVecDense(n, nil)
	for i, v := range y {
		yc.SetVec(i, v-r.yMean)
	}

	if p == 0 {
		r.beta = nil
		r.fitted = true
		return nil
	}

	var gram mat.SymDense
	gram.SymOuterK(1, Z.T())
	for j := 0; j < p; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.Lambda)
	}

	var rhs mat.VecDense
	rhs.MulVec(Z.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return errors.New("ridge: normal equations not positive definite")
	}

	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &rhs); err != nil {
		return fmt.Errorf("ridge: solve: %w", err)
	}

	r.beta = make([]float64, p)
	for j := range r.beta {
		r.beta[j] = beta.AtVec(j)
	}
	r.fitted = true
	return nil
}

// Predict returns one value per row
func (r *Ridge) Predict(X [][]float64) ([]float64, error) {
	if !r.fitted {
		return nil, ErrNotFitted
	}

	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != len(r.means) {
			return nil, fmt.Errorf("ridge: row %d has %d features, want %d", i, len(row), len(r.means))
		}
		v := r.yMean
		for j, x := range row {
			v += r.beta[j] * r.standardize(j, x)
		}
		out[i] = v
	}
	return out, nil
}

func (r *Ridge) standardize(j int, v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return (v - r.means[j]) / r.scales[j]
}

// columnStats returns per-column means and standard deviations over finite
// values. All-missing columns get mean 0; constant columns get scale 1.
func columnStats(X [][]float64, p int) (means, scales []float64) {
	means = make([]float64, p)
	scales = make([]float64, p)

	for j := 0; j < p; j++ {
		var sum float64
		var count int
		for _, row := range X {
			if v := row[j]; !math.IsNaN(v) && !math.IsInf(v, 0) {
				sum += v
				count++
			}
		}
		if count == 0 {
			scales[j] = 1
			continue
		}
		mean := sum / float64(count)

		var ss float64
		for _, row := range X {
			if v := row[j]; !math.IsNaN(v) && !math.IsInf(v, 0) {
				ss += (v - mean) * (v - mean)
			}
		}
		std := math.Sqrt(ss / float64(count))
		if std == 0 {
			std = 1
		}
		means[j] = mean
		scales[j] = std
	}
	return means, scales
}
