package rating

import (
	"math"

	"github.com/guregu/null/v6"

	"github.com/wonny/stockrate/backend/internal/contracts"
	"github.com/wonny/stockrate/backend/internal/ratingconfig"
)

const (
	scoreMin = -100.0
	scoreMax = 100.0
)

var canonical = ratingconfig.Default()

// ScoreForRatio scores a ratio against its healthy threshold with the
// canonical scoring constants. The result lies in [-100, 100]; non-finite
// input scores 0.
func ScoreForRatio(value, threshold float64) float64 {
	if !contracts.Finite(value) || !contracts.Finite(threshold) {
		return 0
	}
	return scoreRatio(canonical.Scoring, value, threshold)
}

func scoreRatio(s ratingconfig.Scoring, value, threshold float64) float64 {
	if value >= threshold {
		return scoreMax
	}
	if value < s.SevereCutoff {
		return clamp(s.SevereMultiplier*value/threshold, scoreMin, scoreMax)
	}
	return clamp(s.LinearMultiplier*value/threshold, scoreMin, scoreMax)
}

// GMGR is the geometric mean growth rate in percent over the trailing
// 3*years+1 values, with the canonical outlier rules
func GMGR(values []null.Float, years int) float64 {
	g := canonical.Growth
	g.Years = years
	return gmgr(g, values)
}

func gmgr(cfg ratingconfig.Growth, values []null.Float) float64 {
	window := 3*cfg.Years + 1
	if len(values) > window {
		values = values[len(values)-window:]
	}
	if len(values) < 2 {
		return 0
	}

	growth := make([]float64, 0, len(values)-1)
	var meanAbs float64
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		var g float64
		if prev.Valid && cur.Valid && cur.Float64 != 0 {
			g = (cur.Float64 - prev.Float64) / cur.Float64
		}
		growth = append(growth, g)
		meanAbs += math.Abs(g)
	}
	meanAbs /= float64(len(growth))

	product := 1.0
	var kept, excluded int
	for _, g := range growth {
		if g <= -1 || math.Abs(g) > cfg.OutlierFactor*meanAbs {
			excluded++
			continue
		}
		product *= 1 + g
		kept++
	}

	if kept == 0 {
		return 0
	}
	if excluded > 0 && float64(kept)/float64(excluded) < cfg.MinKeptRatio {
		return 0
	}

	return (math.Pow(product, 1/float64(kept)) - 1) * 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
