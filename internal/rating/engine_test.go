package rating

import (
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockrate/backend/internal/contracts"
	"github.com/wonny/stockrate/backend/internal/ratingconfig"
)

func TestScoreForRatio(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		threshold float64
		want      float64
	}{
		{"meets threshold", 0.15, 0.15, 100},
		{"beats threshold", 3, 1, 100},
		{"half way", 0.5, 1, 50},
		{"zero", 0, 0.05, 0},
		{"mild negative", -0.5, 1, -50},
		{"linear floor", -2.5, 1, -100},
		{"severe negative", -4, 1, -40},
		{"severe floor", -50, 1, -100},
		{"small threshold severe", -4, 0.05, -100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScoreForRatio(tt.value, tt.threshold), 1e-9)
		})
	}
}

func TestScoreForRatioBounded(t *testing.T) {
	for _, th := range []float64{0.05, 0.15, 1, 3} {
		for v := -1000.0; v <= 1000; v += 0.37 {
			s := ScoreForRatio(v, th)
			assert.GreaterOrEqual(t, s, -100.0)
			assert.LessOrEqual(t, s, 100.0)
		}
		assert.Equal(t, 100.0, ScoreForRatio(th, th))
		assert.Equal(t, 0.0, ScoreForRatio(math.NaN(), th))
		assert.Equal(t, 0.0, ScoreForRatio(math.Inf(1), th))
		assert.Equal(t, 0.0, ScoreForRatio(math.Inf(-1), th))
	}
	assert.Equal(t, 0.0, ScoreForRatio(1, math.NaN()))
}

func floats(vs ...float64) []null.Float {
	out := make([]null.Float, len(vs))
	for i, v := range vs {
		out[i] = null.FloatFrom(v)
	}
	return out
}

func TestGMGR(t *testing.T) {
	t.Run("single point", func(t *testing.T) {
		assert.Equal(t, 0.0, GMGR(floats(42), 5))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0.0, GMGR(nil, 5))
	})

	t.Run("smooth increase", func(t *testing.T) {
		g := GMGR(floats(100, 105, 110.25, 115.76, 121.55, 127.63), 5)
		amplified := clamp(g*10, -100, 100)
		assert.Greater(t, amplified, 0.0)
		assert.LessOrEqual(t, amplified, 100.0)
	})

	t.Run("constant series", func(t *testing.T) {
		assert.Equal(t, 0.0, GMGR(floats(5, 5, 5, 5), 5))
	})

	t.Run("missing values count as zero growth", func(t *testing.T) {
		values := floats(100, 110, 120, 130)
		values[1] = null.Float{}
		g := GMGR(values, 5)
		assert.False(t, math.IsNaN(g))
	})

	t.Run("trailing window", func(t *testing.T) {
		// only the last 3*1+1 = 4 points are used
		long := GMGR(floats(1, 1000, 10, 11, 12, 13), 1)
		short := GMGR(floats(10, 11, 12, 13), 1)
		assert.InDelta(t, short, long, 1e-12)
	})

	t.Run("outlier suppressed", func(t *testing.T) {
		base := floats(100, 101, 102, 103, 104, 105, 106)
		spiked := append(floats(100, 101, 102, 103, 104, 105, 106), null.FloatFrom(10600))
		assert.InDelta(t, GMGR(base, 5), GMGR(spiked, 5), 1e-9)
	})

	t.Run("too many exclusions", func(t *testing.T) {
		// a collapse to 1 gives g <= -1; three kept per excluded period is
		// enough, 3 kept for 2 excluded is not
		assert.NotEqual(t, 0.0, GMGR(floats(10, 11, 12, 13, 1), 5))
		assert.Equal(t, 0.0, GMGR(floats(10, 11, 12, 1, 13, 1), 5))
	})
}

func TestFinalRateClamps(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{500*1 + (-100), 100},
		{-100, 0},
		{42.9, 42},
		{-0.5, 0},
		{math.Inf(1), 100},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FinalRate(tt.in), "in %v", tt.in)
	}
}

func quarter(i int) time.Time {
	return time.Date(2019, time.March, 31, 0, 0, 0, 0, time.UTC).AddDate(0, 3*i, 0)
}

func row(i int, price float64) contracts.FeatureRow {
	values := make([]null.Float, len(contracts.FeatureColumns))
	for j, col := range contracts.FeatureColumns {
		if col == contracts.ColSharePrice {
			values[j] = null.FloatFrom(price)
		}
	}
	return contracts.FeatureRow{FiscalDateEnding: quarter(i), Values: values}
}

func TestRateDebtEquityInversion(t *testing.T) {
	table := &contracts.FeatureTable{
		Records: []contracts.FundamentalsRecord{{
			FiscalDateEnding: quarter(0),
			Items: map[string]null.Float{
				contracts.ColDebtEquityRatio: null.FloatFrom(2.0),
			},
		}},
		Rows: []contracts.FeatureRow{row(0, 10)},
	}

	out, err := NewEngine(nil).Rate(table, []contracts.PredictionRow{{Price: 10}})
	require.NoError(t, err)
	assert.Equal(t, 50, out.FinancialHealth.Scores[contracts.ColDebtEquityRatio])
	assert.Equal(t, 0, out.FinancialHealth.Scores[contracts.ColCurrentRatio])
	assert.InDelta(t, 25, out.FinancialHealth.Average, 1e-9)
}

func TestRateBookValueInversion(t *testing.T) {
	table := &contracts.FeatureTable{
		Records: []contracts.FundamentalsRecord{{
			FiscalDateEnding: quarter(0),
			Items:            map[string]null.Float{contracts.ColBookValue: null.FloatFrom(5)},
			SharePrice:       null.FloatFrom(20),
		}},
		Rows: []contracts.FeatureRow{row(0, 20)},
	}

	out, err := NewEngine(nil).Rate(table, []contracts.PredictionRow{{Price: 20}})
	require.NoError(t, err)
	// price-to-book 4 → inverse 0.25 against threshold 1.0
	assert.Equal(t, 25, out.Profitability.Scores[contracts.ColBookValue])
}

func TestRateScenario(t *testing.T) {
	table := &contracts.FeatureTable{
		Rows: []contracts.FeatureRow{row(0, 10), row(1, 12), row(2, 14), row(3, 16)},
	}
	preds := []contracts.PredictionRow{{Price: 12}, {Price: 14}, {Price: 16}}

	out, err := NewEngine(nil).Rate(table, preds)
	require.NoError(t, err)

	assert.Equal(t, 0.0, out.PricePredictionReturn)
	assert.Equal(t, 0, out.FinalRate)
	assert.Equal(t, 2, out.PriceReturnGrade)
	assert.Len(t, out.Growth.Scores, 4)
	assert.Len(t, out.Profitability.Scores, 4)
	assert.Len(t, out.FinancialHealth.Scores, 2)
}

func TestRateUpsideNormalized(t *testing.T) {
	records := make([]contracts.FundamentalsRecord, 0, 2)
	for i := 0; i < 2; i++ {
		records = append(records, contracts.FundamentalsRecord{
			FiscalDateEnding: quarter(i),
			Items: map[string]null.Float{
				contracts.ColROE:             null.FloatFrom(0.30),
				contracts.ColROA:             null.FloatFrom(0.10),
				contracts.ColCurrentRatio:    null.FloatFrom(2),
				contracts.ColDebtEquityRatio: null.FloatFrom(0.5),
			},
		})
	}
	table := &contracts.FeatureTable{
		Records: records,
		Rows:    []contracts.FeatureRow{row(0, 100), row(1, 50)},
	}

	out, err := NewEngine(nil).Rate(table, []contracts.PredictionRow{{Price: 100}})
	require.NoError(t, err)

	// return (100-50)/100 = 50%, normalized by 50/100
	assert.InDelta(t, 50, out.PricePredictionReturn, 1e-9)
	assert.Equal(t, 5, out.PriceReturnGrade)
	// categories: growth 0, profitability (0+100+100+0)/4 = 50, health 100
	assert.InDelta(t, 50, out.Profitability.Average, 1e-9)
	assert.InDelta(t, 100, out.FinancialHealth.Average, 1e-9)
	assert.Equal(t, 75, out.FinalRate)
}

func TestRateDownsideFloored(t *testing.T) {
	table := &contracts.FeatureTable{Rows: []contracts.FeatureRow{row(0, 20)}}

	out, err := NewEngine(nil).Rate(table, []contracts.PredictionRow{{Price: 10}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.PricePredictionReturn)
	assert.Equal(t, 1, out.PriceReturnGrade)
	assert.Equal(t, 0, out.FinalRate)
}

func TestRateAdversarialClamp(t *testing.T) {
	records := []contracts.FundamentalsRecord{{
		FiscalDateEnding: quarter(0),
		Items: map[string]null.Float{
			contracts.ColROE:             null.FloatFrom(-50),
			contracts.ColROA:             null.FloatFrom(-50),
			contracts.ColCurrentRatio:    null.FloatFrom(-50),
			contracts.ColDebtEquityRatio: null.FloatFrom(-0.01),
		},
	}}
	table := &contracts.FeatureTable{Records: records, Rows: []contracts.FeatureRow{row(0, 1)}}

	out, err := NewEngine(nil).Rate(table, []contracts.PredictionRow{{Price: 1000}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.FinalRate, 0)
	assert.LessOrEqual(t, out.FinalRate, 100)
}

func TestRateMissingPrice(t *testing.T) {
	table := &contracts.FeatureTable{Rows: []contracts.FeatureRow{{FiscalDateEnding: quarter(0)}}}

	out, err := NewEngine(nil).Rate(table, []contracts.PredictionRow{{Price: 10}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.PricePredictionReturn)
	assert.Equal(t, 0, out.FinalRate)
}

func TestRateNoPredictions(t *testing.T) {
	_, err := NewEngine(nil).Rate(&contracts.FeatureTable{}, nil)
	assert.ErrorIs(t, err, ErrNoPredictions)
}

func TestRateCustomCutoffs(t *testing.T) {
	cfg := ratingconfig.Default()
	cfg.Grade.Cutoffs = []float64{-10, 0, 1, 2}

	table := &contracts.FeatureTable{Rows: []contracts.FeatureRow{row(0, 20)}}
	out, err := NewEngine(cfg).Rate(table, []contracts.PredictionRow{{Price: 19}})
	require.NoError(t, err)
	// return (19-20)/19 ≈ -5.3%
	assert.Equal(t, 2, out.PriceReturnGrade)
}
