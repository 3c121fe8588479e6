package rating

import (
	"errors"
	"math"
	"sort"

	"github.com/guregu/null/v6"

	"github.com/wonny/stockrate/backend/internal/contracts"
	"github.com/wonny/stockrate/backend/internal/ratingconfig"
)

// ErrNoPredictions is returned when there is no forecast to score
var ErrNoPredictions = errors.New("no predictions")

type scoreKind int

const (
	byGrowth scoreKind = iota
	byRatio
)

type attribute struct {
	name string
	kind scoreKind
}

var categories = []struct {
	name       string
	attributes []attribute
}{
	{contracts.CategoryGrowth, []attribute{
		{contracts.ColTotalRevenue, byGrowth},
		{contracts.ColEBITDA, byGrowth},
		{contracts.ColFreeCashFlow, byGrowth},
		{contracts.ColDividendPayout, byGrowth},
	}},
	{contracts.CategoryProfitability, []attribute{
		{contracts.ColNetIncome, byGrowth},
		{contracts.ColROE, byRatio},
		{contracts.ColROA, byRatio},
		{contracts.ColBookValue, byRatio},
	}},
	{contracts.CategoryFinancialHealth, []attribute{
		{contracts.ColCurrentRatio, byRatio},
		{contracts.ColDebtEquityRatio, byRatio},
	}},
}

// Engine computes the composite rating
type Engine struct {
	cfg *ratingconfig.Config
}

// NewEngine creates an Engine; a nil config means the canonical defaults
func NewEngine(cfg *ratingconfig.Config) *Engine {
	if cfg == nil {
		cfg = ratingconfig.Default()
	}
	return &Engine{cfg: cfg}
}

// Rate folds category scores and the forecast return into the final rating.
// Missing fundamentals score 0 and still count toward their category mean.
// ⭐ SSOT: FeatureTable + PredictionRows → RatingBreakdown
func (e *Engine) Rate(table *contracts.FeatureTable, predictions []contracts.PredictionRow) (*contracts.RatingBreakdown, error) {
	if len(predictions) == 0 {
		return nil, ErrNoPredictions
	}
	if table == nil {
		table = &contracts.FeatureTable{}
	}

	records := sortedRecords(table.Records)
	out := &contracts.RatingBreakdown{}

	var categoryMeans []float64
	for _, cat := range categories {
		cs := contracts.CategoryScore{Scores: make(map[string]int, len(cat.attributes))}
		var sum float64
		for _, attr := range cat.attributes {
			var s float64
			switch attr.kind {
			case byGrowth:
				s = e.growthScore(records, attr.name)
			case byRatio:
				s = e.ratioScore(records, attr.name)
			}
			cs.Scores[attr.name] = int(s)
			sum += s
		}
		cs.Average = sum / float64(len(cat.attributes))
		categoryMeans = append(categoryMeans, cs.Average)

		switch cat.name {
		case contracts.CategoryGrowth:
			out.Growth = cs
		case contracts.CategoryProfitability:
			out.Profitability = cs
		case contracts.CategoryFinancialHealth:
			out.FinancialHealth = cs
		}
	}

	lastPrice, maxPrice := observedPrices(table.Rows)
	lastPred := predictions[len(predictions)-1].Price

	ret, ok := priceReturn(lastPred, lastPrice)
	if ok {
		out.PricePredictionReturn = max(ret, 0)
		out.PriceReturnGrade = e.cfg.Grade.For(ret)
	} else {
		out.PriceReturnGrade = 1
	}

	var normalize float64
	if lastPrice.Valid && maxPrice > 0 {
		normalize = lastPrice.Float64 / maxPrice
	}

	final := out.PricePredictionReturn*normalize + mean(categoryMeans)
	out.FinalRate = FinalRate(final)

	return out, nil
}

// FinalRate truncates toward zero and clamps to [0, 100]
func FinalRate(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(clamp(math.Trunc(v), 0, 100))
}

// growthScore amplifies GMGR and clamps it to the score range
func (e *Engine) growthScore(records []contracts.FundamentalsRecord, column string) float64 {
	values := make([]null.Float, len(records))
	for i, rec := range records {
		values[i] = rec.Get(column)
	}
	return clamp(gmgr(e.cfg.Growth, values)*e.cfg.Growth.Amplification, scoreMin, scoreMax)
}

// ratioScore scores the latest record's ratio. Lower-is-better ratios are
// inverted first: debt/equity becomes 1/x and book value becomes
// bookValue/sharePrice (inverse price-to-book).
func (e *Engine) ratioScore(records []contracts.FundamentalsRecord, column string) float64 {
	if len(records) == 0 {
		return 0
	}
	latest := records[len(records)-1]

	v := latest.Get(column)
	if !v.Valid {
		return 0
	}
	value := v.Float64

	switch column {
	case contracts.ColDebtEquityRatio:
		if value == 0 {
			return 0
		}
		value = 1 / value
	case contracts.ColBookValue:
		price := latest.SharePrice
		if !price.Valid || price.Float64 == 0 {
			return 0
		}
		value /= price.Float64
	}

	threshold, ok := e.cfg.Ratios.Threshold(column)
	if !ok || !contracts.Finite(value) {
		return 0
	}
	return scoreRatio(e.cfg.Scoring, value, threshold)
}

// observedPrices returns the last valid share price and the maximum over
// all valid share prices of the model rows
func observedPrices(rows []contracts.FeatureRow) (last null.Float, maxPrice float64) {
	sorted := make([]contracts.FeatureRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FiscalDateEnding.Before(sorted[j].FiscalDateEnding)
	})

	for _, r := range sorted {
		p := r.SharePrice()
		if !p.Valid {
			continue
		}
		last = p
		if p.Float64 > maxPrice {
			maxPrice = p.Float64
		}
	}
	return last, maxPrice
}

// priceReturn is (prediction - price) / prediction in percent
func priceReturn(prediction float64, price null.Float) (float64, bool) {
	if !price.Valid || prediction == 0 || !contracts.Finite(prediction) {
		return 0, false
	}
	r := (prediction - price.Float64) / prediction * 100
	return r, contracts.Finite(r)
}

func sortedRecords(records []contracts.FundamentalsRecord) []contracts.FundamentalsRecord {
	out := make([]contracts.FundamentalsRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FiscalDateEnding.Before(out[j].FiscalDateEnding)
	})
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
