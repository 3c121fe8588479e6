package response

import (
	"math"
	"sort"

	"github.com/wonny/stockrate/backend/internal/contracts"
)

// Payload is the external response mapping
type Payload map[string]interface{}

// Top-level payload keys
const (
	KeyFinancialData = "financial_data"
	KeyPrediction    = "prediction"
	KeyRating        = "rating"
	KeyError         = "Error"
)

// nullMarkers are textual values replaced by null on the wire
var nullMarkers = map[string]struct{}{
	"NaN":  {},
	"nan":  {},
	"N/A":  {},
	"None": {},
}

// ErrorPayload is the only shape returned for an unresolvable ticker
func ErrorPayload(msg string) Payload {
	return Payload{KeyError: msg}
}

// IsError reports whether p is an error payload
func (p Payload) IsError() bool {
	_, ok := p[KeyError]
	return ok
}

// Assemble joins raw data, aligned prices, predictions and the rating into
// one sanitized payload keyed by fiscal period (YYYY-MM)
// ⭐ SSOT: pipeline output shape
func Assemble(
	raw map[contracts.StatementType]contracts.RawTable,
	table *contracts.FeatureTable,
	predictions []contracts.PredictionRow,
	breakdown *contracts.RatingBreakdown,
) Payload {
	financial := make(map[string]interface{}, len(raw)+1)
	for st, t := range raw {
		if st == contracts.StatementPrices {
			continue
		}
		financial[string(st)] = map[string]interface{}(t)
	}

	prices := make(map[string]interface{})
	if table != nil {
		for _, row := range table.Rows {
			var v interface{}
			if p := row.SharePrice(); p.Valid {
				v = p.Float64
			}
			prices[row.FiscalDateEnding.Format(contracts.PeriodLayout)] = v
		}
	}
	financial[string(contracts.StatementPrices)] = prices

	forecast := make(map[string]interface{}, len(predictions))
	for _, p := range predictions {
		forecast[p.Date.Format(contracts.PeriodLayout)] = p.Price
	}

	payload := Payload{
		KeyFinancialData: financial,
		KeyPrediction:    forecast,
		KeyRating:        ratingMap(breakdown),
	}
	return Sanitize(payload).(Payload)
}

func ratingMap(r *contracts.RatingBreakdown) map[string]interface{} {
	if r == nil {
		return map[string]interface{}{}
	}

	category := func(cs contracts.CategoryScore) map[string]interface{} {
		scores := make(map[string]interface{}, len(cs.Scores))
		for k, v := range cs.Scores {
			scores[k] = v
		}
		return map[string]interface{}{
			"scores":  scores,
			"average": cs.Average,
		}
	}

	return map[string]interface{}{
		contracts.CategoryGrowth:          category(r.Growth),
		contracts.CategoryProfitability:   category(r.Profitability),
		contracts.CategoryFinancialHealth: category(r.FinancialHealth),
		"pricePredictionReturn":           r.PricePredictionReturn,
		"finalRate":                       r.FinalRate,
		"priceReturnGrade":                r.PriceReturnGrade,
	}
}

// Sanitize returns a copy of v where NaN/±Inf floats and the textual null
// markers are replaced by nil, recursively through maps and slices
func Sanitize(v interface{}) interface{} {
	switch t := v.(type) {
	case Payload:
		out := make(Payload, len(t))
		for k, e := range t {
			out[k] = Sanitize(e)
		}
		return out
	case contracts.RawTable:
		return sanitizeMap(t)
	case map[string]interface{}:
		return sanitizeMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = Sanitize(e)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = sanitizeMap(e)
		}
		return out
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return nil
		}
		return t
	case string:
		if _, ok := nullMarkers[t]; ok {
			return nil
		}
		return t
	}
	return v
}

func sanitizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, e := range m {
		out[k] = Sanitize(e)
	}
	return out
}

// Periods returns the sorted keys of a period-keyed section
func Periods(section map[string]interface{}) []string {
	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
