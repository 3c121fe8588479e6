package response

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockrate/backend/internal/contracts"
)

func TestErrorPayload(t *testing.T) {
	p := ErrorPayload("Information about XXXX not available")

	assert.Equal(t, Payload{"Error": "Information about XXXX not available"}, p)
	assert.True(t, p.IsError())
	assert.NotContains(t, p, KeyFinancialData)
	assert.NotContains(t, p, KeyPrediction)
	assert.NotContains(t, p, KeyRating)
}

func TestSanitize(t *testing.T) {
	in := map[string]interface{}{
		"a": math.NaN(),
		"b": math.Inf(-1),
		"c": "N/A",
		"d": map[string]interface{}{
			"e": "None",
			"f": []interface{}{"nan", 1.5, "NaN", map[string]interface{}{"g": math.Inf(1)}},
		},
		"h": "kept",
		"i": 3,
	}

	out := Sanitize(in).(map[string]interface{})

	assert.Nil(t, out["a"])
	assert.Nil(t, out["b"])
	assert.Nil(t, out["c"])
	nested := out["d"].(map[string]interface{})
	assert.Nil(t, nested["e"])
	list := nested["f"].([]interface{})
	assert.Nil(t, list[0])
	assert.Equal(t, 1.5, list[1])
	assert.Nil(t, list[2])
	assert.Nil(t, list[3].(map[string]interface{})["g"])
	assert.Equal(t, "kept", out["h"])
	assert.Equal(t, 3, out["i"])

	assert.True(t, math.IsNaN(in["a"].(float64)), "input is not mutated")
}

func TestAssemble(t *testing.T) {
	q1 := time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC)
	q2 := time.Date(2023, time.June, 30, 0, 0, 0, 0, time.UTC)

	price := func(v null.Float) []null.Float {
		values := make([]null.Float, len(contracts.FeatureColumns))
		for i, c := range contracts.FeatureColumns {
			if c == contracts.ColSharePrice {
				values[i] = v
			}
		}
		return values
	}

	raw := map[contracts.StatementType]contracts.RawTable{
		contracts.StatementPrices:   {"Monthly Adjusted Time Series": map[string]interface{}{}},
		contracts.StatementOverview: {"Symbol": "IBM", "DividendYield": "None"},
		contracts.StatementIncome:   {"quarterlyReports": []interface{}{map[string]interface{}{"netIncome": "N/A"}}},
	}
	table := &contracts.FeatureTable{Rows: []contracts.FeatureRow{
		{FiscalDateEnding: q1, Values: price(null.FloatFrom(140))},
		{FiscalDateEnding: q2, Values: price(null.Float{})},
	}}
	preds := []contracts.PredictionRow{{Date: q2.Add(contracts.OneYear), Price: 150.5}}
	breakdown := &contracts.RatingBreakdown{
		Growth:    contracts.CategoryScore{Scores: map[string]int{"totalRevenue": 12}, Average: 12},
		FinalRate: 40,
	}

	p := Assemble(raw, table, preds, breakdown)

	require.Len(t, p, 3)
	financial := p[KeyFinancialData].(map[string]interface{})

	series := financial["TIME_SERIES_MONTHLY_ADJUSTED"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"2023-03": 140.0, "2023-06": nil}, series)
	assert.Equal(t, []string{"2023-03", "2023-06"}, Periods(series))

	overview := financial["OVERVIEW"].(map[string]interface{})
	assert.Equal(t, "IBM", overview["Symbol"])
	assert.Nil(t, overview["DividendYield"])

	reports := financial["INCOME_STATEMENT"].(map[string]interface{})["quarterlyReports"].([]interface{})
	assert.Nil(t, reports[0].(map[string]interface{})["netIncome"])

	assert.Equal(t, map[string]interface{}{"2024-06": 150.5}, p[KeyPrediction])

	rating := p[KeyRating].(map[string]interface{})
	assert.Equal(t, 40, rating["finalRate"])
	growth := rating["growth"].(map[string]interface{})
	assert.Equal(t, 12, growth["scores"].(map[string]interface{})["totalRevenue"])

	_, err := json.Marshal(p)
	assert.NoError(t, err)
}
