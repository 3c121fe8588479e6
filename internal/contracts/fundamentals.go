package contracts

import (
	"math"
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// StatementType names a provider dataset
type StatementType string

const (
	StatementPrices   StatementType = "TIME_SERIES_MONTHLY_ADJUSTED"
	StatementIncome   StatementType = "INCOME_STATEMENT"
	StatementBalance  StatementType = "BALANCE_SHEET"
	StatementCashFlow StatementType = "CASH_FLOW"
	StatementOverview StatementType = "OVERVIEW"
)

// AllStatements is the download order used by the pipeline
var AllStatements = []StatementType{
	StatementPrices,
	StatementIncome,
	StatementBalance,
	StatementCashFlow,
	StatementOverview,
}

// FundamentalStatements are merged, in this order, into one record per quarter.
// Order matters: the first table carrying a column wins.
var FundamentalStatements = []StatementType{
	StatementIncome,
	StatementBalance,
	StatementCashFlow,
}

// DateLayout is the provider's date format
const DateLayout = "2006-01-02"

// PeriodLayout keys the output payload by fiscal period
const PeriodLayout = "2006-01"

// OneYear is the label horizon (fiscal date + 365 days)
const OneYear = 365 * 24 * time.Hour

// Report is one quarterly statement row as delivered by the provider:
// line item name → value (numeric strings, "None", numbers or null)
type Report map[string]interface{}

// PricePoint is one adjusted monthly close
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is ordered ascending by date
type PriceSeries []PricePoint

// Sorted returns a copy ordered ascending by date
func (s PriceSeries) Sorted() PriceSeries {
	out := make(PriceSeries, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Overview carries the company attributes attached to every record
type Overview struct {
	Symbol string `json:"symbol"`
	Sector string `json:"sector"`
	Name   string `json:"name"`
}

// FundamentalsRecord is one fiscal quarter of merged statement line items.
// Items also receives the derived ratios.
type FundamentalsRecord struct {
	FiscalDateEnding  time.Time
	Items             map[string]null.Float
	Sector            string
	Symbol            string
	SharePrice        null.Float
	OneYearSharePrice null.Float
}

// Get returns a line item, derived ratio or price field by column name
func (r FundamentalsRecord) Get(column string) null.Float {
	switch column {
	case ColSharePrice:
		return r.SharePrice
	case ColOneYearSharePrice:
		return r.OneYearSharePrice
	}
	return r.Items[column]
}

// Column names shared by the deriver, the feature schema and the rating engine
const (
	ColSharePrice        = "sharePrice"
	ColOneYearSharePrice = "1y_sharePrice"
	ColMeanSectorPrice   = "meanSectorPrice"

	ColTotalRevenue      = "totalRevenue"
	ColEBITDA            = "ebitda"
	ColNetIncome         = "netIncome"
	ColDividendPayout    = "dividendPayout"
	ColCommonStock       = "commonStock"
	ColTotalAssets       = "totalAssets"
	ColTotalLiabilities  = "totalLiabilities"
	ColShareholderEquity = "totalShareholderEquity"
	ColSharesOutstanding = "commonStockSharesOutstanding"
	ColCurrentAssets     = "totalCurrentAssets"
	ColCurrentLiab       = "totalCurrentLiabilities"
	ColOperatingCashflow = "operatingCashflow"
	ColCapex             = "capitalExpenditures"

	ColEPS             = "EPS"
	ColPE              = "P/E"
	ColROE             = "ROE"
	ColROA             = "ROA"
	ColBookValue       = "bookValue"
	ColCurrentRatio    = "currentRatio"
	ColDebtEquityRatio = "debtEquityRatio"
	ColFreeCashFlow    = "freeCashFlow"
)

// FeatureColumns is the fixed, ordered numeric schema fed to the regressor.
// fiscalDateEnding, sector, symbol and the label travel beside it in FeatureRow.
var FeatureColumns = []string{
	ColTotalAssets,
	ColCommonStock,
	"retainedEarnings",
	ColShareholderEquity,
	"incomeTaxExpense",
	ColNetIncome,
	"changeInCashAndCashEquivalents",
	ColTotalLiabilities,
	"totalNonCurrentAssets",
	ColSharePrice,
	"cashAndCashEquivalentsAtCarryingValue",
	"propertyPlantEquipment",
	ColPE,
	ColROE,
	ColROA,
	ColBookValue,
	ColMeanSectorPrice,
}

var featureIndex = func() map[string]int {
	m := make(map[string]int, len(FeatureColumns))
	for i, c := range FeatureColumns {
		m[c] = i
	}
	return m
}()

// FeatureRow is a record reindexed to FeatureColumns
type FeatureRow struct {
	FiscalDateEnding time.Time
	Sector           string
	Symbol           string
	Values           []null.Float
	Label            null.Float // 1y_sharePrice
}

// Get returns the named feature, missing if the column is not in the schema
func (r FeatureRow) Get(column string) null.Float {
	i, ok := featureIndex[column]
	if !ok || i >= len(r.Values) {
		return null.Float{}
	}
	return r.Values[i]
}

// SharePrice is shorthand for Get(ColSharePrice)
func (r FeatureRow) SharePrice() null.Float {
	return r.Get(ColSharePrice)
}

// Vector returns the features as float64 with NaN for missing values,
// the representation the Regressor contract expects.
func (r FeatureRow) Vector() []float64 {
	out := make([]float64, len(r.Values))
	for i, v := range r.Values {
		if v.Valid {
			out[i] = v.Float64
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// FeatureTable is the Feature Deriver output: the full merged history
// (Records, used for growth and ratio scoring) and the model input (Rows).
// Both are ordered ascending by fiscal date.
type FeatureTable struct {
	Records []FundamentalsRecord
	Rows    []FeatureRow
}

// PredictionRow is the forecast price for FiscalDateEnding + 1 year
type PredictionRow struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// Finite reports whether v can be stored as a present value
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FloatOf wraps v, mapping NaN and ±Inf to the missing marker
func FloatOf(v float64) null.Float {
	if !Finite(v) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}
