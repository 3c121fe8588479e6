package features

import (
	"github.com/guregu/null/v6"

	"github.com/wonny/stockrate/backend/internal/contracts"
)

// div returns a/b, missing when either operand is missing or b is zero
func div(a, b null.Float) null.Float {
	if !a.Valid || !b.Valid || b.Float64 == 0 {
		return null.Float{}
	}
	return contracts.FloatOf(a.Float64 / b.Float64)
}

func sub(a, b null.Float) null.Float {
	if !a.Valid || !b.Valid {
		return null.Float{}
	}
	return contracts.FloatOf(a.Float64 - b.Float64)
}

// ComputeRatios writes the derived ratios into rec.Items.
// Every ratio is either a finite number or missing; nothing panics.
// EPS must be computed before P/E.
func ComputeRatios(rec *contracts.FundamentalsRecord) {
	if rec.Items == nil {
		rec.Items = make(map[string]null.Float)
	}
	get := rec.Get

	rec.Items[contracts.ColEPS] = div(get(contracts.ColNetIncome), get(contracts.ColCommonStock))
	rec.Items[contracts.ColPE] = div(get(contracts.ColSharePrice), get(contracts.ColEPS))
	rec.Items[contracts.ColROE] = div(get(contracts.ColNetIncome), get(contracts.ColShareholderEquity))
	rec.Items[contracts.ColROA] = div(get(contracts.ColNetIncome), get(contracts.ColTotalAssets))
	rec.Items[contracts.ColBookValue] = div(
		sub(get(contracts.ColTotalAssets), get(contracts.ColTotalLiabilities)),
		get(contracts.ColSharesOutstanding),
	)
	rec.Items[contracts.ColCurrentRatio] = div(get(contracts.ColCurrentAssets), get(contracts.ColCurrentLiab))
	rec.Items[contracts.ColDebtEquityRatio] = div(get(contracts.ColTotalLiabilities), get(contracts.ColShareholderEquity))
	rec.Items[contracts.ColFreeCashFlow] = sub(get(contracts.ColOperatingCashflow), get(contracts.ColCapex))
}

type sectorYear struct {
	sector string
	year   int
}

// MeanSectorPrice sets meanSectorPrice on every record to the mean valid
// sharePrice of its (sector, calendar year) group. Groups without any price
// get the missing marker.
func MeanSectorPrice(records []contracts.FundamentalsRecord) {
	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[sectorYear]*acc)

	for _, rec := range records {
		key := sectorYear{rec.Sector, rec.FiscalDateEnding.Year()}
		a, ok := groups[key]
		if !ok {
			a = &acc{}
			groups[key] = a
		}
		if rec.SharePrice.Valid {
			a.sum += rec.SharePrice.Float64
			a.count++
		}
	}

	for i := range records {
		if records[i].Items == nil {
			records[i].Items = make(map[string]null.Float)
		}
		a := groups[sectorYear{records[i].Sector, records[i].FiscalDateEnding.Year()}]
		if a.count == 0 {
			records[i].Items[contracts.ColMeanSectorPrice] = null.Float{}
			continue
		}
		records[i].Items[contracts.ColMeanSectorPrice] = null.FloatFrom(a.sum / float64(a.count))
	}
}
