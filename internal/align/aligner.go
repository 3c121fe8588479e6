package align

import (
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/stockrate/backend/internal/contracts"
)

// DefaultMaxGap is the widest distance tolerated between a fiscal date and a price
const DefaultMaxGap = 40 * 24 * time.Hour

// NearestPrice returns the close nearest to target.
// The result is missing when the series is empty or the nearest entry is
// further than maxGap away. Equal distances resolve to the earliest date.
func NearestPrice(series contracts.PriceSeries, target time.Time, maxGap time.Duration) null.Float {
	best := -1
	var bestDist time.Duration

	for i, p := range series {
		d := absDuration(p.Date.Sub(target))
		if best < 0 || d < bestDist || (d == bestDist && p.Date.Before(series[best].Date)) {
			best = i
			bestDist = d
		}
	}

	if best < 0 || bestDist > maxGap {
		return null.Float{}
	}
	return contracts.FloatOf(series[best].Close)
}

// Attach fills SharePrice (at the fiscal date) and OneYearSharePrice
// (fiscal date + 365 days) on every record in place
func Attach(records []contracts.FundamentalsRecord, series contracts.PriceSeries, maxGap time.Duration) {
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}
	for i := range records {
		date := records[i].FiscalDateEnding
		records[i].SharePrice = NearestPrice(series, date, maxGap)
		records[i].OneYearSharePrice = NearestPrice(series, date.Add(contracts.OneYear), maxGap)
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
