package alphavantage

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/stockrate/backend/internal/contracts"
	"github.com/wonny/stockrate/backend/internal/features"
)

// ErrMalformed is a reply missing its expected section
var ErrMalformed = errors.New("malformed provider reply")

const (
	keyQuarterlyReports = "quarterlyReports"
	keyMonthlyAdjusted  = "Monthly Adjusted Time Series"
	keyAdjustedClose    = "5. adjusted close"
)

// QuarterlyReports extracts the quarterly rows of a statement reply
func QuarterlyReports(raw contracts.RawTable) ([]contracts.Report, error) {
	section, ok := raw[keyQuarterlyReports].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: no %s", ErrMalformed, keyQuarterlyReports)
	}

	reports := make([]contracts.Report, 0, len(section))
	for _, item := range section {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		reports = append(reports, contracts.Report(m))
	}
	return reports, nil
}

// MonthlyAdjusted extracts the adjusted close series, sorted by date.
// Entries with an unparseable date or close are skipped.
func MonthlyAdjusted(raw contracts.RawTable) (contracts.PriceSeries, error) {
	section, ok := raw[keyMonthlyAdjusted].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: no %s", ErrMalformed, keyMonthlyAdjusted)
	}

	series := make(contracts.PriceSeries, 0, len(section))
	for date, v := range section {
		t, err := time.Parse(contracts.DateLayout, date)
		if err != nil {
			continue
		}
		fields, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		adj := features.ParseValue(fields[keyAdjustedClose])
		if !adj.Valid {
			continue
		}
		series = append(series, contracts.PricePoint{Date: t, Close: adj.Float64})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}

// ParseOverview extracts the company attributes
func ParseOverview(raw contracts.RawTable) (contracts.Overview, error) {
	symbol, _ := raw["Symbol"].(string)
	if symbol == "" {
		return contracts.Overview{}, fmt.Errorf("%w: no Symbol in overview", ErrMalformed)
	}
	sector, _ := raw["Sector"].(string)
	name, _ := raw["Name"].(string)
	return contracts.Overview{Symbol: symbol, Sector: sector, Name: name}, nil
}
