package features

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/stockrate/backend/internal/contracts"
)

const fiscalDateKey = "fiscalDateEnding"

// Merge outer-joins the statement tables on fiscalDateEnding.
// Tables are visited in contracts.FundamentalStatements order and the first
// table carrying a column wins. Rows without a parseable date are skipped.
// The result is sorted ascending by fiscal date.
func Merge(statements map[contracts.StatementType][]contracts.Report) []contracts.FundamentalsRecord {
	byDate := make(map[time.Time]*contracts.FundamentalsRecord)

	for _, st := range contracts.FundamentalStatements {
		for _, report := range statements[st] {
			date, ok := parseDate(report[fiscalDateKey])
			if !ok {
				continue
			}

			rec, exists := byDate[date]
			if !exists {
				rec = &contracts.FundamentalsRecord{
					FiscalDateEnding: date,
					Items:            make(map[string]null.Float, len(report)),
				}
				byDate[date] = rec
			}

			for column, raw := range report {
				if column == fiscalDateKey {
					continue
				}
				if _, seen := rec.Items[column]; seen {
					continue
				}
				rec.Items[column] = ParseValue(raw)
			}
		}
	}

	records := make([]contracts.FundamentalsRecord, 0, len(byDate))
	for _, rec := range byDate {
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].FiscalDateEnding.Before(records[j].FiscalDateEnding)
	})
	return records
}

// ParseValue converts a provider cell to a number.
// "None", empty strings, non-numeric text and non-finite numbers are missing.
func ParseValue(raw interface{}) null.Float {
	switch v := raw.(type) {
	case nil:
		return null.Float{}
	case float64:
		return contracts.FloatOf(v)
	case int:
		return null.FloatFrom(float64(v))
	case int64:
		return null.FloatFrom(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return null.Float{}
		}
		return contracts.FloatOf(f)
	case string:
		s := strings.TrimSpace(v)
		if s == "" || strings.EqualFold(s, "none") {
			return null.Float{}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return null.Float{}
		}
		return contracts.FloatOf(f)
	}
	return null.Float{}
}

func parseDate(raw interface{}) (time.Time, bool) {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(contracts.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
