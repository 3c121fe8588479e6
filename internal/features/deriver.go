package features

import (
	"errors"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/stockrate/backend/internal/align"
	"github.com/wonny/stockrate/backend/internal/contracts"
)

// ErrNoFundamentals is returned when the statements yield no dated record
var ErrNoFundamentals = errors.New("no fundamentals")

// Input is everything the deriver needs for one ticker
type Input struct {
	Statements map[contracts.StatementType][]contracts.Report
	Prices     contracts.PriceSeries
	Overview   contracts.Overview
}

// Deriver turns statements and prices into the feature table
type Deriver struct {
	maxGap     time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

// Option configures a Deriver
type Option func(*Deriver)

// WithMaxGap sets the price alignment tolerance
func WithMaxGap(d time.Duration) Option {
	return func(dr *Deriver) { dr.maxGap = d }
}

// WithStaleAfter sets the age after which unlabeled rows are dropped
func WithStaleAfter(d time.Duration) Option {
	return func(dr *Deriver) { dr.staleAfter = d }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(dr *Deriver) { dr.now = now }
}

// NewDeriver creates a Deriver with the canonical tolerances
func NewDeriver(opts ...Option) *Deriver {
	d := &Deriver{
		maxGap:     align.DefaultMaxGap,
		staleAfter: contracts.OneYear,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Derive builds the feature table.
// ⭐ SSOT: statements + prices → FeatureTable
func (d *Deriver) Derive(in Input) (*contracts.FeatureTable, error) {
	records := Merge(in.Statements)
	if len(records) == 0 {
		return nil, ErrNoFundamentals
	}

	for i := range records {
		records[i].Sector = in.Overview.Sector
		records[i].Symbol = in.Overview.Symbol
	}

	align.Attach(records, in.Prices, d.maxGap)

	for i := range records {
		ComputeRatios(&records[i])
	}
	MeanSectorPrice(records)

	cutoff := d.now().Add(-d.staleAfter)
	rows := make([]contracts.FeatureRow, 0, len(records))
	for _, rec := range records {
		row := Reindex(rec)
		// the label of a recent quarter is not observable yet
		if !row.Label.Valid && rec.FiscalDateEnding.Before(cutoff) {
			continue
		}
		rows = append(rows, row)
	}

	return &contracts.FeatureTable{Records: records, Rows: rows}, nil
}

// Reindex projects a record onto contracts.FeatureColumns.
// Absent columns and non-finite values become the missing marker.
func Reindex(rec contracts.FundamentalsRecord) contracts.FeatureRow {
	values := make([]null.Float, len(contracts.FeatureColumns))
	for i, column := range contracts.FeatureColumns {
		values[i] = finite(rec.Get(column))
	}

	return contracts.FeatureRow{
		FiscalDateEnding: rec.FiscalDateEnding,
		Sector:           rec.Sector,
		Symbol:           rec.Symbol,
		Values:           values,
		Label:            finite(rec.OneYearSharePrice),
	}
}

func finite(v null.Float) null.Float {
	if !v.Valid {
		return v
	}
	return contracts.FloatOf(v.Float64)
}
