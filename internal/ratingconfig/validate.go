package ratingconfig

import (
	"fmt"
	"sort"
)

// ValidationError is a rejected config field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	if cfg.Meta.ConfigID == "" {
		return ValidationError{"meta.config_id", "required"}
	}

	if cfg.Alignment.MaxGapDays <= 0 {
		return ValidationError{"alignment.max_gap_days", "must be > 0"}
	}
	if cfg.Features.StaleLabelDays <= 0 {
		return ValidationError{"features.stale_label_days", "must be > 0"}
	}

	// ScoreForRatio divides by every threshold
	thresholds := map[string]float64{
		"ratios.roe":               cfg.Ratios.ROE,
		"ratios.roa":               cfg.Ratios.ROA,
		"ratios.current_ratio":     cfg.Ratios.CurrentRatio,
		"ratios.debt_equity_ratio": cfg.Ratios.DebtEquityRatio,
		"ratios.book_value":        cfg.Ratios.BookValue,
	}
	for field, v := range thresholds {
		if v <= 0 {
			return ValidationError{field, "must be > 0"}
		}
	}

	if cfg.Scoring.SevereCutoff >= 0 {
		return ValidationError{"scoring.severe_cutoff", "must be < 0"}
	}
	if cfg.Scoring.SevereMultiplier <= 0 || cfg.Scoring.LinearMultiplier <= 0 {
		return ValidationError{"scoring", "multipliers must be > 0"}
	}

	if cfg.Growth.Years < 1 {
		return ValidationError{"growth.years", "must be >= 1"}
	}
	if cfg.Growth.Amplification <= 0 {
		return ValidationError{"growth.amplification", "must be > 0"}
	}
	if cfg.Growth.OutlierFactor <= 0 {
		return ValidationError{"growth.outlier_factor", "must be > 0"}
	}
	if cfg.Growth.MinKeptRatio < 0 {
		return ValidationError{"growth.min_kept_ratio", "must be >= 0"}
	}

	if len(cfg.Grade.Cutoffs) != 4 {
		return ValidationError{"grade.cutoffs", "must have 4 values (grades 1..5)"}
	}
	if !sort.Float64sAreSorted(cfg.Grade.Cutoffs) {
		return ValidationError{"grade.cutoffs", "must be ascending"}
	}

	return nil
}
