package ratingconfig

// Config holds every tunable of the rating pipeline.
// Defaults reproduce the canonical thresholds; a YAML file may override any subset.
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Alignment Alignment `yaml:"alignment" json:"alignment"`
	Features  Features  `yaml:"features" json:"features"`
	Ratios    Ratios    `yaml:"ratios" json:"ratios"`
	Scoring   Scoring   `yaml:"scoring" json:"scoring"`
	Growth    Growth    `yaml:"growth" json:"growth"`
	Grade     Grade     `yaml:"grade" json:"grade"`
}

// Meta identifies the config in snapshots
type Meta struct {
	ConfigID string `yaml:"config_id" json:"config_id" default:"default"`
	Version  string `yaml:"version" json:"version" default:"1"`
}

// Alignment controls the nearest-date price join
type Alignment struct {
	MaxGapDays int `yaml:"max_gap_days" json:"max_gap_days" default:"40"`
}

// Features controls the deriver's stale-row filter
type Features struct {
	// rows older than this without a label are dropped
	StaleLabelDays int `yaml:"stale_label_days" json:"stale_label_days" default:"365"`
}

// Ratios are the healthy-value thresholds (meeting one scores 100)
type Ratios struct {
	ROE             float64 `yaml:"roe" json:"roe" default:"0.15"`
	ROA             float64 `yaml:"roa" json:"roa" default:"0.05"`
	CurrentRatio    float64 `yaml:"current_ratio" json:"current_ratio" default:"1.0"`
	DebtEquityRatio float64 `yaml:"debt_equity_ratio" json:"debt_equity_ratio" default:"1.0"`
	BookValue       float64 `yaml:"book_value" json:"book_value" default:"1.0"`
}

// Scoring shapes ScoreForRatio
type Scoring struct {
	SevereCutoff     float64 `yaml:"severe_cutoff" json:"severe_cutoff" default:"-3"`
	SevereMultiplier float64 `yaml:"severe_multiplier" json:"severe_multiplier" default:"10"`
	LinearMultiplier float64 `yaml:"linear_multiplier" json:"linear_multiplier" default:"100"`
}

// Growth shapes the geometric mean growth rate
type Growth struct {
	Years         int     `yaml:"years" json:"years" default:"5"`
	Amplification float64 `yaml:"amplification" json:"amplification" default:"10"`
	OutlierFactor float64 `yaml:"outlier_factor" json:"outlier_factor" default:"5"`
	MinKeptRatio  float64 `yaml:"min_kept_ratio" json:"min_kept_ratio" default:"3"`
}

// Grade maps the expected price return (%) to a 1..5 grade.
// Cutoffs are ascending; a return below Cutoffs[0] is grade 1, at or above
// the last cutoff is grade len(Cutoffs)+1.
type Grade struct {
	Cutoffs []float64 `yaml:"cutoffs" json:"cutoffs" default:"[0,5,10,15]"`
}

// Threshold returns the ratio threshold for a rating attribute
func (r Ratios) Threshold(attribute string) (float64, bool) {
	switch attribute {
	case "ROE":
		return r.ROE, true
	case "ROA":
		return r.ROA, true
	case "currentRatio":
		return r.CurrentRatio, true
	case "debtEquityRatio":
		return r.DebtEquityRatio, true
	case "bookValue":
		return r.BookValue, true
	}
	return 0, false
}

// For returns the grade of a price return in percent
func (g Grade) For(returnPct float64) int {
	grade := 1
	for _, c := range g.Cutoffs {
		if returnPct >= c {
			grade++
		}
	}
	return grade
}
