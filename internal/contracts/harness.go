package contracts

import "github.com/wonny/factorpool/internal/frame"

// TestSettings are the parameters of one factor test run. They are persisted
// next to the tables so persisted reports can be rebuilt later.
type TestSettings struct {
	Frequency      Frequency   `yaml:"frequency" json:"frequency"`
	Lag            int         `yaml:"lag" json:"lag"`
	Groups         int         `yaml:"groups" json:"groups"`
	Cut            float64     `yaml:"cut" json:"cut"`
	Fee            float64     `yaml:"fee" json:"fee"`
	Instruments    int         `yaml:"instruments" json:"instruments"`
	RelativeReturn bool        `yaml:"relative_return" json:"relative_return"`
	Indicators     []Indicator `yaml:"indicators" json:"indicators"`
}

// Harness is a statistical test of one factor at one frequency
// ⭐ SSOT: the writer and the report emitter only see tests through this interface
type Harness interface {
	// Frequency returns the resample frequency under test
	Frequency() Frequency

	// FactorTable returns the computed factor panel (one column per instrument)
	FactorTable() *frame.Table

	// ReturnLen returns the number of rows of the return series
	ReturnLen() int

	// Indicators returns every requested statistic keyed by indicator
	Indicators() map[Indicator]*frame.Table

	// Settings returns the parameters of the run
	Settings() TestSettings
}
