package updater

import (
	"fmt"
	"time"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/frame"
)

// Settings are the run parameters shared by every factor of one orchestrator
type Settings struct {
	Instruments    []string
	Universe       string
	Benchmark      string // overrides the universe benchmark
	Market         contracts.Market
	Start          time.Time
	End            time.Time // zero = up to the last available bar
	Frequencies    []contracts.Frequency
	RelativeReturn bool
	Fee            float64
	Lag            int
	Cut            float64
	Groups         int
	Indicators     []contracts.Indicator
	MergePolicy    frame.MergePolicy
}

// Validate checks the settings and fills defaults
func (s *Settings) Validate() error {
	if len(s.Instruments) == 0 {
		return fmt.Errorf("instruments are required")
	}
	if s.Market == "" {
		s.Market = contracts.MarketStock
	}
	if len(s.Frequencies) == 0 {
		s.Frequencies = contracts.DefaultTestFrequencies()
	}
	if s.Lag < 1 {
		return fmt.Errorf("lag must be >= 1, got %d", s.Lag)
	}
	if s.Fee < 0 {
		return fmt.Errorf("fee must be >= 0, got %f", s.Fee)
	}
	if s.Cut < 0 || s.Cut >= 1 {
		return fmt.Errorf("cut must be in [0, 1), got %f", s.Cut)
	}
	if !s.End.IsZero() && !s.Start.IsZero() && s.End.Before(s.Start) {
		return fmt.Errorf("end %s is before start %s", s.End, s.Start)
	}
	if s.MergePolicy == "" {
		s.MergePolicy = frame.PolicyStrict
	}
	if s.RelativeReturn && s.BenchmarkSymbol() == "" {
		return fmt.Errorf("relative returns need a benchmark or a known universe (got %q)", s.Universe)
	}
	return nil
}

// BenchmarkSymbol returns the explicit benchmark or the universe's one
func (s *Settings) BenchmarkSymbol() string {
	if s.Benchmark != "" {
		return s.Benchmark
	}
	b, _ := contracts.BenchmarkFor(s.Universe)
	return b
}

// testSettings returns the harness parameters for one frequency
func (s *Settings) testSettings(freq contracts.Frequency) contracts.TestSettings {
	return contracts.TestSettings{
		Frequency:      freq,
		Lag:            s.Lag,
		Groups:         s.Groups,
		Cut:            s.Cut,
		Fee:            s.Fee,
		RelativeReturn: s.RelativeReturn,
		Indicators:     s.Indicators,
	}
}
