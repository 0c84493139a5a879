package updateconfig

import (
	"fmt"
	"time"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/frame"
)

// ValidationError names the offending field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks required fields and value ranges
func Validate(cfg *Config) error {
	if cfg.Meta.RunID == "" {
		return ValidationError{"meta.run_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	if len(cfg.Universe.Instruments) == 0 {
		return ValidationError{"universe.instruments", "at least one instrument required"}
	}
	switch cfg.Universe.Market {
	case "", contracts.MarketStock, contracts.MarketFutures:
	default:
		return ValidationError{"universe.market", fmt.Sprintf("unknown market %q", cfg.Universe.Market)}
	}
	if cfg.Test.RelativeReturn && cfg.Universe.Benchmark == "" {
		if _, ok := contracts.BenchmarkFor(cfg.Universe.Name); !ok {
			return ValidationError{"universe.benchmark", "required for relative returns on a custom universe"}
		}
	}

	var start, end time.Time
	var err error
	if cfg.Period.Start != "" {
		if start, err = time.Parse(dateLayout, cfg.Period.Start); err != nil {
			return ValidationError{"period.start", "must be YYYY-MM-DD"}
		}
	}
	if cfg.Period.End != "" {
		if end, err = time.Parse(dateLayout, cfg.Period.End); err != nil {
			return ValidationError{"period.end", "must be YYYY-MM-DD"}
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return ValidationError{"period", "end must not be before start"}
	}

	if cfg.Test.Lag < 1 {
		return ValidationError{"test.lag", "must be >= 1"}
	}
	if cfg.Test.Fee < 0 {
		return ValidationError{"test.fee", "must be >= 0"}
	}
	if cfg.Test.Cut < 0 || cfg.Test.Cut >= 1 {
		return ValidationError{"test.cut", "must be in [0, 1)"}
	}
	if cfg.Test.Groups < 0 {
		return ValidationError{"test.groups", "must be >= 0"}
	}
	for _, ind := range cfg.Test.Indicators {
		if !contracts.IsValidIndicator(string(ind)) {
			return ValidationError{"test.indicators", fmt.Sprintf("unknown indicator %q", ind)}
		}
	}

	if cfg.Update.LookbackDays < 0 {
		return ValidationError{"update.lookback_days", "must be >= 0"}
	}
	switch frame.MergePolicy(cfg.Update.MergePolicy) {
	case "", frame.PolicyStrict, frame.PolicyForwardExtend:
	default:
		return ValidationError{"update.merge_policy", fmt.Sprintf("unknown policy %q", cfg.Update.MergePolicy)}
	}

	return nil
}
