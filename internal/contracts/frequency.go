package contracts

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is a bar interval in seconds
// ⭐ SSOT: frequency labels used in folder and file names come from here
type Frequency int

const (
	Minute   Frequency = 60
	Minute5  Frequency = 5 * 60
	Minute15 Frequency = 15 * 60
	Minute30 Frequency = 30 * 60
	Hour     Frequency = 60 * 60
	Hour2    Frequency = 2 * 60 * 60
	Day      Frequency = 24 * 60 * 60
)

// tradingHoursPerDay is used to annualize intraday statistics
const tradingHoursPerDay = 4

// Label returns the folder/file label of the frequency (never contains '_')
func (f Frequency) Label() string {
	switch f {
	case Minute:
		return "1min"
	case Minute5:
		return "5min"
	case Minute15:
		return "15min"
	case Minute30:
		return "30min"
	case Hour:
		return "60min"
	case Hour2:
		return "120min"
	case Day:
		return "day"
	default:
		return fmt.Sprintf("%ds", int(f))
	}
}

// String implements fmt.Stringer
func (f Frequency) String() string {
	return f.Label()
}

// Duration returns the interval as a time.Duration
func (f Frequency) Duration() time.Duration {
	return time.Duration(f) * time.Second
}

// PeriodsPerYear returns how many bars of this frequency a trading year holds
func (f Frequency) PeriodsPerYear() float64 {
	if f >= Day {
		return 252 * float64(Day) / float64(f)
	}
	return 252 * float64(tradingHoursPerDay*3600) / float64(f)
}

// ParseFrequency accepts a label ("5min", "60min", "day") or an alias ("1h", "2h", "1d")
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1min", "1m":
		return Minute, nil
	case "5min", "5m":
		return Minute5, nil
	case "15min", "15m":
		return Minute15, nil
	case "30min", "30m":
		return Minute30, nil
	case "60min", "1h", "hour":
		return Hour, nil
	case "120min", "2h":
		return Hour2, nil
	case "day", "1d", "daily":
		return Day, nil
	default:
		return 0, fmt.Errorf("unknown frequency %q", s)
	}
}

// ParseFrequencies parses a list of labels
func ParseFrequencies(labels []string) ([]Frequency, error) {
	out := make([]Frequency, 0, len(labels))
	for _, l := range labels {
		f, err := ParseFrequency(l)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// DefaultTestFrequencies are the resample frequencies tested when none are configured
func DefaultTestFrequencies() []Frequency {
	return []Frequency{Minute5, Minute30, Hour, Hour2}
}

// MarshalText encodes the frequency as its label
func (f Frequency) MarshalText() ([]byte, error) {
	return []byte(f.Label()), nil
}

// UnmarshalText decodes a label or alias
func (f *Frequency) UnmarshalText(text []byte) error {
	parsed, err := ParseFrequency(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
