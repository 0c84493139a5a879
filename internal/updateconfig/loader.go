package updateconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/wonny/factorpool/internal/frame"
	"github.com/wonny/factorpool/internal/updater"
)

const dateLayout = "2006-01-02"

// Load reads a YAML run file. Unknown fields are an error so typos never
// silently fall back to defaults.
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, data, nil
}

// Parse decodes and validates YAML run configuration
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Hash returns the SHA256 of the config's canonical JSON
func Hash(cfg *Config) (string, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Location returns the configured timezone (UTC when empty)
func (c *Config) Location() (*time.Location, error) {
	if c.Meta.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Meta.Timezone)
}

// Settings converts the config to orchestrator settings
func (c *Config) Settings() (updater.Settings, error) {
	loc, err := c.Location()
	if err != nil {
		return updater.Settings{}, err
	}

	s := updater.Settings{
		Instruments:    c.Universe.Instruments,
		Universe:       c.Universe.Name,
		Benchmark:      c.Universe.Benchmark,
		Market:         c.Universe.Market,
		Frequencies:    c.Test.Frequencies,
		RelativeReturn: c.Test.RelativeReturn,
		Fee:            c.Test.Fee,
		Lag:            c.Test.Lag,
		Cut:            c.Test.Cut,
		Groups:         c.Test.Groups,
		Indicators:     c.Test.Indicators,
		MergePolicy:    frame.ParseMergePolicy(c.Update.MergePolicy),
	}

	if c.Period.Start != "" {
		if s.Start, err = time.ParseInLocation(dateLayout, c.Period.Start, loc); err != nil {
			return s, err
		}
	}
	if c.Period.End != "" {
		end, err := time.ParseInLocation(dateLayout, c.Period.End, loc)
		if err != nil {
			return s, err
		}
		// end date is inclusive
		s.End = end.Add(24*time.Hour - time.Nanosecond)
	}
	return s, nil
}
