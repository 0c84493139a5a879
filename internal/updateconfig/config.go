package updateconfig

import "github.com/wonny/factorpool/internal/contracts"

// Config is a factor run definition loaded from YAML
type Config struct {
	Meta     Meta     `yaml:"meta" json:"meta"`
	Universe Universe `yaml:"universe" json:"universe"`
	Period   Period   `yaml:"period" json:"period"`
	Test     Test     `yaml:"test" json:"test"`
	Update   Update   `yaml:"update" json:"update"`
}

// Meta identifies the run
type Meta struct {
	RunID       string `yaml:"run_id" json:"run_id"`
	Description string `yaml:"description" json:"description"`
	Timezone    string `yaml:"timezone" json:"timezone"`
}

// Universe selects the instruments
type Universe struct {
	Name        string           `yaml:"name" json:"name"`           // SZ50 / HS300 / ZZ500 or custom
	Benchmark   string           `yaml:"benchmark" json:"benchmark"` // overrides the universe benchmark
	Market      contracts.Market `yaml:"market" json:"market"`
	Instruments []string         `yaml:"instruments" json:"instruments"`
}

// Period is the date range of new-factor runs (YYYY-MM-DD)
type Period struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"` // empty = up to the last bar
}

// Test holds the factor test parameters
type Test struct {
	Frequencies    []contracts.Frequency `yaml:"frequencies" json:"frequencies"`
	RelativeReturn bool                  `yaml:"relative_return" json:"relative_return"`
	Fee            float64               `yaml:"fee" json:"fee"`
	Lag            int                   `yaml:"lag" json:"lag"`
	Cut            float64               `yaml:"cut" json:"cut"`
	Groups         int                   `yaml:"groups" json:"groups"`
	Indicators     []contracts.Indicator `yaml:"indicators" json:"indicators"`
}

// Update holds the incremental update parameters
type Update struct {
	LookbackDays int    `yaml:"lookback_days" json:"lookback_days"`
	MergePolicy  string `yaml:"merge_policy" json:"merge_policy"`
}
