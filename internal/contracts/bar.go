package contracts

import "time"

// Market identifies the bar data set
type Market string

const (
	MarketStock   Market = "stock"
	MarketFutures Market = "futures"
)

// Bar is one OHLCV bar of one instrument
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// benchmarks maps a universe name to the index futures contract used for
// relative returns
var benchmarks = map[string]string{
	"SZ50":  "IH.CCFX",
	"HS300": "IF.CCFX",
	"ZZ500": "IC.CCFX",
}

// BenchmarkFor returns the benchmark instrument of a universe
func BenchmarkFor(universe string) (string, bool) {
	b, ok := benchmarks[universe]
	return b, ok
}
