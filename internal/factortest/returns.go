package factortest

import (
	"math"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/factors"
	"github.com/wonny/factorpool/internal/feed"
	"github.com/wonny/factorpool/internal/frame"
)

// universe returns the panel instruments without the benchmark
func universe(panel *feed.Panel, benchmark string) []string {
	var out []string
	for _, sym := range panel.Instruments() {
		if sym != benchmark {
			out = append(out, sym)
		}
	}
	return out
}

// Returns computes lag-bar returns close_t/close_{t-lag}-1 per instrument.
// Row k of the result is indexed by the time of panel row k+lag. When
// relative is set the benchmark's return over the same interval is
// subtracted and the benchmark column is dropped.
func Returns(panel *feed.Panel, lag int, benchmark string, relative bool) *frame.Table {
	syms := universe(panel, benchmark)
	out := frame.New(syms)
	if lag < 1 {
		return out
	}

	rows := panel.Rows()
	for k := lag; k < len(rows); k++ {
		prev, cur := rows[k-lag].Bars, rows[k].Bars

		bench := math.NaN()
		if relative {
			bench = barReturn(prev, cur, benchmark)
		}

		vals := make(map[string]float64, len(syms))
		for _, sym := range syms {
			r := barReturn(prev, cur, sym)
			if relative {
				r -= bench
			}
			vals[sym] = r
		}
		out.AppendMap(rows[k].Time, vals)
	}
	return out
}

func barReturn(prev, cur map[string]contracts.Bar, sym string) float64 {
	p0, ok0 := prev[sym]
	p1, ok1 := cur[sym]
	if !ok0 || !ok1 || p0.Close == 0 {
		return math.NaN()
	}
	return p1.Close/p0.Close - 1
}

// FactorPanel evaluates factor for every instrument at every panel row.
// Values are NaN until an instrument has Window bars of history.
func FactorPanel(panel *feed.Panel, factor factors.Factor, benchmark string) *frame.Table {
	syms := universe(panel, benchmark)
	out := frame.New(syms)

	window := factor.Window()
	if window < 1 {
		window = 1
	}
	hist := make(map[string][]contracts.Bar, len(syms))

	for _, row := range panel.Rows() {
		vals := make(map[string]float64, len(syms))
		for _, sym := range syms {
			bar, ok := row.Bars[sym]
			if !ok {
				continue
			}
			h := append(hist[sym], bar)
			if len(h) > window {
				h = h[len(h)-window:]
			}
			hist[sym] = h
			vals[sym] = factor.Compute(h)
		}
		out.AppendMap(row.Time, vals)
	}
	return out
}
