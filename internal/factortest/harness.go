package factortest

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/factors"
	"github.com/wonny/factorpool/internal/feed"
	"github.com/wonny/factorpool/internal/frame"
)

// minCrossSection is the fewest valid (factor, return) pairs a row needs
const minCrossSection = 3

// GroupCount resolves the number of factor groups from settings
func GroupCount(s contracts.TestSettings) int {
	if s.Groups > 0 {
		return s.Groups
	}
	if s.Cut > 0 && s.Cut < 1 {
		return int(math.Round(1 / s.Cut))
	}
	return 5
}

// GroupColumns returns the column names of the grouped-return table
func GroupColumns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("G%d", i+1)
	}
	return cols
}

// DefaultTest pairs factor(t-lag) with return(t) across instruments and
// computes the configured indicators
type DefaultTest struct {
	settings   contracts.TestSettings
	factor     *frame.Table
	returns    *frame.Table
	indicators map[contracts.Indicator]*frame.Table
}

// NewDefaultTest creates a harness over a factor panel and its return series.
// Row i of returns must hold the forward return of factor row i.
func NewDefaultTest(settings contracts.TestSettings, factor, returns *frame.Table) *DefaultTest {
	if len(settings.Indicators) == 0 {
		settings.Indicators = contracts.AllIndicators()
	}
	settings.Groups = GroupCount(settings)
	settings.Instruments = len(returns.Columns())

	return &DefaultTest{
		settings: settings,
		factor:   factor,
		returns:  returns,
	}
}

// Frequency implements contracts.Harness
func (d *DefaultTest) Frequency() contracts.Frequency {
	return d.settings.Frequency
}

// FactorTable implements contracts.Harness
func (d *DefaultTest) FactorTable() *frame.Table {
	return d.factor
}

// ReturnLen implements contracts.Harness
func (d *DefaultTest) ReturnLen() int {
	return d.returns.Len()
}

// Settings implements contracts.Harness
func (d *DefaultTest) Settings() contracts.TestSettings {
	return d.settings
}

// Indicators implements contracts.Harness; computed on first call
func (d *DefaultTest) Indicators() map[contracts.Indicator]*frame.Table {
	if d.indicators == nil {
		d.indicators = d.run()
	}
	return d.indicators
}

func (d *DefaultTest) wants(ind contracts.Indicator) bool {
	for _, i := range d.settings.Indicators {
		if i == ind {
			return true
		}
	}
	return false
}

func (d *DefaultTest) run() map[contracts.Indicator]*frame.Table {
	groups := d.settings.Groups
	groupCols := GroupColumns(groups)
	out := make(map[contracts.Indicator]*frame.Table, len(d.settings.Indicators))
	for _, ind := range d.settings.Indicators {
		if ind == contracts.IndicatorGroupReturn {
			out[ind] = frame.New(groupCols)
		} else {
			out[ind] = frame.NewSeries(string(ind))
		}
	}

	cols := d.returns.Columns()
	var prevTop map[string]struct{}

	n := d.returns.Len()
	if d.factor.Len() < n {
		n = d.factor.Len()
	}

	for i := 0; i < n; i++ {
		ts := d.returns.Time(i)

		var syms []string
		var fv, rv []float64
		for _, c := range cols {
			f, ok := d.factor.Value(i, c)
			if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
				continue
			}
			r, _ := d.returns.Value(i, c)
			if math.IsNaN(r) || math.IsInf(r, 0) {
				continue
			}
			syms = append(syms, c)
			fv = append(fv, f)
			rv = append(rv, r)
		}
		if len(fv) < minCrossSection || len(fv) < groups {
			continue
		}

		series := func(ind contracts.Indicator, v float64) {
			if d.wants(ind) {
				out[ind].AppendMap(ts, map[string]float64{string(ind): v})
			}
		}

		series(contracts.IndicatorIC, stat.Correlation(fv, rv, nil))
		series(contracts.IndicatorRankIC, stat.Correlation(Rank(fv), Rank(rv), nil))
		if d.wants(contracts.IndicatorBeta) {
			_, beta := stat.LinearRegression(fv, rv, nil, false)
			series(contracts.IndicatorBeta, beta)
		}

		members := assignGroups(syms, fv, groups)
		means := make([]float64, groups)
		ids := make([]float64, groups)
		byName := make(map[string]float64, len(rv))
		for k, s := range syms {
			byName[s] = rv[k]
		}
		for g, names := range members {
			vals := make([]float64, len(names))
			for k, s := range names {
				vals[k] = byName[s]
			}
			means[g] = stat.Mean(vals, nil)
			ids[g] = float64(g + 1)
		}

		if d.wants(contracts.IndicatorGroupReturn) {
			row := make(map[string]float64, groups)
			for g, c := range groupCols {
				row[c] = means[g]
			}
			out[contracts.IndicatorGroupReturn].AppendMap(ts, row)
		}
		series(contracts.IndicatorGroupIC, stat.Correlation(ids, means, nil))
		series(contracts.IndicatorTopBottom, means[groups-1]-means[0])

		top := make(map[string]struct{}, len(members[groups-1]))
		for _, s := range members[groups-1] {
			top[s] = struct{}{}
		}
		if prevTop != nil && len(top) > 0 {
			kept := 0
			for s := range top {
				if _, ok := prevTop[s]; ok {
					kept++
				}
			}
			turn := 1 - float64(kept)/float64(len(top))
			series(contracts.IndicatorTurnover, turn)
			series(contracts.IndicatorCost, turn*d.settings.Fee)
		}
		prevTop = top
	}

	return out
}

// assignGroups sorts instruments by factor value ascending and splits them into
// n groups of near-equal size; group n-1 holds the highest values
func assignGroups(syms []string, values []float64, n int) [][]string {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	groups := make([][]string, n)
	for rank, i := range idx {
		g := rank * n / len(idx)
		groups[g] = append(groups[g], syms[i])
	}
	return groups
}

// Rank returns 1-based ranks of xs; ties get their average rank
func Rank(xs []float64) []float64 {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	ranks := make([]float64, len(xs))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// Build computes the return series and factor panel of a resampled panel and
// wraps them in a DefaultTest
func Build(panel *feed.Panel, factor factors.Factor, settings contracts.TestSettings, benchmark string) *DefaultTest {
	returns := Returns(panel, settings.Lag, benchmark, settings.RelativeReturn)
	values := FactorPanel(panel, factor, benchmark)
	return NewDefaultTest(settings, values, returns)
}
