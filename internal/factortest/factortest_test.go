package factortest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/factors"
	"github.com/wonny/factorpool/internal/feed"
	"github.com/wonny/factorpool/internal/frame"
)

func ts(i int) time.Time {
	return time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC).Add(time.Duration(i) * 5 * time.Minute)
}

// panelOf builds a panel from per-instrument close series
func panelOf(closes map[string][]float64) *feed.Panel {
	b := feed.NewPanelBuilder()
	for sym, cs := range closes {
		for i, c := range cs {
			b.Add(sym, contracts.Bar{Time: ts(i), Open: c, High: c, Low: c, Close: c, Volume: 1})
		}
	}
	return b.Build()
}

func TestReturns_Absolute(t *testing.T) {
	p := panelOf(map[string][]float64{
		"A": {10, 11, 12.1},
		"B": {20, 10, 10},
	})

	r := Returns(p, 1, "", false)
	require.Equal(t, 2, r.Len())
	assert.Equal(t, ts(1), r.First())

	a, _ := r.Value(0, "A")
	b, _ := r.Value(0, "B")
	assert.InDelta(t, 0.1, a, 1e-12)
	assert.InDelta(t, -0.5, b, 1e-12)
}

func TestReturns_RelativeDropsBenchmark(t *testing.T) {
	p := panelOf(map[string][]float64{
		"A":       {10, 11},
		"IF.CCFX": {100, 105},
	})

	r := Returns(p, 1, "IF.CCFX", true)
	assert.Equal(t, []string{"A"}, r.Columns())

	a, _ := r.Value(0, "A")
	assert.InDelta(t, 0.05, a, 1e-12)
}

func TestReturns_LagLengths(t *testing.T) {
	tests := []struct {
		bars int
		lag  int
		want int
	}{
		{3, 1, 2},
		{4, 1, 3},
		{5, 2, 3},
		{1, 1, 0},
	}

	for _, tt := range tests {
		cs := make([]float64, tt.bars)
		for i := range cs {
			cs[i] = float64(10 + i)
		}
		r := Returns(panelOf(map[string][]float64{"A": cs}), tt.lag, "", false)
		assert.Equal(t, tt.want, r.Len(), "bars=%d lag=%d", tt.bars, tt.lag)
	}
}

func TestFactorPanel_WarmUp(t *testing.T) {
	p := panelOf(map[string][]float64{"A": {10, 11, 12, 13}})

	fp := FactorPanel(p, &factors.Momentum{Lookback: 2}, "")
	require.Equal(t, 4, fp.Len())

	v0, _ := fp.Value(0, "A")
	v1, _ := fp.Value(1, "A")
	v3, _ := fp.Value(3, "A")
	assert.True(t, math.IsNaN(v0))
	assert.True(t, math.IsNaN(v1))
	assert.InDelta(t, 13.0/11.0-1, v3, 1e-12)
}

func TestRank(t *testing.T) {
	assert.Equal(t, []float64{2, 1, 3}, Rank([]float64{5, 1, 9}))
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, Rank([]float64{1, 3, 3, 7}))
}

func TestGroupCount(t *testing.T) {
	assert.Equal(t, 3, GroupCount(contracts.TestSettings{Groups: 3, Cut: 0.2}))
	assert.Equal(t, 5, GroupCount(contracts.TestSettings{Cut: 0.2}))
	assert.Equal(t, 10, GroupCount(contracts.TestSettings{Cut: 0.1}))
	assert.Equal(t, 5, GroupCount(contracts.TestSettings{}))
}

func TestDefaultTest_PerfectFactor(t *testing.T) {
	// factor equals the realized forward return, so IC and rankIC are 1
	syms := []string{"A", "B", "C", "D"}
	factor := frame.New(syms)
	returns := frame.New(syms)
	for i := 0; i < 3; i++ {
		row := []float64{0.01, 0.02, 0.03, 0.04}
		if i == 1 {
			row = []float64{0.04, 0.03, 0.02, 0.01}
		}
		require.NoError(t, factor.AppendRow(ts(i), row))
		require.NoError(t, returns.AppendRow(ts(i+1), row))
	}

	h := NewDefaultTest(contracts.TestSettings{
		Frequency: contracts.Minute5,
		Lag:       1,
		Groups:    2,
		Fee:       0.001,
	}, factor, returns)

	assert.Equal(t, contracts.Minute5, h.Frequency())
	assert.Equal(t, 3, h.ReturnLen())
	assert.Equal(t, 4, h.Settings().Instruments)

	ind := h.Indicators()
	require.Len(t, ind, len(contracts.AllIndicators()))

	ic := ind[contracts.IndicatorIC]
	require.Equal(t, 3, ic.Len())
	for i := 0; i < ic.Len(); i++ {
		v, _ := ic.Value(i, "IC")
		assert.InDelta(t, 1.0, v, 1e-9)
	}

	rankIC, _ := ind[contracts.IndicatorRankIC].Value(0, "rankIC")
	assert.InDelta(t, 1.0, rankIC, 1e-9)

	beta, _ := ind[contracts.IndicatorBeta].Value(0, "beta")
	assert.InDelta(t, 1.0, beta, 1e-9)

	groups := ind[contracts.IndicatorGroupReturn]
	assert.Equal(t, []string{"G1", "G2"}, groups.Columns())
	g1, _ := groups.Value(0, "G1")
	g2, _ := groups.Value(0, "G2")
	assert.InDelta(t, 0.015, g1, 1e-12)
	assert.InDelta(t, 0.035, g2, 1e-12)

	tb, _ := ind[contracts.IndicatorTopBottom].Value(0, "tbdf")
	assert.InDelta(t, 0.02, tb, 1e-12)

	// top group flips between rows 0 and 1, then flips back
	turn := ind[contracts.IndicatorTurnover]
	require.Equal(t, 2, turn.Len())
	v, _ := turn.Value(0, "turn")
	assert.InDelta(t, 1.0, v, 1e-12)

	cost, _ := ind[contracts.IndicatorCost].Value(0, "cost")
	assert.InDelta(t, 0.001, cost, 1e-12)
}

func TestDefaultTest_GroupReturnEveryRow(t *testing.T) {
	syms := []string{"A", "B", "C", "D", "E", "F"}
	factor := frame.New(syms)
	returns := frame.New(syms)
	for i := 0; i < 4; i++ {
		row := []float64{1, 2, 3, 4, 5, 6}
		for k := range row {
			row[k] *= float64(i + 1)
		}
		require.NoError(t, factor.AppendRow(ts(i), row))
		require.NoError(t, returns.AppendRow(ts(i+1), row))
	}

	h := NewDefaultTest(contracts.TestSettings{
		Lag:        1,
		Groups:     3,
		Indicators: []contracts.Indicator{contracts.IndicatorGroupReturn},
	}, factor, returns)

	groups := h.Indicators()[contracts.IndicatorGroupReturn]
	require.Equal(t, []string{"G1", "G2", "G3"}, groups.Columns())
	require.Equal(t, 4, groups.Len())
	for i := 0; i < groups.Len(); i++ {
		scale := float64(i + 1)
		for g, c := range groups.Columns() {
			v, ok := groups.Value(i, c)
			require.True(t, ok)
			assert.InDelta(t, scale*(float64(2*g)+1.5), v, 1e-12)
		}
	}
}

func TestDefaultTest_SkipsThinRows(t *testing.T) {
	syms := []string{"A", "B", "C"}
	factor := frame.New(syms)
	returns := frame.New(syms)
	require.NoError(t, factor.AppendRow(ts(0), []float64{1, math.NaN(), 3}))
	require.NoError(t, returns.AppendRow(ts(1), []float64{0.1, 0.2, 0.3}))

	h := NewDefaultTest(contracts.TestSettings{
		Lag:        1,
		Groups:     2,
		Indicators: []contracts.Indicator{contracts.IndicatorIC},
	}, factor, returns)

	ind := h.Indicators()
	require.Len(t, ind, 1)
	assert.True(t, ind[contracts.IndicatorIC].Empty())
}

func TestBuild(t *testing.T) {
	p := panelOf(map[string][]float64{
		"A": {10, 11, 12, 13},
		"B": {10, 9, 8, 7},
		"C": {10, 10, 10, 10},
	})

	h := Build(p, &factors.Momentum{Lookback: 1}, contracts.TestSettings{
		Frequency: contracts.Minute5,
		Lag:       1,
		Groups:    3,
	}, "")

	assert.Equal(t, 3, h.ReturnLen())
	assert.Equal(t, 4, h.FactorTable().Len())
	assert.False(t, h.Indicators()[contracts.IndicatorIC].Empty())
}
