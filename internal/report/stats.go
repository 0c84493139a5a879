package report

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/factorpool/internal/frame"
)

// GroupStats summarizes the return series of one factor group
type GroupStats struct {
	Group        string
	Periods      int
	Mean         float64
	Std          float64
	AnnualReturn float64
	Sharpe       float64
	WinRate      float64
	CumReturn    float64
	MaxDrawdown  float64
}

// finite drops NaN and Inf values
func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}

// ComputeGroupStats summarizes every column of a grouped-return table.
// periodsPerYear annualizes the mean and the sharpe ratio.
func ComputeGroupStats(groups *frame.Table, periodsPerYear float64) []GroupStats {
	var out []GroupStats
	for _, col := range groups.Columns() {
		raw, _ := groups.Column(col)
		rets := finite(raw)

		gs := GroupStats{Group: col, Periods: len(rets)}
		if len(rets) == 0 {
			gs.Mean, gs.Std, gs.AnnualReturn, gs.Sharpe = math.NaN(), math.NaN(), math.NaN(), math.NaN()
			gs.WinRate, gs.CumReturn, gs.MaxDrawdown = math.NaN(), math.NaN(), math.NaN()
			out = append(out, gs)
			continue
		}

		gs.Mean, gs.Std = stat.MeanStdDev(rets, nil)
		if len(rets) < 2 {
			gs.Std = math.NaN()
		}
		gs.AnnualReturn = gs.Mean * periodsPerYear
		gs.Sharpe = math.NaN()
		if gs.Std > 0 {
			gs.Sharpe = gs.Mean / gs.Std * math.Sqrt(periodsPerYear)
		}

		wins := 0
		for _, r := range rets {
			if r > 0 {
				wins++
			}
		}
		gs.WinRate = float64(wins) / float64(len(rets))

		curve := Cumulative(rets)
		gs.CumReturn = curve[len(curve)-1]
		gs.MaxDrawdown = MaxDrawdown(curve)

		out = append(out, gs)
	}
	return out
}

// Cumulative returns the compounded return after each period; NaN periods count as flat
func Cumulative(rets []float64) []float64 {
	wealth := make([]float64, len(rets))
	w := 1.0
	for i, r := range rets {
		if !math.IsNaN(r) && !math.IsInf(r, 0) {
			w *= 1 + r
		}
		wealth[i] = w
	}
	floats.AddConst(-1, wealth)
	return wealth
}

// MaxDrawdown returns the largest peak-to-trough loss of a cumulative return
// curve as a non-negative fraction of peak wealth
func MaxDrawdown(curve []float64) float64 {
	peak := 1.0
	worst := 0.0
	for _, c := range curve {
		w := 1 + c
		if w > peak {
			peak = w
		}
		if peak > 0 {
			if dd := (peak - w) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// SeriesSummary holds mean and information ratio of one indicator series
type SeriesSummary struct {
	Mean float64
	IR   float64
}

// Summarize computes the mean and mean/std of a one-column table
func Summarize(series *frame.Table) SeriesSummary {
	cols := series.Columns()
	if len(cols) == 0 {
		return SeriesSummary{Mean: math.NaN(), IR: math.NaN()}
	}
	raw, _ := series.Column(cols[0])
	xs := finite(raw)
	if len(xs) == 0 {
		return SeriesSummary{Mean: math.NaN(), IR: math.NaN()}
	}

	mean, std := stat.MeanStdDev(xs, nil)
	ir := math.NaN()
	if len(xs) > 1 && std > 0 {
		ir = mean / std
	}
	return SeriesSummary{Mean: mean, IR: ir}
}
