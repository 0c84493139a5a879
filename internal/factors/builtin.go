package factors

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/factorpool/internal/contracts"
)

func closes(bars []contracts.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func tail(bars []contracts.Bar, n int) []contracts.Bar {
	return bars[len(bars)-n:]
}

// Momentum is the return over Lookback bars
type Momentum struct {
	Lookback int
}

func (f *Momentum) Window() int { return f.Lookback + 1 }

func (f *Momentum) Compute(history []contracts.Bar) float64 {
	if len(history) < f.Window() {
		return math.NaN()
	}
	h := tail(history, f.Window())
	first := h[0].Close
	if first == 0 {
		return math.NaN()
	}
	return h[len(h)-1].Close/first - 1
}

// Reversal is the negated short-horizon return
type Reversal struct {
	Lookback int
}

func (f *Reversal) Window() int { return f.Lookback + 1 }

func (f *Reversal) Compute(history []contracts.Bar) float64 {
	m := Momentum{Lookback: f.Lookback}
	return -m.Compute(history)
}

// Volatility is the standard deviation of log returns over Lookback bars
type Volatility struct {
	Lookback int
}

func (f *Volatility) Window() int { return f.Lookback + 1 }

func (f *Volatility) Compute(history []contracts.Bar) float64 {
	if len(history) < f.Window() || f.Lookback < 2 {
		return math.NaN()
	}
	px := closes(tail(history, f.Window()))
	rets := make([]float64, 0, len(px)-1)
	for i := 1; i < len(px); i++ {
		if px[i-1] <= 0 || px[i] <= 0 {
			return math.NaN()
		}
		rets = append(rets, math.Log(px[i]/px[i-1]))
	}
	return stat.StdDev(rets, nil)
}

// VolumeRatio is the last bar's volume over the mean volume of the window
type VolumeRatio struct {
	Lookback int
}

func (f *VolumeRatio) Window() int { return f.Lookback }

func (f *VolumeRatio) Compute(history []contracts.Bar) float64 {
	if len(history) < f.Window() || f.Lookback < 1 {
		return math.NaN()
	}
	h := tail(history, f.Window())
	vols := make([]float64, len(h))
	for i, b := range h {
		vols[i] = b.Volume
	}
	mean := stat.Mean(vols, nil)
	if mean == 0 {
		return math.NaN()
	}
	return vols[len(vols)-1] / mean
}

// MASpread is the short moving average over the long moving average, minus one
type MASpread struct {
	Short int
	Long  int
}

func (f *MASpread) Window() int { return f.Long }

func (f *MASpread) Compute(history []contracts.Bar) float64 {
	if len(history) < f.Window() || f.Short < 1 || f.Short > f.Long {
		return math.NaN()
	}
	long := closes(tail(history, f.Long))
	short := long[len(long)-f.Short:]

	lm := stat.Mean(long, nil)
	if lm == 0 {
		return math.NaN()
	}
	return stat.Mean(short, nil)/lm - 1
}
