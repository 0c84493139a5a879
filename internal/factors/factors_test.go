package factors

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorpool/internal/contracts"
)

func history(closes ...float64) []contracts.Bar {
	out := make([]contracts.Bar, len(closes))
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = contracts.Bar{Time: start.Add(time.Duration(i) * time.Minute), Close: c, Volume: float64(i + 1)}
	}
	return out
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	ctor := func() Factor { return &Momentum{Lookback: 1} }

	require.NoError(t, r.Register("b", ctor))
	require.NoError(t, r.Register("a", ctor))

	err := r.Register("a", ctor)
	assert.ErrorIs(t, err, ErrDuplicateFactor)
	assert.Error(t, r.Register("", ctor))
	assert.Error(t, r.Register("c", nil))

	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.True(t, r.Has("a"))

	f, err := r.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, 2, f.Window())

	_, err = r.Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownFactor)
}

func TestBuiltin(t *testing.T) {
	r := Builtin()
	assert.Equal(t, []string{"maSpread", "momentum", "reversal", "volatility", "volumeRatio"}, r.Names())
}

func TestFactors_Compute(t *testing.T) {
	h := history(10, 11, 12, 11, 13)

	tests := []struct {
		name   string
		factor Factor
		want   float64
	}{
		{"momentum", &Momentum{Lookback: 4}, 0.3},
		{"reversal", &Reversal{Lookback: 2}, -(13.0/12.0 - 1)},
		{"volume ratio", &VolumeRatio{Lookback: 5}, 5.0 / 3.0},
		{"ma spread", &MASpread{Short: 1, Long: 5}, 13.0/11.4 - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.factor.Compute(h), 1e-12)
		})
	}
}

func TestVolatility(t *testing.T) {
	flat := history(10, 10, 10, 10)
	assert.InDelta(t, 0.0, (&Volatility{Lookback: 3}).Compute(flat), 1e-12)

	moving := history(10, 11, 10, 11)
	assert.Greater(t, (&Volatility{Lookback: 3}).Compute(moving), 0.0)
}

func TestFactors_ShortHistoryIsNaN(t *testing.T) {
	h := history(10, 11)
	for _, name := range Builtin().Names() {
		f, err := Builtin().Lookup(name)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(f.Compute(h)), name)
	}
}
