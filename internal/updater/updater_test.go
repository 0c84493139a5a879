package updater

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/factors"
	"github.com/wonny/factorpool/internal/feed"
	"github.com/wonny/factorpool/internal/store"
	"github.com/wonny/factorpool/pkg/logger"
)

var symbols = []string{"A", "B", "C", "D"}

type memRecorder struct {
	runs []*contracts.FactorRun
}

func (m *memRecorder) Record(ctx context.Context, run *contracts.FactorRun) error {
	m.runs = append(m.runs, run)
	return nil
}

func (m *memRecorder) ObserveRun(run *contracts.FactorRun) {}

// weekdays returns n consecutive weekdays at 15:00 starting Monday 2024-01-01
func weekdays(n int) []time.Time {
	out := make([]time.Time, 0, n)
	t := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)
	for len(out) < n {
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, t)
		}
		t = t.AddDate(0, 0, 1)
	}
	return out
}

// dailySource serves n daily bars per symbol with symbol-specific drift
func dailySource(n int) (*feed.MemorySource, []time.Time) {
	days := weekdays(n)
	bars := make(map[string][]contracts.Bar, len(symbols))
	for k, sym := range symbols {
		px := 10.0
		for i, d := range days {
			drift := float64(k-1) * 0.01
			if i%3 == 0 {
				drift = -drift
			}
			px *= 1 + drift
			bars[sym] = append(bars[sym], contracts.Bar{Time: d, Open: px, High: px, Low: px, Close: px, Volume: 100})
		}
	}
	return feed.NewMemorySource(bars), days
}

func registry() *factors.Registry {
	r := factors.NewRegistry()
	r.MustRegister("mom", func() factors.Factor { return &factors.Momentum{Lookback: 1} })
	return r
}

func settings() Settings {
	return Settings{
		Instruments: symbols,
		Market:      contracts.MarketStock,
		Frequencies: []contracts.Frequency{contracts.Day},
		Lag:         1,
		Groups:      2,
		Fee:         0.001,
	}
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr bool
	}{
		{"valid", func(s *Settings) {}, false},
		{"no instruments", func(s *Settings) { s.Instruments = nil }, true},
		{"zero lag", func(s *Settings) { s.Lag = 0 }, true},
		{"negative fee", func(s *Settings) { s.Fee = -1 }, true},
		{"cut out of range", func(s *Settings) { s.Cut = 1 }, true},
		{"relative without benchmark", func(s *Settings) { s.RelativeReturn = true }, true},
		{"relative with universe", func(s *Settings) { s.RelativeReturn = true; s.Universe = "HS300" }, false},
		{"end before start", func(s *Settings) {
			s.Start = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
			s.End = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := settings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	s := settings()
	s.Frequencies = nil
	require.NoError(t, s.Validate())
	assert.Equal(t, contracts.DefaultTestFrequencies(), s.Frequencies)
	assert.Equal(t, "IF.CCFX", (&Settings{Universe: "HS300"}).BenchmarkSymbol())
}

func TestSubtractBusinessDays(t *testing.T) {
	wed := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 9, 15, 0, 0, 0, time.UTC), SubtractBusinessDays(wed, 1))
	assert.Equal(t, time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC), SubtractBusinessDays(wed, 3))
	assert.Equal(t, time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC), SubtractBusinessDays(wed, 5))
	assert.Equal(t, wed, SubtractBusinessDays(wed, 0))
}

func TestDiscoverNewFactors(t *testing.T) {
	l := store.NewLayout(t.TempDir())
	r := factors.NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		r.MustRegister(name, func() factors.Factor { return &factors.Momentum{Lookback: 1} })
	}
	require.NoError(t, os.MkdirAll(l.FactorDir("mid"), 0o755))
	require.NoError(t, os.MkdirAll(l.FactorDir("retired"), 0o755))

	src, _ := dailySource(5)
	u, err := New(settings(), l, r, src, logger.Nop())
	require.NoError(t, err)

	names, err := u.DiscoverNewFactors()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestWriteNewFactors_InsufficientDataGuard(t *testing.T) {
	tests := []struct {
		name      string
		bars      int
		wantWrite bool
	}{
		{"two returns", 3, false},
		{"three returns", 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := store.NewLayout(t.TempDir())
			src, _ := dailySource(tt.bars)
			rec := &memRecorder{}

			u, err := New(settings(), l, registry(), src, logger.Nop(), WithRecorder(rec))
			require.NoError(t, err)

			summary, err := u.WriteNewFactors(context.Background())
			require.NoError(t, err)

			_, statErr := os.Stat(l.FactorDir("mom"))
			require.Len(t, rec.runs, 1)
			if tt.wantWrite {
				assert.NoError(t, statErr)
				assert.Equal(t, []string{"mom"}, summary.Succeeded)
				assert.True(t, rec.runs[0].Success)
				assert.Equal(t, []string{"day"}, rec.runs[0].Frequencies)
			} else {
				assert.True(t, os.IsNotExist(statErr), "no files for skipped factor")
				assert.Equal(t, []string{"mom"}, summary.Skipped)
				assert.True(t, rec.runs[0].Skipped)
			}
		})
	}
}

func TestWriteNewFactors_ContinuesAfterFailure(t *testing.T) {
	l := store.NewLayout(t.TempDir())
	src, _ := dailySource(10)

	r := registry()
	r.MustRegister("alpha", func() factors.Factor { return &factors.Momentum{Lookback: 1} })

	// a plain file where alpha's folder belongs: discovery ignores it and the write fails
	require.NoError(t, os.MkdirAll(l.Root, 0o755))
	require.NoError(t, os.WriteFile(l.FactorDir("alpha"), []byte("x"), 0o644))

	u, err := New(settings(), l, r, src, logger.Nop())
	require.NoError(t, err)

	summary, err := u.WriteNewFactors(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"alpha"}, summary.Failed)
	assert.Equal(t, []string{"mom"}, summary.Succeeded)
	assert.DirExists(t, l.FactorDir("mom"))
}

func TestUpdateFactor_AppendsAndArchives(t *testing.T) {
	ctx := context.Background()
	l := store.NewLayout(t.TempDir())
	src, days := dailySource(30)

	first := settings()
	first.End = days[14]
	u, err := New(first, l, registry(), src, logger.Nop(), fixedClock(days[14]))
	require.NoError(t, err)

	_, err = u.WriteNewFactors(ctx)
	require.NoError(t, err)

	before, err := l.Open(ctx, "mom", contracts.Day)
	require.NoError(t, err)
	assert.Equal(t, 15, before.Value().Len())

	rec := &memRecorder{}
	u2, err := New(settings(), l, registry(), src, logger.Nop(), fixedClock(days[29]), WithRecorder(rec))
	require.NoError(t, err)

	end, err := u2.LatestEnd(ctx, "mom")
	require.NoError(t, err)
	assert.Equal(t, days[14].Truncate(24*time.Hour), end)

	require.NoError(t, u2.UpdateFactor(ctx, "mom", 3))

	after, err := l.Open(ctx, "mom", contracts.Day)
	require.NoError(t, err)
	v := after.Value()
	assert.Equal(t, 30, v.Len())
	assert.True(t, v.IsStrictlyIncreasing())
	assert.True(t, before.Value().Equal(v.Until(before.Value().Last())))

	archived := filepath.Join(l.FreqDir("mom", contracts.Day), before.Stamp)
	assert.DirExists(t, archived)
	assert.FileExists(t, l.ReportPath("mom", contracts.Day, ".xls"))

	require.Len(t, rec.runs, 1)
	assert.True(t, rec.runs[0].Success)
	assert.Greater(t, rec.runs[0].Appended, 0)
	assert.Equal(t, contracts.OperationUpdate, rec.runs[0].Operation)
}

func TestUpdateFactor_RestoresDatasetWhenAppendFails(t *testing.T) {
	ctx := context.Background()
	l := store.NewLayout(t.TempDir())
	src, days := dailySource(30)

	first := settings()
	first.End = days[14]
	u, err := New(first, l, registry(), src, logger.Nop(), fixedClock(days[14]))
	require.NoError(t, err)
	_, err = u.WriteNewFactors(ctx)
	require.NoError(t, err)

	before, err := l.Open(ctx, "mom", contracts.Day)
	require.NoError(t, err)

	// a directory where the merged value table goes makes the write fail
	dir := l.FreqDir("mom", contracts.Day)
	blocker := filepath.Join(dir, store.TableFileName("mom", store.ValueKey, contracts.Day, store.Stamp(days[29])))
	require.NoError(t, os.MkdirAll(blocker, 0o755))

	u2, err := New(settings(), l, registry(), src, logger.Nop(), fixedClock(days[29]))
	require.NoError(t, err)
	require.Error(t, u2.UpdateFactor(ctx, "mom", 3))

	restored, err := l.Open(ctx, "mom", contracts.Day)
	require.NoError(t, err)
	assert.Equal(t, before.Stamp, restored.Stamp)
	assert.True(t, before.Value().Equal(restored.Value()))
	assert.NoDirExists(t, filepath.Join(dir, before.Stamp))

	// once the cause is gone the update goes through
	require.NoError(t, os.Remove(blocker))
	require.NoError(t, u2.UpdateFactor(ctx, "mom", 3))

	after, err := l.Open(ctx, "mom", contracts.Day)
	require.NoError(t, err)
	assert.Equal(t, 30, after.Value().Len())
}

func TestUpdateFactor_MissingDataset(t *testing.T) {
	l := store.NewLayout(t.TempDir())
	src, _ := dailySource(5)
	u, err := New(settings(), l, registry(), src, logger.Nop())
	require.NoError(t, err)

	err = u.UpdateFactor(context.Background(), "mom", 3)
	assert.True(t, errors.Is(err, store.ErrDatasetNotFound))

	err = u.UpdateFactor(context.Background(), "unknown", 3)
	assert.True(t, errors.Is(err, factors.ErrUnknownFactor))
}

func TestUpdateFactorPool_ContinuesPastBrokenFactor(t *testing.T) {
	ctx := context.Background()
	l := store.NewLayout(t.TempDir())
	src, days := dailySource(20)

	first := settings()
	first.End = days[9]
	u, err := New(first, l, registry(), src, logger.Nop(), fixedClock(days[9]))
	require.NoError(t, err)
	_, err = u.WriteNewFactors(ctx)
	require.NoError(t, err)

	// "broken" sorts first and is not a registered factor
	require.NoError(t, os.MkdirAll(l.FreqDir("broken", contracts.Day), 0o755))

	u2, err := New(settings(), l, registry(), src, logger.Nop(), fixedClock(days[19]))
	require.NoError(t, err)

	summary, err := u2.UpdateFactorPool(ctx, 2)
	require.Error(t, err)
	assert.Equal(t, []string{"broken"}, summary.Failed)
	assert.Equal(t, []string{"mom"}, summary.Succeeded)

	ds, err := l.Open(ctx, "mom", contracts.Day)
	require.NoError(t, err)
	assert.Equal(t, 20, ds.Value().Len())
}
