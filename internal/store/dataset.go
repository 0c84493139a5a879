package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/frame"
)

// ErrDatasetNotFound is returned when a folder holds no value table
var ErrDatasetNotFound = errors.New("factor dataset not found")

// Dataset is the persisted state of one factor at one frequency: the value
// table, its statistic tables and the settings sidecar, all read from one folder
type Dataset struct {
	Factor    string
	Frequency contracts.Frequency
	Dir       string
	Stamp     string

	// Settings is nil when the folder has no settings sidecar
	Settings *contracts.TestSettings

	tables map[string]*frame.Table
	paths  map[string]string
}

// Open reads the current dataset of factor at freq
func (l Layout) Open(ctx context.Context, factor string, freq contracts.Frequency) (*Dataset, error) {
	return OpenDir(ctx, l.FreqDir(factor, freq), factor, freq)
}

// OpenAll reads the current dataset of every frequency folder of factor
func (l Layout) OpenAll(ctx context.Context, factor string) (map[contracts.Frequency]*Dataset, error) {
	freqs, err := l.Frequencies(factor)
	if err != nil {
		return nil, err
	}

	out := make(map[contracts.Frequency]*Dataset, len(freqs))
	for _, f := range freqs {
		ds, err := l.Open(ctx, factor, f)
		if errors.Is(err, ErrDatasetNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[f] = ds
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", factor, ErrDatasetNotFound)
	}
	return out, nil
}

// OpenDir reads the dataset files of factor at freq found directly in dir.
// Archive folders are read the same way.
func OpenDir(ctx context.Context, dir, factor string, freq contracts.Frequency) (*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s/%s: %w", factor, freq.Label(), ErrDatasetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	// newest stamp wins when a key appears more than once
	latest := make(map[string]FileName)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		fn, ok := ParseFileName(e.Name())
		if !ok || fn.Factor != factor || fn.Label != freq.Label() {
			continue
		}
		if prev, seen := latest[fn.Key]; !seen || fn.Stamp > prev.Stamp {
			latest[fn.Key] = fn
		}
	}

	value, ok := latest[ValueKey]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", factor, freq.Label(), ErrDatasetNotFound)
	}

	ds := &Dataset{
		Factor:    factor,
		Frequency: freq,
		Dir:       dir,
		Stamp:     value.Stamp,
		tables:    make(map[string]*frame.Table, len(latest)),
		paths:     make(map[string]string, len(latest)),
	}

	for key, fn := range latest {
		path := filepath.Join(dir, TableFileName(factor, key, freq, fn.Stamp))
		tbl, err := ReadTable(ctx, path)
		if err != nil {
			return nil, err
		}
		ds.tables[key] = tbl
		ds.paths[key] = path
	}

	settings, err := ReadSettings(filepath.Join(dir, SettingsFileName(factor, freq)))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	ds.Settings = settings

	return ds, nil
}

// Value returns the factor value table
func (d *Dataset) Value() *frame.Table {
	return d.tables[ValueKey]
}

// Table returns the table stored under key ("factor" or an indicator key)
func (d *Dataset) Table(key string) (*frame.Table, bool) {
	t, ok := d.tables[key]
	return t, ok
}

// Indicator returns the statistic table of ind
func (d *Dataset) Indicator(ind contracts.Indicator) (*frame.Table, bool) {
	return d.Table(string(ind))
}

// Keys returns the sorted keys of every table in the dataset
func (d *Dataset) Keys() []string {
	keys := make([]string, 0, len(d.tables))
	for k := range d.tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FilePath returns the file the table under key was read from
func (d *Dataset) FilePath(key string) (string, bool) {
	p, ok := d.paths[key]
	return p, ok
}

// DateRange returns the first and last timestamp of the value table
func (d *Dataset) DateRange() (time.Time, time.Time) {
	v := d.Value()
	return v.First(), v.Last()
}

// LatestEnd returns the latest last timestamp over every table of the dataset
func (d *Dataset) LatestEnd() time.Time {
	var end time.Time
	for _, t := range d.tables {
		if t.Last().After(end) {
			end = t.Last()
		}
	}
	return end
}
