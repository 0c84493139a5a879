package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wonny/factorpool/internal/contracts"
)

const (
	// StampLayout is the time layout of file stamps and archive folders
	StampLayout = "20060102_1504"

	// ValueKey is the statistic key slot used by the factor value table
	ValueKey = "factor"

	settingKey = "setting"
	reportKey  = "Report"
	tableExt   = ".parquet"
)

// Layout builds every path under the factor data root
// ⭐ SSOT: <root>/<factor>/<freqLabel>/ and all file names come from here
type Layout struct {
	Root string
}

// NewLayout creates a layout rooted at root
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// Stamp formats t as a file stamp
func Stamp(t time.Time) string {
	return t.Format(StampLayout)
}

// FactorDir returns <root>/<factor>
func (l Layout) FactorDir(factor string) string {
	return filepath.Join(l.Root, factor)
}

// FreqDir returns <root>/<factor>/<freqLabel>
func (l Layout) FreqDir(factor string, freq contracts.Frequency) string {
	return filepath.Join(l.Root, factor, freq.Label())
}

// TableFileName returns <factor>_<key>_<freqLabel>_<stamp>.parquet
func TableFileName(factor, key string, freq contracts.Frequency, stamp string) string {
	return fmt.Sprintf("%s_%s_%s_%s%s", factor, key, freq.Label(), stamp, tableExt)
}

// SettingsFileName returns <factor>_setting_<freqLabel>.yaml
func SettingsFileName(factor string, freq contracts.Frequency) string {
	return fmt.Sprintf("%s_%s_%s.yaml", factor, settingKey, freq.Label())
}

// ReportPath returns <root>/<factor>/<freqLabel>/<factor>_Report_<freqLabel><ext>
func (l Layout) ReportPath(factor string, freq contracts.Frequency, ext string) string {
	name := fmt.Sprintf("%s_%s_%s%s", factor, reportKey, freq.Label(), ext)
	return filepath.Join(l.FreqDir(factor, freq), name)
}

// FileName is a parsed table file name
type FileName struct {
	Factor string
	Key    string
	Label  string
	Stamp  string
}

// ParseFileName parses <factor>_<key>_<label>_<YYYYMMDD>_<HHMM>.parquet.
// Factor names may contain '_'; keys and labels never do.
func ParseFileName(name string) (FileName, bool) {
	if !strings.HasSuffix(name, tableExt) {
		return FileName{}, false
	}
	parts := strings.Split(strings.TrimSuffix(name, tableExt), "_")
	if len(parts) < 5 {
		return FileName{}, false
	}

	n := len(parts)
	stamp := parts[n-2] + "_" + parts[n-1]
	if _, err := time.Parse(StampLayout, stamp); err != nil {
		return FileName{}, false
	}

	factor := strings.Join(parts[:n-4], "_")
	if factor == "" || parts[n-4] == "" || parts[n-3] == "" {
		return FileName{}, false
	}

	return FileName{
		Factor: factor,
		Key:    parts[n-4],
		Label:  parts[n-3],
		Stamp:  stamp,
	}, true
}

// Factors returns the sorted names of materialized factor folders
func (l Layout) Factors() ([]string, error) {
	entries, err := os.ReadDir(l.Root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list factor root: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Frequencies returns the frequencies with a folder under factor, in ascending order.
// Folders whose name is not a frequency label are ignored.
func (l Layout) Frequencies(factor string) ([]contracts.Frequency, error) {
	entries, err := os.ReadDir(l.FactorDir(factor))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", factor, ErrDatasetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", factor, err)
	}

	var out []contracts.Frequency
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		f, err := contracts.ParseFrequency(e.Name())
		if err != nil || f.Label() != e.Name() {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
