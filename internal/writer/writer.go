package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/frame"
	"github.com/wonny/factorpool/internal/store"
	"github.com/wonny/factorpool/pkg/logger"
)

// Mode selects how computed tables are persisted
type Mode string

const (
	// ModeNew writes every table from scratch
	ModeNew Mode = "new"

	// ModeAppend merges every table onto its prior counterpart
	ModeAppend Mode = "append"
)

// ErrInvalidMode is returned for any mode other than new or append
var ErrInvalidMode = errors.New("invalid write mode")

// Result lists what one Write did
type Result struct {
	Written  []string // files written with fresh or merged data
	Restored []string // prior files kept as current unchanged
	Skipped  []string // keys not persisted at all
}

// Writer persists the output of one harness for one factor
type Writer struct {
	layout   store.Layout
	factor   string
	harness  contracts.Harness
	policy   frame.MergePolicy
	now      func() time.Time
	logger   *logger.Logger
	appended int
}

// Option configures a Writer
type Option func(*Writer)

// WithClock overrides the clock used for file stamps
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// WithPolicy sets the merge policy used in append mode
func WithPolicy(p frame.MergePolicy) Option {
	return func(w *Writer) { w.policy = p }
}

// New creates a writer
func New(layout store.Layout, factor string, harness contracts.Harness, log *logger.Logger, opts ...Option) *Writer {
	w := &Writer{
		layout:  layout,
		factor:  factor,
		harness: harness,
		policy:  frame.PolicyStrict,
		now:     time.Now,
		logger:  log.Component("writer"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Count returns the number of tables appended by this writer
func (w *Writer) Count() int {
	return w.appended
}

// Write persists the harness output. prior is required in append mode and
// ignored in new mode.
func (w *Writer) Write(mode Mode, prior *store.Dataset) (*Result, error) {
	switch mode {
	case ModeNew:
		return w.writeNew()
	case ModeAppend:
		if prior == nil {
			return nil, fmt.Errorf("append %s: no prior dataset", w.factor)
		}
		return w.writeAppend(prior)
	default:
		return nil, fmt.Errorf("write mode %q: %w", mode, ErrInvalidMode)
	}
}

func (w *Writer) dir() string {
	return w.layout.FreqDir(w.factor, w.harness.Frequency())
}

func (w *Writer) log() *logger.Logger {
	return w.logger.WithFields(map[string]interface{}{
		"factor":    w.factor,
		"frequency": w.harness.Frequency().Label(),
	})
}

func (w *Writer) tablePath(key, stamp string) string {
	return filepath.Join(w.dir(), store.TableFileName(w.factor, key, w.harness.Frequency(), stamp))
}

// orderedIndicators returns the harness indicators in report order
func (w *Writer) orderedIndicators() []contracts.Indicator {
	produced := w.harness.Indicators()
	var out []contracts.Indicator
	for _, ind := range contracts.AllIndicators() {
		if _, ok := produced[ind]; ok {
			out = append(out, ind)
		}
	}
	return out
}

func (w *Writer) writeNew() (*Result, error) {
	if err := os.MkdirAll(w.dir(), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", w.dir(), err)
	}

	res := &Result{}
	stamp := store.Stamp(w.now())

	path := w.tablePath(store.ValueKey, stamp)
	if err := store.WriteTable(path, w.harness.FactorTable()); err != nil {
		return res, fmt.Errorf("write factor table: %w", err)
	}
	res.Written = append(res.Written, path)

	indicators := w.harness.Indicators()
	for _, ind := range w.orderedIndicators() {
		tbl := indicators[ind]
		if tbl.Empty() {
			w.log().WithField("indicator", string(ind)).Warn("Indicator is empty, not written")
			res.Skipped = append(res.Skipped, string(ind))
			continue
		}

		path := w.tablePath(string(ind), stamp)
		if err := store.WriteTable(path, tbl); err != nil {
			return res, fmt.Errorf("write %s: %w", ind, err)
		}
		res.Written = append(res.Written, path)
	}

	if err := w.writeSettings(); err != nil {
		return res, err
	}

	w.log().WithField("files", len(res.Written)).Info("Factor dataset written")
	return res, nil
}

func (w *Writer) writeAppend(prior *store.Dataset) (*Result, error) {
	if err := os.MkdirAll(w.dir(), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", w.dir(), err)
	}

	res := &Result{}
	stamp := store.Stamp(w.now())
	handled := make(map[string]bool)

	if err := w.appendOne(res, prior, store.ValueKey, w.harness.FactorTable(), stamp); err != nil {
		return res, err
	}
	handled[store.ValueKey] = true

	indicators := w.harness.Indicators()
	for _, ind := range w.orderedIndicators() {
		key := string(ind)
		handled[key] = true

		if _, ok := prior.Table(key); !ok {
			w.log().WithField("indicator", key).Warn("No prior table for indicator, skipped")
			res.Skipped = append(res.Skipped, key)
			continue
		}
		if err := w.appendOne(res, prior, key, indicators[ind], stamp); err != nil {
			return res, err
		}
	}

	// prior tables the harness no longer produces stay current
	for _, key := range prior.Keys() {
		if handled[key] {
			continue
		}
		if err := w.restore(res, prior, key); err != nil {
			return res, err
		}
	}

	if err := w.writeSettings(); err != nil {
		return res, err
	}

	w.log().WithFields(map[string]interface{}{
		"written":  len(res.Written),
		"restored": len(res.Restored),
		"appended": w.appended,
	}).Info("Factor dataset appended")
	return res, nil
}

// appendOne merges fresh onto the prior table under key, or keeps the prior
// table when the merge precondition fails
func (w *Writer) appendOne(res *Result, prior *store.Dataset, key string, fresh *frame.Table, stamp string) error {
	old, _ := prior.Table(key)

	if fresh.Empty() || !frame.CanAppend(old, fresh, w.policy) {
		w.log().WithFields(map[string]interface{}{
			"table":     key,
			"old_first": old.First(),
			"old_last":  old.Last(),
			"new_first": fresh.First(),
			"policy":    string(w.policy),
		}).Warn("Merge precondition not met, prior table kept")
		return w.restore(res, prior, key)
	}

	merged := frame.AppendAfter(old, fresh)
	path := w.tablePath(key, stamp)
	if err := store.WriteTable(path, merged); err != nil {
		return fmt.Errorf("write merged %s: %w", key, err)
	}

	w.appended++
	res.Written = append(res.Written, path)
	return nil
}

// restore copies the prior file of key back into the current folder
func (w *Writer) restore(res *Result, prior *store.Dataset, key string) error {
	src, ok := prior.FilePath(key)
	if !ok {
		return nil
	}

	dst := filepath.Join(w.dir(), filepath.Base(src))
	if src == dst {
		res.Restored = append(res.Restored, dst)
		return nil
	}
	if err := store.CopyFile(src, dst); err != nil {
		return fmt.Errorf("restore %s: %w", key, err)
	}
	res.Restored = append(res.Restored, dst)
	return nil
}

func (w *Writer) writeSettings() error {
	path := filepath.Join(w.dir(), store.SettingsFileName(w.factor, w.harness.Frequency()))
	if err := store.WriteSettings(path, w.harness.Settings()); err != nil {
		return err
	}
	return nil
}
