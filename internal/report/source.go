package report

import (
	"errors"
	"reflect"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/frame"
	"github.com/wonny/factorpool/internal/store"
)

// ErrNoSource is returned when an emitter is built without report data
var ErrNoSource = errors.New("report source is required")

// Source is the data a report is rendered from: either a live harness or a
// persisted dataset. It is implemented only by LiveHarness and PersistedReader.
type Source interface {
	frequency() contracts.Frequency
	settings() contracts.TestSettings
	indicator(ind contracts.Indicator) (*frame.Table, bool)
	valid() bool
}

// LiveHarness renders a report from a harness that has just run
type LiveHarness struct {
	Harness contracts.Harness
}

func (s LiveHarness) frequency() contracts.Frequency   { return s.Harness.Frequency() }
func (s LiveHarness) settings() contracts.TestSettings { return s.Harness.Settings() }

// valid rejects both a nil interface and a typed nil pointer behind it
func (s LiveHarness) valid() bool {
	if s.Harness == nil {
		return false
	}
	v := reflect.ValueOf(s.Harness)
	return v.Kind() != reflect.Pointer || !v.IsNil()
}

func (s LiveHarness) indicator(ind contracts.Indicator) (*frame.Table, bool) {
	t, ok := s.Harness.Indicators()[ind]
	return t, ok
}

// PersistedReader renders a report from tables read back from disk
type PersistedReader struct {
	Dataset *store.Dataset
}

func (s PersistedReader) frequency() contracts.Frequency { return s.Dataset.Frequency }
func (s PersistedReader) valid() bool                    { return s.Dataset != nil }

func (s PersistedReader) settings() contracts.TestSettings {
	if s.Dataset.Settings != nil {
		return *s.Dataset.Settings
	}
	return contracts.TestSettings{Frequency: s.Dataset.Frequency}
}

func (s PersistedReader) indicator(ind contracts.Indicator) (*frame.Table, bool) {
	return s.Dataset.Indicator(ind)
}
