package feed

import (
	"context"
	"time"

	"github.com/wonny/factorpool/internal/contracts"
)

// Request selects the bars a source loads
type Request struct {
	Instruments []string
	Market      contracts.Market
	Start       time.Time // zero = from the first bar
	End         time.Time // zero = up to the last bar
}

// Contains reports whether t falls inside the requested range
func (r Request) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// Source loads minute bar panels
// ⭐ SSOT: every bar reaches the pipeline through a Source
type Source interface {
	Load(ctx context.Context, req Request) (*Panel, error)
}

// MemorySource serves bars held in memory
type MemorySource struct {
	bars map[string][]contracts.Bar
}

// NewMemorySource creates a source from per-instrument bars
func NewMemorySource(bars map[string][]contracts.Bar) *MemorySource {
	return &MemorySource{bars: bars}
}

// Load implements Source
func (s *MemorySource) Load(ctx context.Context, req Request) (*Panel, error) {
	builder := NewPanelBuilder()
	for _, sym := range req.Instruments {
		for _, bar := range s.bars[sym] {
			if req.Contains(bar.Time) {
				builder.Add(sym, bar)
			}
		}
	}
	return builder.Build(), nil
}
