package feed

import (
	"sort"
	"time"

	"github.com/wonny/factorpool/internal/contracts"
)

// Row is every instrument's bar at one timestamp
type Row struct {
	Time time.Time
	Bars map[string]contracts.Bar
}

// Panel is a time-ordered set of rows
type Panel struct {
	rows        []Row
	instruments []string
}

// PanelBuilder collects bars in any order and builds a sorted panel
type PanelBuilder struct {
	rows        map[int64]*Row
	instruments map[string]struct{}
}

// NewPanelBuilder creates an empty builder
func NewPanelBuilder() *PanelBuilder {
	return &PanelBuilder{
		rows:        make(map[int64]*Row),
		instruments: make(map[string]struct{}),
	}
}

// Add adds one bar; a later bar for the same instrument and time replaces it
func (b *PanelBuilder) Add(symbol string, bar contracts.Bar) {
	key := bar.Time.UnixNano()
	row, ok := b.rows[key]
	if !ok {
		row = &Row{Time: bar.Time, Bars: make(map[string]contracts.Bar)}
		b.rows[key] = row
	}
	row.Bars[symbol] = bar
	b.instruments[symbol] = struct{}{}
}

// Build returns the panel sorted by time
func (b *PanelBuilder) Build() *Panel {
	p := &Panel{
		rows:        make([]Row, 0, len(b.rows)),
		instruments: make([]string, 0, len(b.instruments)),
	}
	for _, row := range b.rows {
		p.rows = append(p.rows, *row)
	}
	sort.Slice(p.rows, func(i, j int) bool { return p.rows[i].Time.Before(p.rows[j].Time) })

	for s := range b.instruments {
		p.instruments = append(p.instruments, s)
	}
	sort.Strings(p.instruments)

	return p
}

// Len returns the number of rows
func (p *Panel) Len() int {
	return len(p.rows)
}

// Rows returns the rows in time order
func (p *Panel) Rows() []Row {
	return p.rows
}

// Instruments returns the sorted instrument list
func (p *Panel) Instruments() []string {
	out := make([]string, len(p.instruments))
	copy(out, p.instruments)
	return out
}

// Merge returns a panel holding the bars of both panels
func Merge(a, b *Panel) *Panel {
	builder := NewPanelBuilder()
	for _, p := range []*Panel{a, b} {
		for _, row := range p.rows {
			for sym, bar := range row.Bars {
				builder.Add(sym, bar)
			}
		}
	}
	return builder.Build()
}
