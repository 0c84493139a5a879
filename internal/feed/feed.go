package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/pkg/logger"
)

// Subscriber receives rows of a running feed in time order
type Subscriber interface {
	OnBars(ts time.Time, bars map[string]contracts.Bar)
	OnEnd()
}

// PanelFeed loads a panel from a source and drives it through its subscribers
type PanelFeed struct {
	source      Source
	req         Request
	subscribers []Subscriber
	logger      *logger.Logger
}

// NewPanelFeed creates a feed for one request
func NewPanelFeed(source Source, req Request, log *logger.Logger) *PanelFeed {
	return &PanelFeed{
		source: source,
		req:    req,
		logger: log.Component("feed"),
	}
}

// Subscribe attaches a subscriber; must be called before Run
func (f *PanelFeed) Subscribe(s Subscriber) {
	f.subscribers = append(f.subscribers, s)
}

// Run loads the panel and dispatches every row, then signals the end of feed.
// Returns the number of rows dispatched.
func (f *PanelFeed) Run(ctx context.Context) (int, error) {
	panel, err := f.source.Load(ctx, f.req)
	if err != nil {
		return 0, fmt.Errorf("load panel: %w", err)
	}

	f.logger.WithFields(map[string]interface{}{
		"instruments": len(f.req.Instruments),
		"market":      f.req.Market,
		"rows":        panel.Len(),
	}).Debug("Feed loaded")

	for i, row := range panel.Rows() {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return i, err
			}
		}
		for _, s := range f.subscribers {
			s.OnBars(row.Time, row.Bars)
		}
	}

	for _, s := range f.subscribers {
		s.OnEnd()
	}

	return panel.Len(), nil
}

// Collector stores every row it receives as a panel
type Collector struct {
	builder *PanelBuilder
	panel   *Panel
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{builder: NewPanelBuilder()}
}

// OnBars implements Subscriber
func (c *Collector) OnBars(ts time.Time, bars map[string]contracts.Bar) {
	for sym, bar := range bars {
		c.builder.Add(sym, bar)
	}
}

// OnEnd implements Subscriber
func (c *Collector) OnEnd() {
	c.panel = c.builder.Build()
}

// Panel returns the collected panel (built on demand if the feed has not ended)
func (c *Collector) Panel() *Panel {
	if c.panel == nil {
		return c.builder.Build()
	}
	return c.panel
}
