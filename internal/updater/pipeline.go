package updater

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/factortest"
	"github.com/wonny/factorpool/internal/feed"
)

// freqContext is the per-frequency state of one factor run
type freqContext struct {
	freq      contracts.Frequency
	resampled *feed.Resampled
	collector *feed.Collector
	harness   *factortest.DefaultTest
}

// pipeline is one factor run over every configured frequency
type pipeline struct {
	factor string
	order  []contracts.Frequency
	byFreq map[contracts.Frequency]*freqContext
}

// shortestReturns returns the frequency with the fewest return rows
func (p *pipeline) shortestReturns() (contracts.Frequency, int) {
	var freq contracts.Frequency
	shortest := -1
	for _, f := range p.order {
		n := p.byFreq[f].harness.ReturnLen()
		if shortest < 0 || n < shortest {
			freq, shortest = f, n
		}
	}
	return freq, shortest
}

// runPipeline loads bars from start to the configured end, resamples them to
// every frequency and builds one harness per frequency
func (u *Updater) runPipeline(ctx context.Context, factor string, start time.Time) (*pipeline, error) {
	benchmark := ""
	instruments := append([]string(nil), u.settings.Instruments...)
	if u.settings.RelativeReturn {
		benchmark = u.settings.BenchmarkSymbol()
		instruments = append(instruments, benchmark)
	}

	req := feed.Request{
		Instruments: instruments,
		Market:      u.settings.Market,
		Start:       start,
		End:         u.settings.End,
	}
	pf := feed.NewPanelFeed(u.source, req, u.logger)

	p := &pipeline{
		factor: factor,
		order:  u.settings.Frequencies,
		byFreq: make(map[contracts.Frequency]*freqContext, len(u.settings.Frequencies)),
	}
	for _, f := range p.order {
		fc := &freqContext{
			freq:      f,
			resampled: feed.NewResampled(f),
			collector: feed.NewCollector(),
		}
		fc.resampled.Subscribe(fc.collector)
		pf.Subscribe(fc.resampled)
		p.byFreq[f] = fc
	}

	rows, err := pf.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run feed: %w", err)
	}

	for _, f := range p.order {
		fc := p.byFreq[f]
		fac, err := u.registry.Lookup(factor)
		if err != nil {
			return nil, err
		}
		fc.harness = factortest.Build(fc.collector.Panel(), fac, u.settings.testSettings(f), benchmark)
	}

	u.logger.WithFields(map[string]interface{}{
		"factor": factor,
		"start":  start,
		"rows":   rows,
	}).Debug("Pipeline finished")

	return p, nil
}
