package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wonny/factorpool/internal/contracts"
)

// Collector holds the factor pipeline metrics. The binary is a batch job, so
// metrics are flushed to a node-exporter textfile instead of being scraped.
type Collector struct {
	registry      *prometheus.Registry
	runsTotal     *prometheus.CounterVec
	appendedTotal *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	lastSuccess   *prometheus.GaugeVec
}

// New creates a collector with its own registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "factor_runs_total",
				Help: "Total number of factor runs",
			},
			[]string{"operation", "status"},
		),
		appendedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "factor_tables_appended_total",
				Help: "Total number of tables extended by append",
			},
			[]string{"factor"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "factor_run_duration_seconds",
				Help:    "Factor run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"operation"},
		),
		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "factor_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run per factor",
			},
			[]string{"factor", "operation"},
		),
	}

	c.registry.MustRegister(c.runsTotal, c.appendedTotal, c.runDuration, c.lastSuccess)
	return c
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func status(run *contracts.FactorRun) string {
	switch {
	case run.Success:
		return "success"
	case run.Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// ObserveRun records one finished factor run
func (c *Collector) ObserveRun(run *contracts.FactorRun) {
	op := string(run.Operation)
	c.runsTotal.WithLabelValues(op, status(run)).Inc()
	c.runDuration.WithLabelValues(op).Observe(run.Duration().Seconds())

	if run.Appended > 0 {
		c.appendedTotal.WithLabelValues(run.Factor).Add(float64(run.Appended))
	}
	if run.Success {
		c.lastSuccess.WithLabelValues(run.Factor, op).Set(float64(run.FinishedAt.Unix()))
	}
}

// WriteTextfile writes every metric to path in the text exposition format
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
