package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/store"
	"github.com/wonny/factorpool/pkg/logger"
)

const (
	ChartExt = ".png"
	TableExt = ".xls"
)

// Output lists the files one Write produced
type Output struct {
	Chart string // empty when the chart was skipped
	Table string
}

// Emitter renders the grouped-return chart and the statistics table of one
// factor at one frequency. Files are overwritten on every Write.
type Emitter struct {
	layout store.Layout
	factor string
	source Source
	logger *logger.Logger
}

// New creates an emitter; a nil or empty source is rejected
func New(layout store.Layout, factor string, source Source, log *logger.Logger) (*Emitter, error) {
	if source == nil || !source.valid() {
		return nil, fmt.Errorf("report %s: %w", factor, ErrNoSource)
	}
	return &Emitter{
		layout: layout,
		factor: factor,
		source: source,
		logger: log.Component("report"),
	}, nil
}

// Write renders both report files into the frequency folder
func (e *Emitter) Write() (*Output, error) {
	freq := e.source.frequency()
	log := e.logger.WithFields(map[string]interface{}{
		"factor":    e.factor,
		"frequency": freq.Label(),
	})

	if err := os.MkdirAll(e.layout.FreqDir(e.factor, freq), 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	out := &Output{}

	groups, ok := e.source.indicator(contracts.IndicatorGroupReturn)
	if ok && !groups.Empty() {
		path := e.layout.ReportPath(e.factor, freq, ChartExt)
		title := fmt.Sprintf("%s grouped return (%s)", e.factor, freq.Label())
		if err := SaveGroupChart(path, title, groups); err != nil {
			return nil, fmt.Errorf("write chart: %w", err)
		}
		out.Chart = path
	} else {
		log.Warn("No grouped returns, chart skipped")
	}

	stats := e.Statistics()
	path := e.layout.ReportPath(e.factor, freq, TableExt)
	if err := stats.WriteFile(path); err != nil {
		return nil, fmt.Errorf("write statistics: %w", err)
	}
	out.Table = path

	log.WithField("rows", len(stats.Rows)).Info("Report written")
	return out, nil
}

// Statistics is the report table: one row per group followed by summary rows
type Statistics struct {
	Header []string
	Rows   [][]string
}

var statisticsHeader = []string{
	"Item", "Periods", "Mean", "Std", "AnnualReturn", "Sharpe", "WinRate", "CumReturn", "MaxDrawdown",
}

// summaryRows are the indicator series reported below the group rows
var summaryRows = []struct {
	label string
	ind   contracts.Indicator
	ir    bool
}{
	{"IC", contracts.IndicatorIC, true},
	{"rankIC", contracts.IndicatorRankIC, true},
	{"beta", contracts.IndicatorBeta, false},
	{"gpIC", contracts.IndicatorGroupIC, false},
	{"tbdf", contracts.IndicatorTopBottom, false},
	{"turn", contracts.IndicatorTurnover, false},
	{"cost", contracts.IndicatorCost, false},
}

// Statistics builds the report table from the source
func (e *Emitter) Statistics() *Statistics {
	freq := e.source.frequency()
	st := &Statistics{Header: statisticsHeader}

	if groups, ok := e.source.indicator(contracts.IndicatorGroupReturn); ok {
		for _, gs := range ComputeGroupStats(groups, freq.PeriodsPerYear()) {
			st.Rows = append(st.Rows, []string{
				gs.Group,
				strconv.Itoa(gs.Periods),
				num(gs.Mean),
				num(gs.Std),
				num(gs.AnnualReturn),
				num(gs.Sharpe),
				num(gs.WinRate),
				num(gs.CumReturn),
				num(gs.MaxDrawdown),
			})
		}
	}

	blank := make([]string, len(statisticsHeader)-3)
	for _, sr := range summaryRows {
		tbl, ok := e.source.indicator(sr.ind)
		if !ok || tbl.Empty() {
			continue
		}
		s := Summarize(tbl)
		st.Rows = append(st.Rows, append([]string{sr.label + " mean", strconv.Itoa(tbl.Len()), num(s.Mean)}, blank...))
		if sr.ir {
			st.Rows = append(st.Rows, append([]string{sr.label + " IR", strconv.Itoa(tbl.Len()), num(s.IR)}, blank...))
		}
	}

	settings := e.source.settings()
	st.Rows = append(st.Rows, append([]string{"lag", "", strconv.Itoa(settings.Lag)}, blank...))
	st.Rows = append(st.Rows, append([]string{"fee", "", num(settings.Fee)}, blank...))

	return st
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// WriteFile writes the table as tab-separated text
func (s *Statistics) WriteFile(path string) error {
	var b strings.Builder
	b.WriteString(strings.Join(s.Header, "\t"))
	b.WriteByte('\n')
	for _, row := range s.Rows {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Clean(path))
}

// Render prints the table for terminals
func (s *Statistics) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(s.Header)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, row := range s.Rows {
		table.Append(row)
	}
	table.Render()
}
