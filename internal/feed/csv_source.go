package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/factorpool/internal/contracts"
)

// ErrNoBars is returned when a source file holds no usable bars
var ErrNoBars = errors.New("no bars")

var csvTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02",
	"20060102 150405",
}

// CSVSource reads <root>/<market>/<symbol>.csv with header
// datetime,open,high,low,close,volume. Times without zone are read in loc.
type CSVSource struct {
	root string
	loc  *time.Location
}

// NewCSVSource creates a CSV bar source
func NewCSVSource(root string, loc *time.Location) *CSVSource {
	if loc == nil {
		loc = time.UTC
	}
	return &CSVSource{root: root, loc: loc}
}

// Load implements Source
func (s *CSVSource) Load(ctx context.Context, req Request) (*Panel, error) {
	builder := NewPanelBuilder()
	for _, sym := range req.Instruments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bars, err := s.Bars(req.Market, sym)
		if err != nil {
			return nil, fmt.Errorf("read bars %s: %w", sym, err)
		}
		for _, bar := range bars {
			if req.Contains(bar.Time) {
				builder.Add(sym, bar)
			}
		}
	}
	return builder.Build(), nil
}

// Bars reads every bar of one instrument file
func (s *CSVSource) Bars(market contracts.Market, symbol string) ([]contracts.Bar, error) {
	f, err := os.Open(filepath.Join(s.root, string(market), symbol+".csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSVBars(f, s.loc)
}

// ReadCSVBars parses bars from CSV; columns are located by header name
func ReadCSVBars(r io.Reader, loc *time.Location) ([]contracts.Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoBars
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"datetime", "open", "high", "low", "close", "volume"} {
		if _, ok := pos[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var bars []contracts.Bar
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := parseCSVTime(rec[pos["datetime"]], loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var vals [5]float64
		for i, col := range []string{"open", "high", "low", "close", "volume"} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[pos[col]]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, col, err)
			}
			vals[i] = v
		}

		bars = append(bars, contracts.Bar{
			Time:   ts,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}

	if len(bars) == 0 {
		return nil, ErrNoBars
	}
	return bars, nil
}

func parseCSVTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range csvTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}
