package feed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/pkg/logger"
)

func minute(m int) time.Time {
	return time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC).Add(time.Duration(m) * time.Minute)
}

func bar(m int, px, vol float64) contracts.Bar {
	return contracts.Bar{Time: minute(m), Open: px, High: px + 1, Low: px - 1, Close: px, Volume: vol}
}

func TestPanelBuilder_SortsRowsAndInstruments(t *testing.T) {
	b := NewPanelBuilder()
	b.Add("B", bar(2, 10, 1))
	b.Add("A", bar(1, 20, 1))
	b.Add("A", bar(2, 21, 1))

	p := b.Build()
	require.Equal(t, 2, p.Len())
	assert.Equal(t, minute(1), p.Rows()[0].Time)
	assert.Len(t, p.Rows()[1].Bars, 2)
	assert.Equal(t, []string{"A", "B"}, p.Instruments())
}

func TestMemorySource_FiltersRange(t *testing.T) {
	src := NewMemorySource(map[string][]contracts.Bar{
		"A": {bar(0, 1, 1), bar(1, 2, 1), bar(2, 3, 1)},
		"B": {bar(1, 5, 1)},
	})

	p, err := src.Load(context.Background(), Request{
		Instruments: []string{"A"},
		Start:       minute(1),
		End:         minute(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []string{"A"}, p.Instruments())
}

func TestReadCSVBars(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{
			name:  "valid",
			input: "datetime,open,high,low,close,volume\n2024-03-04 09:31:00,1,2,0.5,1.5,100\n2024-03-04 09:32:00,1.5,2,1,1.8,50\n",
			want:  2,
		},
		{
			name:  "reordered header",
			input: "close,volume,datetime,open,high,low\n1.5,100,2024-03-04 09:31:00,1,2,0.5\n",
			want:  1,
		},
		{name: "missing column", input: "datetime,open,high,low,close\n", wantErr: true},
		{name: "bad number", input: "datetime,open,high,low,close,volume\n2024-03-04 09:31,x,2,1,1,1\n", wantErr: true},
		{name: "bad time", input: "datetime,open,high,low,close,volume\nyesterday,1,2,1,1,1\n", wantErr: true},
		{name: "header only", input: "datetime,open,high,low,close,volume\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars, err := ReadCSVBars(strings.NewReader(tt.input), time.UTC)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, bars, tt.want)
			assert.Equal(t, 1.5, bars[0].Close)
		})
	}
}

func TestCSVSource_Load(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, string(contracts.MarketStock))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "600000.SH.csv"),
		[]byte("datetime,open,high,low,close,volume\n2024-03-04 09:31:00,1,2,0.5,1.5,100\n"), 0o644))

	src := NewCSVSource(root, nil)

	p, err := src.Load(context.Background(), Request{
		Instruments: []string{"600000.SH"},
		Market:      contracts.MarketStock,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())

	_, err = src.Load(context.Background(), Request{
		Instruments: []string{"missing"},
		Market:      contracts.MarketStock,
	})
	assert.Error(t, err)
}

func TestResampled_AggregatesBuckets(t *testing.T) {
	src := NewMemorySource(map[string][]contracts.Bar{
		"A": {
			{Time: minute(0), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1},
			{Time: minute(1), Open: 10.5, High: 13, Low: 10, Close: 12, Volume: 2},
			{Time: minute(4), Open: 12, High: 12, Low: 8, Close: 9, Volume: 3},
			{Time: minute(5), Open: 9, High: 9.5, Low: 8.5, Close: 9.2, Volume: 4},
		},
	})

	feed := NewPanelFeed(src, Request{Instruments: []string{"A"}}, logger.Nop())
	rs := NewResampled(contracts.Minute5)
	col := NewCollector()
	rs.Subscribe(col)
	feed.Subscribe(rs)

	n, err := feed.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, rs.Emitted())

	rows := col.Panel().Rows()
	require.Len(t, rows, 2)

	first := rows[0].Bars["A"]
	assert.Equal(t, minute(0), first.Time)
	assert.Equal(t, 10.0, first.Open)
	assert.Equal(t, 13.0, first.High)
	assert.Equal(t, 8.0, first.Low)
	assert.Equal(t, 9.0, first.Close)
	assert.Equal(t, 6.0, first.Volume)

	second := rows[1].Bars["A"]
	assert.Equal(t, minute(5), second.Time)
	assert.Equal(t, 4.0, second.Volume)
}

func TestBucketStart(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	ts := time.Date(2024, 3, 4, 10, 47, 0, 0, loc)

	assert.Equal(t, time.Date(2024, 3, 4, 10, 45, 0, 0, loc), BucketStart(ts, contracts.Minute15))
	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 0, loc), BucketStart(ts, contracts.Hour))
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, loc), BucketStart(ts, contracts.Day))
}

func TestPanelFeed_Cancelled(t *testing.T) {
	src := NewMemorySource(map[string][]contracts.Bar{"A": {bar(0, 1, 1)}})
	feed := NewPanelFeed(src, Request{Instruments: []string{"A"}}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := feed.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
