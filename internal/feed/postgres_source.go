package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorpool/internal/contracts"
)

// PostgresSource reads minute bars from a table shaped
// (market, symbol, ts, open, high, low, close, volume)
type PostgresSource struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresSource creates a PostgreSQL bar source
func NewPostgresSource(pool *pgxpool.Pool, table string) *PostgresSource {
	return &PostgresSource{pool: pool, table: table}
}

// Load implements Source
func (s *PostgresSource) Load(ctx context.Context, req Request) (*Panel, error) {
	start := req.Start
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	end := req.End
	if end.IsZero() {
		end = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}

	query := fmt.Sprintf(`
		SELECT symbol, ts, open, high, low, close, volume
		FROM %s
		WHERE market = $1 AND symbol = ANY($2) AND ts BETWEEN $3 AND $4
		ORDER BY ts ASC, symbol ASC
	`, pgx.Identifier{s.table}.Sanitize())

	rows, err := s.pool.Query(ctx, query, string(req.Market), req.Instruments, start, end)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	builder := NewPanelBuilder()
	for rows.Next() {
		var sym string
		var b contracts.Bar
		if err := rows.Scan(&sym, &b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		builder.Add(sym, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}

	return builder.Build(), nil
}

// saveBatchSize caps the statements queued per round trip
const saveBatchSize = 1000

// Save upserts bars of one instrument; existing rows at the same timestamp are
// overwritten. It returns the number of rows written.
func (s *PostgresSource) Save(ctx context.Context, market contracts.Market, symbol string, bars []contracts.Bar) (int, error) {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (market, symbol, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (market, symbol, ts) DO UPDATE SET
			open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
			close = EXCLUDED.close, volume = EXCLUDED.volume
	`, pgx.Identifier{s.table}.Sanitize())

	written := 0
	for from := 0; from < len(bars); from += saveBatchSize {
		to := min(from+saveBatchSize, len(bars))

		batch := &pgx.Batch{}
		for _, b := range bars[from:to] {
			batch.Queue(stmt, string(market), symbol, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume)
		}

		if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
			return written, fmt.Errorf("save %s bars: %w", symbol, err)
		}
		written += to - from
	}
	return written, nil
}
