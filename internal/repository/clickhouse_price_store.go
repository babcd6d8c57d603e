package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"GapCast/internal/domain/models"
	domrepo "GapCast/internal/domain/repository"
	pkgch "GapCast/pkg/clickhouse"
	applogger "GapCast/pkg/logger"
	"GapCast/pkg/util"
)

// CHPriceStore implements PriceStore and TickWriter over the ClickHouse
// price tables: one daily table plus one intraday table per interval, each
// keyed by (symbol, source, bucket).
type CHPriceStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHPriceStore(ch *pkgch.Client) *CHPriceStore {
	return &CHPriceStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

// CloseSeries returns the last `days` calendar days of daily closes in
// ascending day order.
func (s *CHPriceStore) CloseSeries(ctx context.Context, symbol string, days int) ([]models.ClosePoint, error) {
	start := time.Now()
	from := time.Now().In(util.ICT).AddDate(0, 0, -days)
	const q = `
        SELECT bucket, close
        FROM gapcast.daily_bars
        WHERE symbol = ? AND bucket >= ?
        ORDER BY bucket ASC
    `
	rows, err := s.db.QueryContext(ctx, q, strings.ToUpper(symbol), from)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse close_series query error",
				applogger.String("symbol", symbol),
				applogger.Int("days", days),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("close series: %w", err)
	}
	defer rows.Close()

	out := make([]models.ClosePoint, 0, days)
	for rows.Next() {
		var p models.ClosePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("scan close point: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("close series rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse close_series ok",
			applogger.String("symbol", symbol),
			applogger.Int("days", days),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// DailyBars returns the last n daily bars in ascending bucket order.
func (s *CHPriceStore) DailyBars(ctx context.Context, symbol string, n int) ([]models.Bar, error) {
	const q = `
        SELECT bucket, symbol, open, high, low, close, vol
        FROM gapcast.daily_bars
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	bars, err := s.queryBars(ctx, q, strings.ToUpper(symbol), n)
	if err != nil {
		return nil, fmt.Errorf("daily bars: %w", err)
	}
	reverseBars(bars)
	return bars, nil
}

// IntradayBars returns intraday bars for one symbol/source/interval over the
// last `days` days, ascending. An empty source means the default provider.
func (s *CHPriceStore) IntradayBars(ctx context.Context, symbol, source, interval string, days int) ([]models.Bar, error) {
	table, err := tableForInterval(interval)
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = "default"
	}
	from := time.Now().In(util.ICT).AddDate(0, 0, -days)

	const qtpl = `
        SELECT bucket, symbol, open, high, low, close, vol
        FROM %s
        WHERE symbol = ? AND source = ? AND bucket >= ?
        ORDER BY bucket ASC
    `
	q := fmt.Sprintf(qtpl, table)
	bars, err := s.queryBars(ctx, q, strings.ToUpper(symbol), source, from)
	if err != nil {
		if s.l != nil {
			s.l.Debug("clickhouse intraday query failed, cascading",
				applogger.String("symbol", symbol),
				applogger.String("source", source),
				applogger.String("interval", interval),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("intraday bars: %w", err)
	}
	return bars, nil
}

func (s *CHPriceStore) queryBars(ctx context.Context, q string, args ...interface{}) ([]models.Bar, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 256)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Bucket, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// StoreTick appends one raw trade event. Bucketing into bars happens in
// ClickHouse materialized views, not here.
func (s *CHPriceStore) StoreTick(ctx context.Context, t *models.Tick) error {
	const q = `INSERT INTO gapcast.ticks_raw (ts, symbol, price, volume, source) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		time.Unix(t.Timestamp, 0),
		strings.ToUpper(t.Symbol),
		t.Price,
		t.Volume,
		"default",
	)
	if err != nil {
		return fmt.Errorf("store tick: %w", err)
	}
	return nil
}

// StoreDailyBars bulk-inserts backfilled daily history. ReplacingMergeTree on
// the target table makes re-running a backfill idempotent.
func (s *CHPriceStore) StoreDailyBars(ctx context.Context, symbol string, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	sym := strings.ToUpper(symbol)
	values := make([]string, 0, len(bars))
	args := make([]interface{}, 0, len(bars)*7)
	for _, b := range bars {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, b.Bucket, sym, b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	q := "INSERT INTO gapcast.daily_bars (bucket, symbol, open, high, low, close, vol) VALUES " +
		strings.Join(values, ",")
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store daily bars %s: %w", sym, err)
	}
	return nil
}

func tableForInterval(interval string) (string, error) {
	switch interval {
	case domrepo.Interval1m:
		return "gapcast.intraday_bars_1m", nil
	case domrepo.Interval5m:
		return "gapcast.intraday_bars_5m", nil
	case domrepo.Interval15m:
		return "gapcast.intraday_bars_15m", nil
	default:
		return "", fmt.Errorf("unsupported interval: %s", interval)
	}
}

func reverseBars(bars []models.Bar) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}
