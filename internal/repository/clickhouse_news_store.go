package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"GapCast/internal/domain/models"
	pkgch "GapCast/pkg/clickhouse"
	applogger "GapCast/pkg/logger"
)

const newsScrollPage = 1000

// CHNewsStore reads and writes labeled news events in ClickHouse. One row
// per (event, tag); a tag is either a stock symbol or an index code, so the
// symbol scroll and the index scroll run the same query shape.
type CHNewsStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHNewsStore(ch *pkgch.Client, table string) *CHNewsStore {
	if table == "" {
		table = "gapcast.news_events"
	}
	return &CHNewsStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHNewsStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHNewsStore) ScrollBySymbol(ctx context.Context, symbol string, startTs, endTs int64) ([]models.NewsRecord, error) {
	return s.scroll(ctx, strings.ToUpper(symbol), startTs, endTs)
}

func (s *CHNewsStore) ScrollByIndex(ctx context.Context, indexCode string, startTs, endTs int64) ([]models.NewsRecord, error) {
	return s.scroll(ctx, strings.ToUpper(indexCode), startTs, endTs)
}

// scroll pages through the whole [startTs, endTs] window with keyset
// pagination on (ts, root_id), so a window larger than one page never
// truncates silently.
func (s *CHNewsStore) scroll(ctx context.Context, tag string, startTs, endTs int64) ([]models.NewsRecord, error) {
	start := time.Now()
	const qtpl = `
        SELECT toUnixTimestamp(ts), label, sentiment, root_id
        FROM %s
        WHERE tag = ? AND ts >= ? AND ts <= ? AND (ts, root_id) > (?, ?)
        ORDER BY ts ASC, root_id ASC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, s.table)

	out := make([]models.NewsRecord, 0, newsScrollPage)
	lastTs := time.Unix(0, 0)
	lastID := ""
	for {
		rows, err := s.db.QueryContext(ctx, q,
			tag, time.Unix(startTs, 0), time.Unix(endTs, 0), lastTs, lastID, newsScrollPage)
		if err != nil {
			if s.l != nil {
				s.l.Error("clickhouse news scroll query error",
					applogger.String("table", s.table),
					applogger.String("tag", tag),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scroll news: %w", err)
		}

		n := 0
		for rows.Next() {
			var rec models.NewsRecord
			if err := rows.Scan(&rec.TimeTs, &rec.Label, &rec.Sentiment, &rec.RootID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan news record: %w", err)
			}
			out = append(out, rec)
			lastTs = time.Unix(rec.TimeTs, 0)
			lastID = rec.RootID
			n++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("news rows: %w", err)
		}
		rows.Close()

		if n < newsScrollPage {
			break
		}
	}

	if s.l != nil {
		s.l.Debug("clickhouse news scroll ok",
			applogger.String("table", s.table),
			applogger.String("tag", tag),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// StoreNews fans one ingested event out to a row per tag.
func (s *CHNewsStore) StoreNews(ctx context.Context, ev *models.NewsEvent) error {
	tags := make([]string, 0, len(ev.Symbols)+len(ev.IndexCodes))
	for _, sym := range ev.Symbols {
		tags = append(tags, strings.ToUpper(sym))
	}
	for _, code := range ev.IndexCodes {
		tags = append(tags, strings.ToUpper(code))
	}
	if len(tags) == 0 {
		return nil
	}

	values := make([]string, 0, len(tags))
	args := make([]interface{}, 0, len(tags)*5)
	for _, tag := range tags {
		values = append(values, "(?, ?, ?, ?, ?)")
		args = append(args, time.Unix(ev.TimeTs, 0), tag, ev.Label, ev.Sentiment, ev.RootID)
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, tag, label, sentiment, root_id) VALUES %s",
		s.table, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store news %s: %w", ev.RootID, err)
	}
	return nil
}
