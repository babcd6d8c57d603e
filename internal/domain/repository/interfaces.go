package repository

import (
	"context"
	"time"

	"GapCast/internal/domain/models"
)

// NewsStore is the document-store contract for the feature builder. Both
// methods must return every matching record (exhaustive pagination), since
// downstream daily aggregation needs completeness, not relevance ranking.
type NewsStore interface {
	ScrollBySymbol(ctx context.Context, symbol string, fromTs, toTs int64) ([]models.NewsRecord, error)
	ScrollByIndex(ctx context.Context, indexCode string, fromTs, toTs int64) ([]models.NewsRecord, error)
}

// NewsWriter persists scored news events arriving from the ingestion topic.
type NewsWriter interface {
	StoreNews(ctx context.Context, ev *models.NewsEvent) error
}

// PriceStore serves daily and intraday history. IntradayBars may return an
// empty slice on provider gaps; callers treat empty as "try the next
// source/interval", never as an error.
type PriceStore interface {
	CloseSeries(ctx context.Context, symbol string, days int) ([]models.ClosePoint, error)
	DailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error)
	IntradayBars(ctx context.Context, symbol, source, interval string, days int) ([]models.Bar, error)
}

// TickWriter stores raw provider trades bucketed into intraday bars.
type TickWriter interface {
	StoreTick(ctx context.Context, t *models.Tick) error
}

// ModelStore persists fitted models with their metadata. Load reports
// absence as (nil, nil, nil) so callers can trigger on-demand training.
type ModelStore interface {
	Save(symbol, tag string, model any, meta *models.ModelMeta) (modelPath, metaPath string, err error)
	Load(symbol, tag string) (model any, meta *models.ModelMeta, err error)
}

// Clock provides the timezone-aware "now" every calendar decision keys on.
type Clock interface {
	Now() time.Time
}

// Calendar answers exchange-closure questions beyond the weekend rule.
type Calendar interface {
	IsHoliday(d time.Time) bool
}

// MarketStream is a live trade feed from the data provider.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// ForecastPublisher emits trained-model and forecast events for downstream
// consumers (the chat orchestration layer subscribes to these).
type ForecastPublisher interface {
	PublishTrained(ctx context.Context, meta *models.ModelMeta) error
	PublishForecast(ctx context.Context, fc *models.GapForecast) error
	Close() error
}

type Metrics interface {
	RecordTrain(symbol, outcome string)
	RecordGridFit(outcome string)
	RecordForecast(kind, symbol string)
	RecordError(kind string)
	RecordNextPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
