package usecase

import (
	"context"
	"fmt"
	"strings"

	"GapCast/internal/domain/models"
	"GapCast/internal/service/stockdata"
	applogger "GapCast/pkg/logger"
	"GapCast/pkg/queue"
)

// BackfillJobType is the queue message type for daily-history backfills.
const BackfillJobType = "backfill_daily_bars"

// BackfillJobPayload is the queued backfill request.
type BackfillJobPayload struct {
	Symbol string `json:"symbol"`
	Days   int    `json:"days"`
}

// DailyBarWriter persists backfilled daily history.
type DailyBarWriter interface {
	StoreDailyBars(ctx context.Context, symbol string, bars []models.Bar) error
}

// BackfillJob pulls daily history for one symbol from the provider REST API
// and stores it, so freshly configured symbols have enough closes to train.
type BackfillJob struct {
	rest   *stockdata.RESTClient
	writer DailyBarWriter
	log    *applogger.Logger
}

func NewBackfillJob(rest *stockdata.RESTClient, writer DailyBarWriter, log *applogger.Logger) *BackfillJob {
	return &BackfillJob{rest: rest, writer: writer, log: log}
}

func (j *BackfillJob) Name() string { return "daily-bar-backfiller" }
func (j *BackfillJob) Type() string { return BackfillJobType }

func (j *BackfillJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[BackfillJobPayload](payload)
	if err != nil {
		return err
	}
	sym := strings.ToUpper(p.Symbol)
	if sym == "" {
		return fmt.Errorf("backfill: symbol required")
	}
	days := p.Days
	if days <= 0 {
		days = 400
	}

	bars, err := j.rest.FetchDailyBars(ctx, sym, days)
	if err != nil {
		return err
	}
	if err := j.writer.StoreDailyBars(ctx, sym, bars); err != nil {
		return err
	}

	j.log.Info("daily backfill done",
		applogger.String("symbol", sym),
		applogger.Int("bars", len(bars)),
	)
	return nil
}

var _ queue.Job = (*BackfillJob)(nil)
