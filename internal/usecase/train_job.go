package usecase

import (
	"context"

	applogger "GapCast/pkg/logger"
	"GapCast/pkg/queue"
)

// TrainJobType is the queue message type for background retraining.
const TrainJobType = "train_gap_model"

// TrainJobPayload is the queued retrain request.
type TrainJobPayload struct {
	Symbol       string   `json:"symbol"`
	LookbackDays int      `json:"lookback_days"`
	AddIndex     []string `json:"add_index"`
}

// TrainJob retrains one symbol's gap model off the request path. Nightly
// schedules and the train endpoint both enqueue through this job.
type TrainJob struct {
	uc  *ForecastUseCase
	log *applogger.Logger
}

func NewTrainJob(uc *ForecastUseCase, log *applogger.Logger) *TrainJob {
	return &TrainJob{uc: uc, log: log}
}

func (j *TrainJob) Name() string { return "gap-model-trainer" }
func (j *TrainJob) Type() string { return TrainJobType }

func (j *TrainJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[TrainJobPayload](payload)
	if err != nil {
		return err
	}

	meta, _, err := j.uc.Train(ctx, p.Symbol, p.LookbackDays, p.AddIndex)
	if err != nil {
		j.log.Error("queued training failed",
			applogger.String("symbol", p.Symbol),
			applogger.Error(err),
		)
		return err
	}

	j.log.Info("queued training done",
		applogger.String("symbol", meta.Symbol),
		applogger.Any("order", meta.Order),
		applogger.Float64("aic", meta.AIC),
	)
	return nil
}

var _ queue.Job = (*TrainJob)(nil)
