package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"GapCast/internal/domain/models"
	domrepo "GapCast/internal/domain/repository"
	"GapCast/internal/forecast"
	svccache "GapCast/internal/service/cache"
	pkgcache "GapCast/pkg/cache"
	applogger "GapCast/pkg/logger"
)

// ForecastUseCase fronts the pipeline with a short TTL cache and publishes
// fresh gap forecasts downstream. Cache TTLs are short on purpose: a smart
// forecast is only stable within a session minute, a gap forecast within the
// trading day.
type ForecastUseCase struct {
	pipe      *forecast.Pipeline
	cache     *svccache.TTLCache
	publisher domrepo.ForecastPublisher
	metrics   domrepo.Metrics
	log       *applogger.Logger

	// optional distributed lock so only one instance retrains a symbol at a time
	locks pkgcache.Service

	smartTTL time.Duration
	gapTTL   time.Duration
	timeout  time.Duration
}

func NewForecastUseCase(
	pipe *forecast.Pipeline,
	cache *svccache.TTLCache,
	publisher domrepo.ForecastPublisher,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	smartTTL, gapTTL time.Duration,
) *ForecastUseCase {
	if smartTTL <= 0 {
		smartTTL = 60 * time.Second
	}
	if gapTTL <= 0 {
		gapTTL = 10 * time.Minute
	}
	return &ForecastUseCase{
		pipe:      pipe,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		smartTTL:  smartTTL,
		gapTTL:    gapTTL,
		timeout:   30 * time.Second,
	}
}

func (uc *ForecastUseCase) Gap(ctx context.Context, symbol string, alpha float64) (*models.FullDayForecast, error) {
	sym := strings.ToUpper(symbol)
	if sym == "" {
		return nil, fmt.Errorf("symbol required")
	}
	key := fmt.Sprintf("gap:%s:%.3f", sym, alpha)
	if v, ok := uc.cache.Get(key); ok {
		return v.(*models.FullDayForecast), nil
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	res, err := uc.pipe.PredictTomorrowFullExog(ctx, sym, alpha)
	if err != nil {
		return nil, err
	}
	uc.cache.Set(key, res, uc.gapTTL)

	if uc.publisher != nil {
		if perr := uc.publisher.PublishForecast(ctx, &res.Gap); perr != nil {
			uc.log.Warn("forecast publish failed",
				applogger.String("symbol", sym),
				applogger.Error(perr),
			)
		}
	}
	return res, nil
}

func (uc *ForecastUseCase) Smart(ctx context.Context, symbol string, alpha float64, source string) (*models.SmartForecast, error) {
	sym := strings.ToUpper(symbol)
	if sym == "" {
		return nil, fmt.Errorf("symbol required")
	}
	key := fmt.Sprintf("smart:%s:%.3f:%s", sym, alpha, source)
	if v, ok := uc.cache.Get(key); ok {
		return v.(*models.SmartForecast), nil
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	res, err := uc.pipe.SmartPredict(ctx, sym, alpha, source)
	if err != nil {
		return nil, err
	}
	uc.cache.Set(key, res, uc.smartTTL)
	return res, nil
}

func (uc *ForecastUseCase) NextSession(ctx context.Context, symbol string, alpha float64, source, interval string) (*models.SessionForecast, error) {
	sym := strings.ToUpper(symbol)
	if sym == "" {
		return nil, fmt.Errorf("symbol required")
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	return uc.pipe.PredictNextSession(ctx, sym, alpha, source, interval)
}

// SetLockService installs a distributed lock used to single-flight training.
func (uc *ForecastUseCase) SetLockService(s pkgcache.Service) { uc.locks = s }

// Train runs a training pass synchronously and publishes the trained event.
func (uc *ForecastUseCase) Train(ctx context.Context, symbol string, lookbackDays int, addIndex []string) (*models.ModelMeta, *models.EvalReport, error) {
	sym := strings.ToUpper(symbol)
	if sym == "" {
		return nil, nil, fmt.Errorf("symbol required")
	}

	if uc.locks != nil {
		lockKey := "train_lock:" + sym
		ok, lerr := uc.locks.TryLock(ctx, lockKey, 5*time.Minute)
		if lerr != nil {
			uc.log.Warn("training lock unavailable, proceeding without it",
				applogger.String("symbol", sym),
				applogger.Error(lerr),
			)
		} else if !ok {
			return nil, nil, fmt.Errorf("training already in progress for %s", sym)
		} else {
			defer func() { _ = uc.locks.Unlock(context.WithoutCancel(ctx), lockKey) }()
		}
	}

	_, meta, eval, err := uc.pipe.TrainGapModel(ctx, sym, lookbackDays, addIndex)
	if err != nil {
		return nil, nil, err
	}

	// a retrain invalidates every cached forecast for the symbol
	uc.cache.DeletePrefix("gap:" + sym)
	uc.cache.DeletePrefix("smart:" + sym)

	if uc.publisher != nil {
		if perr := uc.publisher.PublishTrained(ctx, meta); perr != nil {
			uc.log.Warn("trained event publish failed",
				applogger.String("symbol", sym),
				applogger.Error(perr),
			)
		}
	}
	return meta, eval, nil
}
