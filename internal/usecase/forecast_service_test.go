package usecase

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"GapCast/internal/domain/models"
	"GapCast/internal/forecast"
	svccache "GapCast/internal/service/cache"
	pkgcache "GapCast/pkg/cache"
	applogger "GapCast/pkg/logger"
	"GapCast/pkg/util"

	"github.com/stretchr/testify/require"
)

type stubNewsStore struct{}

func (stubNewsStore) ScrollBySymbol(context.Context, string, int64, int64) ([]models.NewsRecord, error) {
	return nil, nil
}
func (stubNewsStore) ScrollByIndex(context.Context, string, int64, int64) ([]models.NewsRecord, error) {
	return nil, nil
}

type countingPriceStore struct {
	closes     []models.ClosePoint
	daily      []models.Bar
	closeCalls int
	dailyCalls int
}

func (s *countingPriceStore) CloseSeries(context.Context, string, int) ([]models.ClosePoint, error) {
	s.closeCalls++
	return s.closes, nil
}

func (s *countingPriceStore) DailyBars(context.Context, string, int) ([]models.Bar, error) {
	s.dailyCalls++
	return s.daily, nil
}

func (s *countingPriceStore) IntradayBars(context.Context, string, string, string, int) ([]models.Bar, error) {
	return nil, nil
}

type memStore struct {
	blobs map[string]any
	metas map[string]*models.ModelMeta
}

func newMemStore() *memStore {
	return &memStore{blobs: map[string]any{}, metas: map[string]*models.ModelMeta{}}
}

func (m *memStore) Save(symbol, tag string, model any, meta *models.ModelMeta) (string, string, error) {
	m.blobs[symbol+tag] = model
	m.metas[symbol+tag] = meta
	return "mem", "mem", nil
}

func (m *memStore) Load(symbol, tag string) (any, *models.ModelMeta, error) {
	blob, ok := m.blobs[symbol+tag]
	if !ok {
		return nil, nil, nil
	}
	return blob, m.metas[symbol+tag], nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type recordingPublisher struct {
	trained   int
	forecasts int
}

func (p *recordingPublisher) PublishTrained(context.Context, *models.ModelMeta) error {
	p.trained++
	return nil
}

func (p *recordingPublisher) PublishForecast(context.Context, *models.GapForecast) error {
	p.forecasts++
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func testCloses(n int) []models.ClosePoint {
	rng := rand.New(rand.NewSource(17))
	day, _ := time.ParseInLocation("2006-01-02", "2025-09-01", util.ICT)
	out := make([]models.ClosePoint, 0, n)
	px := 100.0
	for len(out) < n {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			if len(out) > 0 {
				px *= 1 + 0.01*rng.NormFloat64()
			}
			out = append(out, models.ClosePoint{Date: day, Close: px})
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

func testUseCase(t *testing.T, prices *countingPriceStore, pub *recordingPublisher) *ForecastUseCase {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stdout"})
	require.NoError(t, err)

	pipe := forecast.NewPipeline(forecast.Deps{
		News:   stubNewsStore{},
		Prices: prices,
		Models: newMemStore(),
		Clock:  fixedClock{t: time.Date(2026, 3, 4, 16, 0, 0, 0, util.ICT)},
		MaxP:   1,
		MaxQ:   1,
	})
	return NewForecastUseCase(pipe, svccache.NewTTLCache(), pub, nil, log, time.Minute, 10*time.Minute)
}

func TestGapIsCachedPerSymbolAndAlpha(t *testing.T) {
	closes := testCloses(120)
	prices := &countingPriceStore{
		closes: closes,
		daily:  []models.Bar{{Bucket: closes[len(closes)-1].Date, Close: closes[len(closes)-1].Close}},
	}
	pub := &recordingPublisher{}
	uc := testUseCase(t, prices, pub)

	first, err := uc.Gap(context.Background(), "vnm", 0.10)
	require.NoError(t, err)
	callsAfterFirst := prices.closeCalls
	require.Greater(t, callsAfterFirst, 0)
	require.Equal(t, 1, pub.forecasts)

	// second identical request is served from cache: no store traffic, no
	// duplicate publish
	second, err := uc.Gap(context.Background(), "VNM", 0.10)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, callsAfterFirst, prices.closeCalls)
	require.Equal(t, 1, pub.forecasts)

	// a different alpha is a different cache entry
	_, err = uc.Gap(context.Background(), "VNM", 0.05)
	require.NoError(t, err)
	require.Greater(t, prices.closeCalls, callsAfterFirst)
}

func TestGapRequiresSymbol(t *testing.T) {
	uc := testUseCase(t, &countingPriceStore{}, &recordingPublisher{})
	_, err := uc.Gap(context.Background(), "", 0.10)
	require.Error(t, err)
}

func TestTrainInvalidatesCachedForecasts(t *testing.T) {
	closes := testCloses(120)
	prices := &countingPriceStore{
		closes: closes,
		daily:  []models.Bar{{Bucket: closes[len(closes)-1].Date, Close: closes[len(closes)-1].Close}},
	}
	pub := &recordingPublisher{}
	uc := testUseCase(t, prices, pub)

	_, err := uc.Gap(context.Background(), "VNM", 0.10)
	require.NoError(t, err)

	meta, eval, err := uc.Train(context.Background(), "VNM", 0, nil)
	require.NoError(t, err)
	require.Equal(t, "VNM", meta.Symbol)
	require.NotNil(t, eval)
	require.Equal(t, 1, pub.trained)

	// the retrain dropped the cached entry, so the next Gap recomputes
	callsBefore := prices.closeCalls
	_, err = uc.Gap(context.Background(), "VNM", 0.10)
	require.NoError(t, err)
	require.Greater(t, prices.closeCalls, callsBefore)
}

func TestTrainHoldsDistributedLock(t *testing.T) {
	closes := testCloses(120)
	prices := &countingPriceStore{closes: closes}
	uc := testUseCase(t, prices, &recordingPublisher{})

	locks := pkgcache.NewMemoryCache()
	uc.SetLockService(locks)

	// simulate another instance already training the symbol
	held, err := locks.TryLock(context.Background(), "train_lock:VNM", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	_, _, err = uc.Train(context.Background(), "VNM", 0, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already in progress")

	// after release, training proceeds and the lock is freed again
	require.NoError(t, locks.Unlock(context.Background(), "train_lock:VNM"))
	_, _, err = uc.Train(context.Background(), "VNM", 0, nil)
	require.NoError(t, err)

	held, err = locks.TryLock(context.Background(), "train_lock:VNM", time.Minute)
	require.NoError(t, err)
	require.True(t, held)
}
