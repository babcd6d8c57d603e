package forecast

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"GapCast/internal/domain/models"
	"GapCast/pkg/util"

	"github.com/stretchr/testify/require"
)

// ===== fakes =====

type fakePriceStore struct {
	closes   []models.ClosePoint
	daily    []models.Bar
	intraday []models.Bar

	closeCalls int
}

func (f *fakePriceStore) CloseSeries(_ context.Context, _ string, _ int) ([]models.ClosePoint, error) {
	f.closeCalls++
	return f.closes, nil
}

func (f *fakePriceStore) DailyBars(_ context.Context, _ string, n int) ([]models.Bar, error) {
	if n > len(f.daily) {
		n = len(f.daily)
	}
	return f.daily[len(f.daily)-n:], nil
}

func (f *fakePriceStore) IntradayBars(_ context.Context, _, _, _ string, _ int) ([]models.Bar, error) {
	return f.intraday, nil
}

type memModelStore struct {
	blobs map[string]any
	metas map[string]*models.ModelMeta
	// when set, Load always misses even after a Save
	alwaysMiss bool
}

func newMemModelStore() *memModelStore {
	return &memModelStore{blobs: map[string]any{}, metas: map[string]*models.ModelMeta{}}
}

func (m *memModelStore) Save(symbol, tag string, model any, meta *models.ModelMeta) (string, string, error) {
	key := symbol + "|" + tag
	m.blobs[key] = model
	m.metas[key] = meta
	return "mem://" + key, "mem://" + key + ".json", nil
}

func (m *memModelStore) Load(symbol, tag string) (any, *models.ModelMeta, error) {
	if m.alwaysMiss {
		return nil, nil, nil
	}
	key := symbol + "|" + tag
	blob, ok := m.blobs[key]
	if !ok {
		return nil, nil, nil
	}
	return blob, m.metas[key], nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// tradingDays yields n consecutive weekdays starting at start.
func tradingDays(start string, n int) []time.Time {
	d, _ := time.ParseInLocation("2006-01-02", start, util.ICT)
	out := make([]time.Time, 0, n)
	for len(out) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

// syntheticCloses builds a price path with small random log-returns.
func syntheticCloses(n int, seed int64) []models.ClosePoint {
	rng := rand.New(rand.NewSource(seed))
	days := tradingDays("2025-09-01", n)
	out := make([]models.ClosePoint, n)
	px := 100.0
	for i := range out {
		if i > 0 {
			px *= 1 + 0.01*rng.NormFloat64()
		}
		out[i] = models.ClosePoint{Date: days[i], Close: px}
	}
	return out
}

func testPipeline(prices *fakePriceStore, store *memModelStore, clock fixedClock) *Pipeline {
	return NewPipeline(Deps{
		News:     &fakeNewsStore{},
		Prices:   prices,
		Models:   store,
		Clock:    clock,
		MaxP:     1,
		MaxQ:     1,
		AddIndex: []string{"VNINDEX"},
	})
}

// ===== training =====

func TestTrainGapModelInsufficientCloses(t *testing.T) {
	prices := &fakePriceStore{closes: syntheticCloses(20, 1)}
	p := testPipeline(prices, newMemModelStore(), fixedClock{t: ictTime(2026, 3, 4, 16, 0)})

	_, _, _, err := p.TrainGapModel(context.Background(), "VNM", 365, nil)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestTrainGapModelInsufficientReturns(t *testing.T) {
	// enough closes, but most are non-positive so too few usable returns
	closes := syntheticCloses(70, 2)
	for i := 25; i < len(closes); i++ {
		closes[i].Close = 0
	}
	prices := &fakePriceStore{closes: closes}
	p := testPipeline(prices, newMemModelStore(), fixedClock{t: ictTime(2026, 3, 4, 16, 0)})

	_, _, _, err := p.TrainGapModel(context.Background(), "VNM", 365, nil)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestTrainGapModelProducesPersistedModel(t *testing.T) {
	prices := &fakePriceStore{closes: syntheticCloses(120, 3)}
	store := newMemModelStore()
	p := testPipeline(prices, store, fixedClock{t: ictTime(2026, 3, 4, 16, 0)})

	fit, meta, eval, err := p.TrainGapModel(context.Background(), "vnm", 365, nil)
	require.NoError(t, err)
	require.NotNil(t, fit)
	require.Equal(t, "VNM", meta.Symbol)
	require.Equal(t, "gap_ret", meta.Target)
	require.Equal(t, len(fit.Dates), meta.TrainLen)
	require.Greater(t, meta.LastClose, 0.0)
	require.Greater(t, meta.NextPriceEst, 0.0)
	require.Greater(t, eval.RMSE, 0.0)

	// lagged-return features carry signal even with zero news
	require.True(t, meta.UseExog)
	require.Contains(t, meta.FeatureCols, "ret_lag1")
	require.Contains(t, meta.FeatureCols, "ret_lag5")

	// persisted under the gap tag
	reloaded, rmeta, err := store.Load("VNM", "gap")
	require.NoError(t, err)
	require.Same(t, fit, reloaded)
	require.Equal(t, meta.Order, rmeta.Order)
}

func TestTrainingExogNeverSeesSameDayNews(t *testing.T) {
	closes := syntheticCloses(120, 7)
	yDates, _ := toReturns(closes)
	tDay := yDates[len(yDates)-1]
	prevDay := yDates[len(yDates)-2]

	// one positive article on the last return day, one negative the day
	// before
	news := &fakeNewsStore{bySymbol: map[string][]models.NewsRecord{
		"VNM": {
			{TimeTs: tDay.Add(9 * time.Hour).Unix(), Label: models.LabelPos, Sentiment: 1, RootID: "same-day"},
			{TimeTs: prevDay.Add(9 * time.Hour).Unix(), Label: models.LabelNeg, Sentiment: -1, RootID: "day-before"},
		},
	}}
	p := NewPipeline(Deps{
		News:   news,
		Prices: &fakePriceStore{closes: closes},
		Models: newMemModelStore(),
		Clock:  fixedClock{t: ictTime(2026, 3, 4, 16, 0)},
		MaxP:   1,
		MaxQ:   1,
	})

	X, err := p.alignExogToY(context.Background(), "VNM", yDates, nil)
	require.NoError(t, err)

	// the row predicting day t only carries day t-1 information: the
	// same-day article is invisible, yesterday's arrives via the shift
	last := X.Len() - 1
	require.Equal(t, 0.0, X.At(last, "pos_count"))
	require.Equal(t, 1.0, X.At(last, "neg_count"))
	require.InDelta(t, -1.0, X.At(last, "sum_sent"), 1e-12)

	// one step later the day-t article is exactly what the inference row
	// for the next session sees
	row, err := p.buildExogRowForForecast(context.Background(), "VNM", tDay,
		[]string{"pos_count", "neg_count"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1.0, row[0])
	require.Equal(t, 0.0, row[1])
}

// ===== inference =====

func TestForecastGapTrainsOnMiss(t *testing.T) {
	closes := syntheticCloses(120, 4)
	prices := &fakePriceStore{
		closes: closes,
		daily:  []models.Bar{{Bucket: closes[len(closes)-1].Date, Close: closes[len(closes)-1].Close}},
	}
	store := newMemModelStore()
	p := testPipeline(prices, store, fixedClock{t: ictTime(2026, 3, 4, 16, 0)})

	fc, err := p.ForecastGap(context.Background(), "VNM", 0.10)
	require.NoError(t, err)
	require.Equal(t, "VNM", fc.Symbol)
	require.Less(t, fc.GapRetCI[0], fc.GapRetMean)
	require.Greater(t, fc.GapRetCI[1], fc.GapRetMean)
	require.InDelta(t, closes[len(closes)-1].Close, fc.LastClose, 1e-9)

	// the on-demand training persisted the model, and the forecast reports
	// the same exog decision the persisted meta records
	blob, meta, err := store.Load("VNM", "gap")
	require.NoError(t, err)
	require.NotNil(t, blob)
	require.NotNil(t, meta)
	require.Equal(t, meta.UseExog, fc.UseExog)
}

func TestForecastGapRegistryConsistency(t *testing.T) {
	prices := &fakePriceStore{closes: syntheticCloses(120, 5)}
	store := newMemModelStore()
	store.alwaysMiss = true
	p := testPipeline(prices, store, fixedClock{t: ictTime(2026, 3, 4, 16, 0)})

	_, err := p.ForecastGap(context.Background(), "VNM", 0.10)
	require.ErrorIs(t, err, ErrRegistryConsistency)
}

// ===== band composition =====

func TestPriceFromRet(t *testing.T) {
	band := PriceFromRet(100000, 0.01, [2]float64{-0.02, 0.03})
	require.InDelta(t, 101005.02, band.PxMean, 0.01)
	require.Less(t, band.PxLo, band.PxMean)
	require.Greater(t, band.PxHi, band.PxMean)
}

func TestDirFromGap(t *testing.T) {
	up := models.PriceBand{PxMean: 102, PxLo: 101, PxHi: 103}
	dir, gapPct, conf := DirFromGap(100, up)
	require.Equal(t, models.DirUp, dir)
	require.InDelta(t, 2.0, gapPct, 1e-9)
	require.Equal(t, models.ConfUp, conf)

	down := models.PriceBand{PxMean: 98, PxLo: 97, PxHi: 99}
	dir, _, conf = DirFromGap(100, down)
	require.Equal(t, models.DirDown, dir)
	require.Equal(t, models.ConfDown, conf)

	// interval straddles the close: direction by mean, confidence uncertain
	wide := models.PriceBand{PxMean: 101, PxLo: 99, PxHi: 103}
	dir, _, conf = DirFromGap(100, wide)
	require.Equal(t, models.DirUp, dir)
	require.Equal(t, models.ConfUncertain, conf)

	flat := models.PriceBand{PxMean: 100, PxLo: 99, PxHi: 101}
	dir, gapPct, _ = DirFromGap(100, flat)
	require.Equal(t, models.DirUnchanged, dir)
	require.InDelta(t, 0.0, gapPct, 1e-9)
}

func TestPredictTomorrowFullExogChainsBands(t *testing.T) {
	closes := syntheticCloses(120, 6)
	prices := &fakePriceStore{
		closes: closes,
		daily:  []models.Bar{{Bucket: closes[len(closes)-1].Date, Close: closes[len(closes)-1].Close}},
	}
	// Wednesday after close: the target day is Thursday
	p := testPipeline(prices, newMemModelStore(), fixedClock{t: ictTime(2026, 3, 4, 16, 0)})

	full, err := p.PredictTomorrowFullExog(context.Background(), "VNM", 0.10)
	require.NoError(t, err)
	require.Equal(t, "2026-03-05", full.TargetDay)
	require.Equal(t, "out_of_session", full.Mode)

	open := full.Bands["OPEN_am"]
	am := full.Bands["AM_px"]
	pm := full.Bands["PM_px"]
	// placeholder AM/PM bands are zero-mean: each stage's mean price carries
	// through unchanged while the band widens multiplicatively
	require.InDelta(t, open.PxMean, am.PxMean, 1e-9)
	require.InDelta(t, am.PxMean, pm.PxMean, 1e-9)
	require.Less(t, am.PxLo, am.PxMean)
	require.Greater(t, am.PxHi, am.PxMean)

	require.Contains(t, []string{models.DirUp, models.DirDown, models.DirUnchanged}, full.OpenDirection)
	require.Contains(t, []string{models.ConfUp, models.ConfDown, models.ConfUncertain}, full.OpenConfidence)
}

// ===== in-session =====

func TestPredictNextStepOutsideSession(t *testing.T) {
	p := testPipeline(&fakePriceStore{}, newMemModelStore(), fixedClock{t: ictTime(2026, 3, 4, 8, 0)})

	step := p.PredictNextStepInSession(context.Background(), "VNM")
	require.Equal(t, "Phiên chưa mở, hãy dùng dự báo phiên kế tiếp.", step.Error)
	require.Equal(t, "in_session", step.Mode)
	require.Empty(t, step.SourceUsed)
}

func TestPredictNextStepIntraday(t *testing.T) {
	now := ictTime(2026, 3, 4, 10, 0)
	bars := make([]models.Bar, 8)
	px := 100.0
	for i := range bars {
		px *= 1.001 // steadily rising morning
		bars[i] = models.Bar{Bucket: now.Add(time.Duration(i-8) * time.Minute), Close: px}
	}
	prices := &fakePriceStore{intraday: bars}
	p := testPipeline(prices, newMemModelStore(), fixedClock{t: now})

	step := p.PredictNextStepInSession(context.Background(), "VNM")
	require.Empty(t, step.Error)
	require.Equal(t, "AM", step.Session)
	require.Equal(t, "intraday", step.SourceUsed)
	require.Equal(t, models.DirUp, step.NextStepDir)
	require.Len(t, step.PathPred, 3)
	require.Greater(t, step.PathPred[0], step.LastPx)
	require.Equal(t, "high", step.StepConfidence) // constant drift, zero spread
}

func TestPredictNextStepIgnoresFutureBars(t *testing.T) {
	now := ictTime(2026, 3, 4, 10, 0)
	// every bar is time-stamped after now, so none are usable and the daily
	// fallback kicks in
	bars := make([]models.Bar, 8)
	for i := range bars {
		bars[i] = models.Bar{Bucket: now.Add(time.Duration(i+1) * time.Minute), Close: 100}
	}
	daily := make([]models.Bar, 5)
	px := 100.0
	for i := range daily {
		px *= 0.99
		daily[i] = models.Bar{Bucket: now.AddDate(0, 0, i-5), Close: px}
	}
	prices := &fakePriceStore{intraday: bars, daily: daily}
	p := testPipeline(prices, newMemModelStore(), fixedClock{t: now})

	step := p.PredictNextStepInSession(context.Background(), "VNM")
	require.Equal(t, "daily_fallback", step.SourceUsed)
	require.Equal(t, "Thiếu dữ liệu intraday, dùng dữ liệu ngày.", step.Error)
	require.Equal(t, "low", step.StepConfidence)
	require.Equal(t, models.DirDown, step.NextStepDir)
}

func TestPredictNextStepExhausted(t *testing.T) {
	p := testPipeline(&fakePriceStore{}, newMemModelStore(), fixedClock{t: ictTime(2026, 3, 4, 14, 0)})

	step := p.PredictNextStepInSession(context.Background(), "VNM")
	require.Equal(t, "Không đủ dữ liệu cả intraday lẫn daily.", step.Error)
}

// ===== next session =====

func TestPredictNextSessionPMUsesMorningClose(t *testing.T) {
	now := ictTime(2026, 3, 4, 12, 0) // lunch: next session is PM today
	bars := []models.Bar{
		{Bucket: ictTime(2026, 3, 4, 9, 30), Close: 100.2},
		{Bucket: ictTime(2026, 3, 4, 11, 25), Close: 100.8},
		// afternoon bar from a stale window must not become the base
		{Bucket: ictTime(2026, 3, 4, 14, 0), Close: 105},
	}
	prices := &fakePriceStore{intraday: bars}
	p := testPipeline(prices, newMemModelStore(), fixedClock{t: now})

	sf, err := p.PredictNextSession(context.Background(), "VNM", 0.10, "VCI", "")
	require.NoError(t, err)
	require.Equal(t, "PM", sf.NextSession)
	require.Equal(t, "2026-03-04", sf.TargetDay)
	require.Equal(t, "AM_close", sf.BaseFrom)
	require.InDelta(t, 100.8, sf.PMBand.PxMean, 1e-9)
	require.Equal(t, models.DirUnchanged, sf.PMDirection)
	require.Equal(t, models.ConfUncertain, sf.PMConfidence)
}

func TestPredictNextSessionPMFallsBackToDailyClose(t *testing.T) {
	now := ictTime(2026, 3, 4, 12, 0)
	prices := &fakePriceStore{
		daily: []models.Bar{{Bucket: ictTime(2026, 3, 3, 0, 0), Close: 99.5}},
	}
	p := testPipeline(prices, newMemModelStore(), fixedClock{t: now})

	sf, err := p.PredictNextSession(context.Background(), "VNM", 0.10, "VCI", "")
	require.NoError(t, err)
	require.Equal(t, "last_close_daily", sf.BaseFrom)
	require.InDelta(t, 99.5, sf.PMBand.PxMean, 1e-9)
}

// ===== routing =====

func TestSmartPredictRoutesBySession(t *testing.T) {
	closes := syntheticCloses(120, 8)
	prices := &fakePriceStore{
		closes: closes,
		daily:  []models.Bar{{Bucket: closes[len(closes)-1].Date, Close: closes[len(closes)-1].Close}},
	}

	// post-close: out-of-session path with a next-session forecast
	p := testPipeline(prices, newMemModelStore(), fixedClock{t: ictTime(2026, 3, 4, 16, 0)})
	sm, err := p.SmartPredict(context.Background(), "VNM", 0.10, "VCI")
	require.NoError(t, err)
	require.Equal(t, "out_of_session", sm.Mode)
	require.NotNil(t, sm.Next)
	require.Nil(t, sm.Step)
	require.Equal(t, "AM", sm.Next.NextSession)

	// in the morning the step path answers, even when it degrades
	p = testPipeline(prices, newMemModelStore(), fixedClock{t: ictTime(2026, 3, 4, 10, 0)})
	sm, err = p.SmartPredict(context.Background(), "VNM", 0.10, "VCI")
	require.NoError(t, err)
	require.Equal(t, "in_session", sm.Mode)
	require.Equal(t, "AM", sm.Session)
	require.NotNil(t, sm.Step)
	require.Nil(t, sm.Next)
}
