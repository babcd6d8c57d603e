package forecast

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"GapCast/internal/domain/models"
	domrepo "GapCast/internal/domain/repository"
	applogger "GapCast/pkg/logger"
	"GapCast/pkg/util"
)

const (
	minCloseObs  = 60
	minReturnObs = 30
	gapTag       = "gap"
	dirEps       = 1e-9
)

var defaultAddIndex = []string{"VNINDEX", "VN30"}

// Rolling lagged-return windows, in trading days.
var retLagWindows = []int{1, 2, 5}

// Deps are the collaborators the pipeline runs against.
type Deps struct {
	News     domrepo.NewsStore
	Prices   domrepo.PriceStore
	Models   domrepo.ModelStore
	Clock    domrepo.Clock
	Calendar domrepo.Calendar
	Logger   *applogger.Logger
	Metrics  domrepo.Metrics

	MaxP, MaxQ   int
	LookbackDays int
	AddIndex     []string
}

// Pipeline trains and serves the overnight gap-return model and composes the
// multi-stage session forecasts on top of it.
type Pipeline struct {
	feats    *FeatureBuilder
	prices   domrepo.PriceStore
	store    domrepo.ModelStore
	clock    domrepo.Clock
	cal      *TradingCalendar
	log      *applogger.Logger
	metrics  domrepo.Metrics
	maxP     int
	maxQ     int
	lookback int
	addIndex []string
}

func NewPipeline(d Deps) *Pipeline {
	p := &Pipeline{
		feats:    NewFeatureBuilder(d.News),
		prices:   d.Prices,
		store:    d.Models,
		clock:    d.Clock,
		cal:      NewTradingCalendar(d.Calendar),
		log:      d.Logger,
		metrics:  d.Metrics,
		maxP:     d.MaxP,
		maxQ:     d.MaxQ,
		lookback: d.LookbackDays,
		addIndex: d.AddIndex,
	}
	if p.maxP <= 0 {
		p.maxP = 3
	}
	if p.maxQ <= 0 {
		p.maxQ = 3
	}
	if p.lookback <= 0 {
		p.lookback = 365
	}
	if len(p.addIndex) == 0 {
		p.addIndex = defaultAddIndex
	}
	return p
}

// Calendar exposes the trading calendar for callers that only need session logic.
func (p *Pipeline) Calendar() *TradingCalendar { return p.cal }

// ===== return series and exogenous alignment =====

// toReturns converts a close series to log-returns, dropping the first value
// and any pair with a non-positive close so only finite values reach the fit.
func toReturns(points []models.ClosePoint) ([]time.Time, []float64) {
	dates := make([]time.Time, 0, len(points))
	rets := make([]float64, 0, len(points))
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1].Close, points[i].Close
		if prev <= 0 || cur <= 0 {
			continue
		}
		r := math.Log(cur / prev)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		dates = append(dates, util.DayOf(points[i].Date))
		rets = append(rets, r)
	}
	return dates, rets
}

// addPriceLagFeatures appends rolling-sum lagged-return columns (ret_lag1/2/5)
// to X. Each window sums the previous L returns up to and excluding the row's
// own day, so no row sees its own return.
func (p *Pipeline) addPriceLagFeatures(ctx context.Context, symbol string, X *Frame) *Frame {
	days := 500
	if n := X.Len() + 60; n > days {
		days = n
	}
	closes, err := p.prices.CloseSeries(ctx, symbol, days)
	if err != nil || len(closes) < 30 {
		return X
	}
	retDates, rets := toReturns(closes)

	pos := make(map[int64]int, len(retDates))
	for i, d := range retDates {
		pos[dayKey(d)] = i
	}

	for _, L := range retLagWindows {
		vals := make([]float64, X.Len())
		for i, d := range X.Dates {
			j, ok := pos[dayKey(d)]
			if !ok || j < L {
				continue
			}
			s := 0.0
			for k := j - L; k < j; k++ {
				s += rets[k]
			}
			vals[i] = s
		}
		X.SetCol(fmt.Sprintf("ret_lag%d", L), vals)
	}
	return X
}

// alignExogToY builds the training exogenous matrix on the return index:
// news features reindexed onto y's trading days, shifted one day down so day
// t's row only holds day t-1 information, plus the lagged-return columns.
func (p *Pipeline) alignExogToY(ctx context.Context, symbol string, yDates []time.Time, addIndex []string) (*Frame, error) {
	if len(yDates) == 0 {
		return NewFrame(nil), nil
	}
	startTs := yDates[0].Unix()
	endTs := yDates[len(yDates)-1].Unix()

	feats, err := p.feats.BuildNewsFeatures(ctx, symbol, startTs, endTs, addIndex, true)
	if err != nil {
		return nil, err
	}
	if feats.NumCols() == 0 {
		return NewFrame(yDates), nil
	}

	X := feats.Reindex(yDates).ShiftDown(1)
	return p.addPriceLagFeatures(ctx, symbol, X), nil
}

// buildExogRowForForecast reconstructs the single inference row for the day
// right after the last training observation, from a narrow 3-day news window.
// Columns are looked up by NAME from featCols; a column the live feature
// frame no longer produces is zero-filled and logged as schema drift.
func (p *Pipeline) buildExogRowForForecast(ctx context.Context, symbol string, lastIdx time.Time, featCols []string, addIndex []string, scaler map[string]models.ScalerStat) ([]float64, error) {
	endTs := lastIdx.Unix()
	startTs := endTs - 3*24*3600

	feats, err := p.feats.BuildNewsFeatures(ctx, symbol, startTs, endTs, addIndex, true)
	if err != nil {
		return nil, err
	}

	XRaw := feats.Reindex([]time.Time{util.DayOf(lastIdx)})
	XRaw = p.addPriceLagFeatures(ctx, symbol, XRaw)

	for _, c := range featCols {
		if !XRaw.Has(c) {
			if p.log != nil {
				p.log.Warn("feature column missing at inference, zero-filling",
					applogger.String("symbol", symbol),
					applogger.String("column", c),
				)
			}
			XRaw.SetCol(c, make([]float64, XRaw.Len()))
		}
	}

	if len(scaler) > 0 {
		XRaw = ApplyScaler(XRaw, scaler, featCols)
	}
	return XRaw.Matrix(featCols)[0], nil
}

// ===== training =====

// TrainGapModel fits the next-session log-return model for symbol and
// persists it under the "gap" tag. The result is always the full
// (model, meta, eval) triple; data-insufficiency is a typed error.
func (p *Pipeline) TrainGapModel(ctx context.Context, symbol string, lookbackDays int, addIndex []string) (*Model, *models.ModelMeta, *models.EvalReport, error) {
	sym := strings.ToUpper(symbol)
	if lookbackDays <= 0 {
		lookbackDays = p.lookback
	}
	if len(addIndex) == 0 {
		addIndex = p.addIndex
	}
	start := time.Now()

	closes, err := p.prices.CloseSeries(ctx, sym, lookbackDays)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("close series for %s: %w", sym, err)
	}
	if len(closes) < minCloseObs {
		p.recordTrain(sym, "insufficient_close")
		return nil, nil, nil, insufficientf("%s has %d closes, need %d", sym, len(closes), minCloseObs)
	}

	rDates, r := toReturns(closes)
	if len(r) < minReturnObs {
		p.recordTrain(sym, "insufficient_returns")
		return nil, nil, nil, insufficientf("%s has %d returns, need %d", sym, len(r), minReturnObs)
	}

	XRaw, err := p.alignExogToY(ctx, sym, rDates, addIndex)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("align exog for %s: %w", sym, err)
	}

	// an all-zero matrix is "no real exogenous signal": fitting zero-variance
	// regressors would be spurious
	useExog := XRaw.NumCols() > 0 && XRaw.AbsSum() > 0

	var (
		featCols []string
		scaler   = map[string]models.ScalerStat{}
		exogM    [][]float64
	)
	if useExog {
		var XStd *Frame
		XStd, scaler = Standardize(XRaw)
		featCols = XStd.Cols()
		exogM = XStd.Matrix(featCols)
	}

	sel, err := ARIMASelectFit(r, 0, p.maxP, p.maxQ, []string{TrendNone, TrendConst}, exogM)
	if err != nil {
		p.recordTrain(sym, "fit_failed")
		return nil, nil, nil, fmt.Errorf("select fit for %s: %w", sym, err)
	}
	if p.log != nil && len(sel.Diagnostics) > 0 {
		p.log.Debug("grid combinations skipped",
			applogger.String("symbol", sym),
			applogger.Int("skipped", len(sel.Diagnostics)),
			applogger.Bool("fallback", sel.Fallback),
		)
	}
	if p.metrics != nil {
		for range sel.Diagnostics {
			p.metrics.RecordGridFit("skip")
		}
		p.metrics.RecordGridFit("best")
	}

	fit := sel.Model
	fit.Dates = make([]string, len(rDates))
	for i, d := range rDates {
		fit.Dates[i] = d.Format("2006-01-02")
	}

	fitted := fit.FittedValues(r, exogM)
	rmseVal := RMSE(r, fitted)
	maeVal := MAE(r, fitted)

	lastIdx := rDates[len(rDates)-1]
	var xNext []float64
	if useExog && len(featCols) > 0 {
		xNext, err = p.buildExogRowForForecast(ctx, sym, lastIdx, featCols, addIndex, scaler)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("exog row for %s: %w", sym, err)
		}
	}
	retHatNext, _, _, err := fit.ForecastOne(xNext, 0.10)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("one-step preview for %s: %w", sym, err)
	}

	lastClose := closes[len(closes)-1].Close
	nextPriceEst := lastClose * math.Exp(retHatNext)

	meta := &models.ModelMeta{
		Symbol:       sym,
		Order:        sel.Order,
		Trend:        sel.Trend,
		UseExog:      useExog,
		FeatureCols:  featCols,
		Scaler:       scaler,
		TrainLen:     len(r),
		Timestamp:    util.FormatICT(p.now()),
		Target:       "gap_ret",
		AddIndex:     addIndex,
		AIC:          fit.AIC,
		RMSEInSample: rmseVal,
		MAEInSample:  maeVal,
		LastClose:    lastClose,
		RetHatNext:   retHatNext,
		NextPriceEst: nextPriceEst,
	}

	mpath, jpath, err := p.store.Save(sym, gapTag, fit, meta)
	if err != nil {
		p.recordTrain(sym, "save_failed")
		return nil, nil, nil, fmt.Errorf("save model for %s: %w", sym, err)
	}

	if p.log != nil {
		p.log.Info("gap model trained",
			applogger.String("symbol", sym),
			applogger.Any("order", sel.Order),
			applogger.String("trend", sel.Trend),
			applogger.Bool("use_exog", useExog),
			applogger.Int("train_len", len(r)),
			applogger.Float64("aic", fit.AIC),
			applogger.Float64("rmse", rmseVal),
			applogger.Float64("mae", maeVal),
			applogger.Float64("last_close", lastClose),
			applogger.Float64("next_price_est", nextPriceEst),
			applogger.String("model_path", mpath),
			applogger.String("meta_path", jpath),
		)
	}
	p.recordTrain(sym, "ok")
	if p.metrics != nil {
		p.metrics.RecordLatency("train_seconds", time.Since(start).Seconds())
		p.metrics.RecordNextPrice(sym, nextPriceEst)
	}

	eval := &models.EvalReport{
		RMSE:         rmseVal,
		MAE:          maeVal,
		AIC:          fit.AIC,
		LastClose:    lastClose,
		RetHatNext:   retHatNext,
		NextPriceEst: nextPriceEst,
	}
	return fit, meta, eval, nil
}

// ===== inference =====

// ForecastGap loads the persisted gap model (training on a miss, then
// re-reading from the registry so the served forecast always matches what is
// on disk) and produces the one-step return forecast with its CI.
func (p *Pipeline) ForecastGap(ctx context.Context, symbol string, alpha float64) (*models.GapForecast, error) {
	sym := strings.ToUpper(symbol)
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.10
	}

	raw, meta, err := p.store.Load(sym, gapTag)
	if err != nil {
		return nil, fmt.Errorf("load model for %s: %w", sym, err)
	}
	if raw == nil {
		if _, _, _, err := p.TrainGapModel(ctx, sym, p.lookback, nil); err != nil {
			return nil, err
		}
		raw, meta, err = p.store.Load(sym, gapTag)
		if err != nil {
			return nil, fmt.Errorf("reload model for %s: %w", sym, err)
		}
		if raw == nil {
			return nil, fmt.Errorf("%w: %s trained but not reloadable", ErrRegistryConsistency, sym)
		}
	}
	fit, ok := raw.(*Model)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected model type %T", ErrRegistryConsistency, raw)
	}

	var x1 []float64
	if meta.UseExog && len(meta.FeatureCols) > 0 {
		lastIdx, perr := time.ParseInLocation("2006-01-02", fit.LastDate(), util.ICT)
		if perr != nil {
			return nil, fmt.Errorf("%w: model for %s has no endog index", ErrRegistryConsistency, sym)
		}
		x1, err = p.buildExogRowForForecast(ctx, sym, lastIdx, meta.FeatureCols, meta.AddIndex, meta.Scaler)
		if err != nil {
			return nil, fmt.Errorf("exog row for %s: %w", sym, err)
		}
	}

	mean, lo, hi, err := fit.ForecastOne(x1, alpha)
	if err != nil {
		return nil, fmt.Errorf("forecast for %s: %w", sym, err)
	}

	lastClose, err := p.lastDailyClose(ctx, sym, 5)
	if err != nil {
		return nil, err
	}

	if p.metrics != nil {
		p.metrics.RecordForecast("gap", sym)
	}
	return &models.GapForecast{
		Symbol:     sym,
		GapRetMean: mean,
		GapRetCI:   [2]float64{lo, hi},
		LastClose:  lastClose,
		UseExog:    meta.UseExog,
	}, nil
}

// ===== band composition =====

// PriceFromRet exponentiates a return mean and CI against a base price.
func PriceFromRet(basePx, retMean float64, retCI [2]float64) models.PriceBand {
	return models.PriceBand{
		PxMean: basePx * math.Exp(retMean),
		PxLo:   basePx * math.Exp(retCI[0]),
		PxHi:   basePx * math.Exp(retCI[1]),
	}
}

// DirFromGap classifies a band against the last close: direction by the mean
// price, confidence by whether the whole interval clears the close.
func DirFromGap(lastClose float64, band models.PriceBand) (dir string, gapPct float64, conf string) {
	gapPct = 100.0 * (band.PxMean - lastClose) / (lastClose + dirEps)
	gapPct = math.Round(gapPct*1000) / 1000

	switch {
	case band.PxMean > lastClose+dirEps:
		dir = models.DirUp
	case band.PxMean < lastClose-dirEps:
		dir = models.DirDown
	default:
		dir = models.DirUnchanged
	}

	switch {
	case band.PxLo > lastClose+dirEps:
		conf = models.ConfUp
	case band.PxHi < lastClose-dirEps:
		conf = models.ConfDown
	default:
		conf = models.ConfUncertain
	}
	return dir, gapPct, conf
}

// DirectionFromReturn maps a return to a direction label.
func DirectionFromReturn(x, eps float64) string {
	switch {
	case x > eps:
		return models.DirUp
	case x < -eps:
		return models.DirDown
	default:
		return models.DirUnchanged
	}
}

// The AM/PM intraday models are not fitted; both stages use a conservative
// zero-mean band of ±0.5% until a real intraday model exists.
func fallbackAMPM() map[string]models.RetBand {
	return map[string]models.RetBand{
		"AM": {RetPred: 0.0, RetCI: [2]float64{-0.005, 0.005}},
		"PM": {RetPred: 0.0, RetCI: [2]float64{-0.005, 0.005}},
	}
}

// PredictTomorrowFullExog chains the overnight/open, AM, and PM bands for the
// next trading day. Each stage's mean price is the next stage's base.
func (p *Pipeline) PredictTomorrowFullExog(ctx context.Context, symbol string, alpha float64) (*models.FullDayForecast, error) {
	sym := strings.ToUpper(symbol)
	gap, err := p.ForecastGap(ctx, sym, alpha)
	if err != nil {
		return nil, err
	}
	ampm := fallbackAMPM()

	openBand := PriceFromRet(gap.LastClose, gap.GapRetMean, gap.GapRetCI)
	amBand := PriceFromRet(openBand.PxMean, ampm["AM"].RetPred, ampm["AM"].RetCI)
	pmBand := PriceFromRet(amBand.PxMean, ampm["PM"].RetPred, ampm["PM"].RetCI)

	openDir, openGapPct, openConf := DirFromGap(gap.LastClose, openBand)
	target := p.cal.PickTargetTradingDay(p.now())

	return &models.FullDayForecast{
		TargetDay: target.Format("2006-01-02"),
		Gap:       *gap,
		AMPM:      ampm,
		Bands: map[string]models.PriceBand{
			"OPEN_am": openBand,
			"AM_px":   amBand,
			"PM_px":   pmBand,
		},
		OpenDirection:  openDir,
		OpenGapPct:     openGapPct,
		OpenConfidence: openConf,
		Timestamp:      util.FormatICT(p.now()),
		Mode:           "out_of_session",
	}, nil
}

// ===== in-session prediction =====

var (
	intradaySources   = []string{"", "VCI", "TCBS", "MSN"}
	intradayIntervals = []string{domrepo.Interval1m, domrepo.Interval5m, domrepo.Interval15m}
	intradayDayOpts   = []int{1, 2}
)

// intradayBest walks the source/interval/day-window cascade until one yields
// usable bars. Provider gaps are expected, not errors.
func (p *Pipeline) intradayBest(ctx context.Context, symbol string) []models.Bar {
	for _, src := range intradaySources {
		for _, iv := range intradayIntervals {
			for _, d := range intradayDayOpts {
				bars, err := p.prices.IntradayBars(ctx, symbol, src, iv, d)
				if err != nil || len(bars) == 0 {
					continue
				}
				if p.log != nil {
					p.log.Debug("intraday source picked",
						applogger.String("symbol", symbol),
						applogger.String("source", orDefault(src)),
						applogger.String("interval", iv),
						applogger.Int("days", d),
						applogger.Int("rows", len(bars)),
					)
				}
				return bars
			}
		}
	}
	return nil
}

func orDefault(src string) string {
	if src == "" {
		return "default"
	}
	return src
}

func confidenceFromMuSigma(mu, sigma float64) string {
	ratio := math.Abs(mu) / (sigma + 1e-9)
	switch {
	case ratio >= 1.0:
		return "high"
	case ratio >= 0.5:
		return "medium"
	default:
		return "low"
	}
}

// tailMeanStd returns mean and sample std of the last n values.
func tailMeanStd(s []float64, n int) (float64, float64) {
	if n > len(s) {
		n = len(s)
	}
	tail := s[len(s)-n:]
	mu, sd := meanStd(tail)
	return mu, sd
}

// PredictNextStepInSession projects the next few intraday steps from recent
// momentum. Only valid in the morning or afternoon session; outside, it
// degrades to a result object telling the caller to use the next-session path.
func (p *Pipeline) PredictNextStepInSession(ctx context.Context, symbol string) *models.StepForecast {
	sym := strings.ToUpper(symbol)
	now := p.now()
	st := p.cal.SessionStatus(now)

	if st != SessionMorning && st != SessionAfternoon {
		return &models.StepForecast{
			Error: "Phiên chưa mở, hãy dùng dự báo phiên kế tiếp.",
			Mode:  "in_session",
		}
	}
	session := "AM"
	if st == SessionAfternoon {
		session = "PM"
	}

	if bars := p.intradayBest(ctx, sym); len(bars) > 0 {
		closes := make([]float64, 0, len(bars))
		for _, b := range bars {
			if !b.Bucket.After(now) && b.Close > 0 {
				closes = append(closes, b.Close)
			}
		}
		if len(closes) >= 6 {
			rets := logReturns(closes)
			n := 5
			if len(rets) < n {
				n = len(rets)
			}
			mu, sig := tailMeanStd(rets, n)

			lastPx := closes[len(closes)-1]
			path := projectPath(lastPx, mu, 3)

			if p.metrics != nil {
				p.metrics.RecordForecast("in_session", sym)
			}
			return &models.StepForecast{
				Session:        session,
				NextStepDir:    DirectionFromReturn(mu, 1e-6),
				RetMean:        mu,
				RetStd:         sig,
				StepConfidence: confidenceFromMuSigma(mu, sig),
				LastPx:         lastPx,
				PathPred:       path,
				SourceUsed:     "intraday",
				Mode:           "in_session",
			}
		}
	}

	// daily fallback: momentum from the last 3 daily returns
	daily, err := p.prices.DailyBars(ctx, sym, 6)
	if err == nil {
		closes := make([]float64, 0, len(daily))
		for _, b := range daily {
			if b.Close > 0 {
				closes = append(closes, b.Close)
			}
		}
		if len(closes) >= 3 {
			rets := logReturns(closes)
			mu, sig := tailMeanStd(rets, 3)
			lastPx := closes[len(closes)-1]
			path := projectPath(lastPx, mu, 3)

			if p.metrics != nil {
				p.metrics.RecordForecast("in_session_fallback", sym)
			}
			return &models.StepForecast{
				Error:          "Thiếu dữ liệu intraday, dùng dữ liệu ngày.",
				Session:        session,
				NextStepDir:    DirectionFromReturn(mu, 1e-6),
				RetMean:        mu,
				RetStd:         sig,
				StepConfidence: "low", // fallback path never claims confidence
				LastPx:         lastPx,
				PathPred:       path,
				SourceUsed:     "daily_fallback",
				Mode:           "in_session",
			}
		}
	}

	if p.metrics != nil {
		p.metrics.RecordError("in_session_no_data")
	}
	return &models.StepForecast{
		Error: "Không đủ dữ liệu cả intraday lẫn daily.",
		Mode:  "in_session",
	}
}

// PredictNextSession forecasts whichever session opens next: AM rides the
// overnight-gap model, PM rides the morning close with the placeholder band.
func (p *Pipeline) PredictNextSession(ctx context.Context, symbol string, alpha float64, source, interval string) (*models.SessionForecast, error) {
	interval = domrepo.NormalizeInterval(interval)
	sym := strings.ToUpper(symbol)
	now := p.now()
	targetDay, nextSess := p.cal.NextTradingSession(now)

	if nextSess == "AM" {
		pack, err := p.PredictTomorrowFullExog(ctx, sym, alpha)
		if err != nil {
			return nil, err
		}
		openBand := pack.Bands["OPEN_am"]
		openDir, openGapPct, openConf := DirFromGap(pack.Gap.LastClose, openBand)
		return &models.SessionForecast{
			Mode:           "next_session",
			NextSession:    "AM",
			TargetDay:      targetDay.Format("2006-01-02"),
			OpenBand:       &openBand,
			Gap:            &pack.Gap,
			OpenDirection:  openDir,
			OpenGapPct:     openGapPct,
			OpenConfidence: openConf,
			Timestamp:      util.FormatICT(now),
			Note:           "AM dùng band OPEN (ước lượng khoảng mở cửa).",
		}, nil
	}

	// PM: base price = last AM close when intraday is available
	basePx := 0.0
	baseFrom := "last_close_daily"
	if bars, err := p.prices.IntradayBars(ctx, sym, source, interval, 1); err == nil && len(bars) > 0 {
		for _, b := range bars {
			t := b.Bucket.In(util.ICT)
			if t.Hour()*60+t.Minute() <= lunchInMin && b.Close > 0 {
				basePx = b.Close
				baseFrom = "AM_close"
			}
		}
	}
	if basePx == 0 {
		var err error
		basePx, err = p.lastDailyClose(ctx, sym, 5)
		if err != nil {
			return nil, err
		}
	}

	pm := models.RetBand{RetPred: 0.0, RetCI: [2]float64{-0.005, 0.005}}
	pmBand := PriceFromRet(basePx, pm.RetPred, pm.RetCI)
	pmDir, pmGapPct, pmConf := DirFromGap(basePx, pmBand)

	if p.metrics != nil {
		p.metrics.RecordForecast("next_session_pm", sym)
	}
	return &models.SessionForecast{
		Mode:         "next_session",
		NextSession:  "PM",
		TargetDay:    targetDay.Format("2006-01-02"),
		PMBand:       &pmBand,
		PMDirection:  pmDir,
		PMGapPct:     pmGapPct,
		PMConfidence: pmConf,
		BaseFrom:     baseFrom,
		Timestamp:    util.FormatICT(now),
		Note:         "PM dựa trên giá kết thúc buổi sáng và band PM mặc định.",
	}, nil
}

// SmartPredict routes to the in-session step forecast while a session is
// running, otherwise to the next-session forecast.
func (p *Pipeline) SmartPredict(ctx context.Context, symbol string, alpha float64, source string) (*models.SmartForecast, error) {
	sym := strings.ToUpper(symbol)
	now := p.now()
	st := p.cal.SessionStatus(now)

	if st == SessionMorning || st == SessionAfternoon {
		session := "AM"
		if st == SessionAfternoon {
			session = "PM"
		}
		step := p.PredictNextStepInSession(ctx, sym)
		return &models.SmartForecast{
			Mode:      "in_session",
			Session:   session,
			Symbol:    sym,
			Timestamp: util.FormatICT(now),
			Step:      step,
		}, nil
	}

	next, err := p.PredictNextSession(ctx, sym, alpha, source, domrepo.DefaultInterval())
	if err != nil {
		return nil, err
	}
	return &models.SmartForecast{
		Mode:      "out_of_session",
		Symbol:    sym,
		Timestamp: util.FormatICT(now),
		Next:      next,
	}, nil
}

// ===== small helpers =====

func (p *Pipeline) now() time.Time {
	if p.clock != nil {
		return p.clock.Now().In(util.ICT)
	}
	return time.Now().In(util.ICT)
}

func (p *Pipeline) recordTrain(symbol, outcome string) {
	if p.metrics != nil {
		p.metrics.RecordTrain(symbol, outcome)
	}
}

func (p *Pipeline) lastDailyClose(ctx context.Context, symbol string, days int) (float64, error) {
	bars, err := p.prices.DailyBars(ctx, symbol, days)
	if err != nil {
		return 0, fmt.Errorf("daily bars for %s: %w", symbol, err)
	}
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Close > 0 {
			return bars[i].Close, nil
		}
	}
	return 0, insufficientf("%s has no recent daily close", symbol)
}

func logReturns(closes []float64) []float64 {
	out := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			continue
		}
		out = append(out, math.Log(closes[i]/closes[i-1]))
	}
	return out
}

func projectPath(lastPx, mu float64, steps int) []float64 {
	out := make([]float64, steps)
	px := lastPx
	for i := 0; i < steps; i++ {
		px *= math.Exp(mu)
		out[i] = px
	}
	return out
}
