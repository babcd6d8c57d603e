package models

// Direction labels rendered to the (Vietnamese-speaking) caller.
const (
	DirUp        = "tăng"
	DirDown      = "giảm"
	DirUnchanged = "không thay đổi"
)

// Confidence labels for the gap band classification.
const (
	ConfUp        = "up_confident"
	ConfDown      = "down_confident"
	ConfUncertain = "uncertain"
)

// ScalerStat holds per-column standardization statistics fitted on the
// training exogenous matrix. Sd is floored to 1.0 when near-zero.
type ScalerStat struct {
	Mu float64 `json:"mu"`
	Sd float64 `json:"sd"`
}

// ModelMeta is the JSON metadata persisted next to a fitted model.
// It is written at train time and read by every later forecast for the
// same (symbol, tag) pair until retrained.
type ModelMeta struct {
	Symbol      string                `json:"symbol"`
	Order       [3]int                `json:"order"`
	Trend       string                `json:"trend"`
	UseExog     bool                  `json:"use_exog"`
	FeatureCols []string              `json:"feature_cols"`
	Scaler      map[string]ScalerStat `json:"scaler"`
	TrainLen    int                   `json:"train_len"`
	Timestamp   string                `json:"timestamp"`
	Target      string                `json:"target"`
	AddIndex    []string              `json:"add_index"`

	AIC          float64 `json:"aic"`
	RMSEInSample float64 `json:"rmse_in_sample"`
	MAEInSample  float64 `json:"mae_in_sample"`

	LastClose    float64 `json:"last_close"`
	RetHatNext   float64 `json:"ret_hat_next"`
	NextPriceEst float64 `json:"next_price_est"`
}

// EvalReport summarizes the in-sample fit plus the one-step preview.
type EvalReport struct {
	RMSE         float64 `json:"rmse"`
	MAE          float64 `json:"mae"`
	AIC          float64 `json:"aic"`
	LastClose    float64 `json:"last_close"`
	RetHatNext   float64 `json:"ret_hat_next"`
	NextPriceEst float64 `json:"next_price_est"`
}

// GapForecast is the one-step-ahead overnight gap return with its CI.
type GapForecast struct {
	Symbol     string     `json:"symbol"`
	GapRetMean float64    `json:"gap_ret_mean"`
	GapRetCI   [2]float64 `json:"gap_ret_ci"`
	LastClose  float64    `json:"last_close"`
	UseExog    bool       `json:"use_exog"`
}

// PriceBand is a return band exponentiated against a base price.
type PriceBand struct {
	PxMean float64 `json:"px_mean"`
	PxLo   float64 `json:"px_lo"`
	PxHi   float64 `json:"px_hi"`
}

// RetBand is a raw return band before price reconstruction. The AM/PM
// intraday models are not implemented; those bands use a fixed 0 ± 0.5%
// placeholder.
type RetBand struct {
	RetPred float64    `json:"ret_pred"`
	RetCI   [2]float64 `json:"ret_ci"`
}

// FullDayForecast chains the overnight/open, AM, and PM bands for the next
// trading day. Each band's mean price is the next band's base price.
type FullDayForecast struct {
	TargetDay      string               `json:"target_day"`
	Gap            GapForecast          `json:"gap"`
	AMPM           map[string]RetBand   `json:"ampm"`
	Bands          map[string]PriceBand `json:"bands"` // OPEN_am, AM_px, PM_px
	OpenDirection  string               `json:"open_direction"`
	OpenGapPct     float64              `json:"open_gap_pct"`
	OpenConfidence string               `json:"open_confidence"`
	Timestamp      string               `json:"timestamp"`
	Mode           string               `json:"mode"`
}

// StepForecast is the in-session next-step prediction. Error is a rendered
// degradation message, not a failure: callers show "forecast unavailable".
type StepForecast struct {
	Error          string    `json:"error,omitempty"`
	Session        string    `json:"session,omitempty"`
	NextStepDir    string    `json:"next_step_dir,omitempty"`
	RetMean        float64   `json:"ret_mean"`
	RetStd         float64   `json:"ret_std"`
	StepConfidence string    `json:"step_confidence,omitempty"`
	LastPx         float64   `json:"last_px"`
	PathPred       []float64 `json:"path_pred"`
	SourceUsed     string    `json:"source_used,omitempty"`
	Mode           string    `json:"mode"`
}

// SessionForecast routes to the AM open band or the PM band depending on
// which session comes next.
type SessionForecast struct {
	Mode        string `json:"mode"`
	NextSession string `json:"next_session"`
	TargetDay   string `json:"target_day"`

	// AM path
	OpenBand       *PriceBand   `json:"open_band,omitempty"`
	Gap            *GapForecast `json:"gap,omitempty"`
	OpenDirection  string       `json:"open_direction,omitempty"`
	OpenGapPct     float64      `json:"open_gap_pct,omitempty"`
	OpenConfidence string       `json:"open_confidence,omitempty"`

	// PM path
	PMBand       *PriceBand `json:"pm_band,omitempty"`
	PMDirection  string     `json:"pm_direction,omitempty"`
	PMGapPct     float64    `json:"pm_gap_pct,omitempty"`
	PMConfidence string     `json:"pm_confidence,omitempty"`
	BaseFrom     string     `json:"base_from,omitempty"`

	Timestamp string `json:"timestamp"`
	Note      string `json:"note,omitempty"`
}

// SmartForecast wraps either an in-session step forecast or a next-session
// forecast, chosen by the current session state.
type SmartForecast struct {
	Mode      string           `json:"mode"`
	Symbol    string           `json:"symbol"`
	Session   string           `json:"session,omitempty"`
	Timestamp string           `json:"timestamp"`
	Step      *StepForecast    `json:"step,omitempty"`
	Next      *SessionForecast `json:"next,omitempty"`
}
