package models

// Requests for forecast HTTP endpoints. Defined in domain for consistency and reuse.

type GapRequest struct {
	Symbol string  `query:"symbol" json:"symbol" validate:"required,alphanum,min=2,max=10"`
	Alpha  float64 `query:"alpha" json:"alpha" default:"0.10" validate:"gt=0,lt=1"`
}

type SmartRequest struct {
	Symbol string  `query:"symbol" json:"symbol" validate:"required,alphanum,min=2,max=10"`
	Alpha  float64 `query:"alpha" json:"alpha" default:"0.10" validate:"gt=0,lt=1"`
	Source string  `query:"source" json:"source" default:"VCI" validate:"oneof=VCI TCBS MSN"`
}

type NextSessionRequest struct {
	Symbol string  `query:"symbol" json:"symbol" validate:"required,alphanum,min=2,max=10"`
	Alpha  float64 `query:"alpha" json:"alpha" default:"0.10" validate:"gt=0,lt=1"`
	Source string  `query:"source" json:"source" default:"VCI" validate:"oneof=VCI TCBS MSN"`
	// Interval is normalized by the handler; anything unknown falls back
	// to the default resolution.
	Interval string `query:"interval" json:"interval"`
}

type BackfillRequest struct {
	Symbol string `json:"symbol" validate:"required,alphanum,min=2,max=10"`
	Days   int    `json:"days" default:"400" validate:"gte=30,lte=2000"`
}

type TrainRequest struct {
	Symbol       string   `json:"symbol" validate:"required,alphanum,min=2,max=10"`
	LookbackDays int      `json:"lookback_days" default:"365" validate:"gte=90,lte=2000"`
	AddIndex     []string `json:"add_index"`
	Async        bool     `json:"async"`
}
