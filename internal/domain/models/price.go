package models

import "time"

// Bar is one OHLCV record, daily or intraday depending on the source table.
type Bar struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// ClosePoint is a (day, close) observation from the daily bar history.
type ClosePoint struct {
	Date  time.Time
	Close float64
}

// Tick is a raw trade event from the provider stream before bucketing.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"t"` // epoch seconds
	Price     float64 `json:"c"`
	Volume    float64 `json:"v"`
}
