package models

import "time"

// Sentiment labels assigned by the upstream scoring service.
const (
	LabelPos = "pos"
	LabelNeg = "neg"
	LabelNeu = "neu"
)

// NewsRecord is one scored news item from the document store.
// RootID is shared by republished/syndicated copies of the same article and is
// the day-level dedup key.
type NewsRecord struct {
	TimeTs    int64   `json:"time_ts"` // epoch seconds
	Label     string  `json:"label"`   // pos | neg | neu
	Sentiment float64 `json:"sentiment"`
	RootID    string  `json:"root_id"`
}

// NewsEvent is the ingestion-side shape consumed from Kafka: a scored article
// tagged with the symbols and market indices it mentions.
type NewsEvent struct {
	TimeTs     int64    `json:"time_ts"`
	Label      string   `json:"label"`
	Sentiment  float64  `json:"sentiment"`
	RootID     string   `json:"root_id"`
	Symbols    []string `json:"symbols"`
	IndexCodes []string `json:"index_codes"`
	Title      string   `json:"title,omitempty"`
}

// Day returns the record's ICT calendar day given a location.
func (n NewsRecord) Day(loc *time.Location) time.Time {
	t := time.Unix(n.TimeTs, 0).In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
