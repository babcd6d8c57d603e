package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"GapCast/internal/domain/models"

	"github.com/stretchr/testify/require"
)

type capturingNewsWriter struct {
	events []*models.NewsEvent
	err    error
}

func (w *capturingNewsWriter) StoreNews(_ context.Context, ev *models.NewsEvent) error {
	if w.err != nil {
		return w.err
	}
	w.events = append(w.events, ev)
	return nil
}

type nopMetrics struct {
	errors map[string]int
}

func (m *nopMetrics) RecordTrain(string, string)       {}
func (m *nopMetrics) RecordGridFit(string)             {}
func (m *nopMetrics) RecordForecast(string, string)    {}
func (m *nopMetrics) RecordNextPrice(string, float64)  {}
func (m *nopMetrics) RecordLatency(string, float64)    {}
func (m *nopMetrics) RecordError(kind string) {
	if m.errors == nil {
		m.errors = map[string]int{}
	}
	m.errors[kind]++
}

func TestNewsHandlerStoresValidEvent(t *testing.T) {
	w := &capturingNewsWriter{}
	h := NewKafkaNewsHandler("news", w, &nopMetrics{})

	ev := models.NewsEvent{
		TimeTs:    1767146400,
		Label:     models.LabelPos,
		Sentiment: 0.7,
		RootID:    "abc",
		Symbols:   []string{"VNM"},
	}
	b, _ := json.Marshal(ev)

	require.NoError(t, h.Handle(context.Background(), b))
	require.Len(t, w.events, 1)
	require.Equal(t, "abc", w.events[0].RootID)
}

func TestNewsHandlerNormalizesMilliseconds(t *testing.T) {
	w := &capturingNewsWriter{}
	h := NewKafkaNewsHandler("news", w, &nopMetrics{})

	ev := models.NewsEvent{TimeTs: 1767146400000, RootID: "abc"}
	b, _ := json.Marshal(ev)

	require.NoError(t, h.Handle(context.Background(), b))
	require.Equal(t, int64(1767146400), w.events[0].TimeTs)
}

func TestNewsHandlerRejectsInvalid(t *testing.T) {
	w := &capturingNewsWriter{}
	m := &nopMetrics{}
	h := NewKafkaNewsHandler("news", w, m)

	// not JSON
	require.Error(t, h.Handle(context.Background(), []byte("nope")))
	require.Equal(t, 1, m.errors["news_unmarshal"])

	// missing root_id
	b, _ := json.Marshal(models.NewsEvent{TimeTs: 1767146400})
	require.Error(t, h.Handle(context.Background(), b))
	require.Equal(t, 1, m.errors["news_invalid"])

	require.Empty(t, w.events)
}
