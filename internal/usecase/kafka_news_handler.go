package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"GapCast/internal/domain/models"
	domrepo "GapCast/internal/domain/repository"
	pkgkafka "GapCast/pkg/kafka"
)

// KafkaNewsHandler consumes scored news events and writes them to the news
// store. Malformed and unscorable events go to the DLQ via the returned error.
type KafkaNewsHandler struct {
	topic   string
	writer  domrepo.NewsWriter
	metrics domrepo.Metrics
}

func NewKafkaNewsHandler(topic string, writer domrepo.NewsWriter, metrics domrepo.Metrics) *KafkaNewsHandler {
	return &KafkaNewsHandler{topic: topic, writer: writer, metrics: metrics}
}

func (h *KafkaNewsHandler) Topic() string { return h.topic }

func (h *KafkaNewsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.NewsEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("news_unmarshal")
		return err
	}
	if ev.RootID == "" || ev.TimeTs == 0 {
		h.metrics.RecordError("news_invalid")
		return fmt.Errorf("news event missing root_id or time_ts")
	}
	if ev.TimeTs > 1e11 { // ms
		ev.TimeTs = ev.TimeTs / 1000
	}
	h.metrics.RecordLatency("news_ingest_e2e_seconds", time.Since(time.Unix(ev.TimeTs, 0)).Seconds())

	start := time.Now()
	err := h.writer.StoreNews(ctx, &ev)
	h.metrics.RecordLatency("news_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("news_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaNewsHandler)(nil)
