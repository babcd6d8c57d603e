package repository

import (
	"context"

	"GapCast/internal/domain/models"
	domrepo "GapCast/internal/domain/repository"
	pkgkafka "GapCast/pkg/kafka"
)

// KafkaForecastPublisher emits training results and served forecasts to the
// forecast topic. Downstream consumers (the chat bot, alerting) key on symbol.
type KafkaForecastPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaForecastPublisher(producer *pkgkafka.Producer, topic string) domrepo.ForecastPublisher {
	return &KafkaForecastPublisher{producer: producer, topic: topic}
}

func (p *KafkaForecastPublisher) PublishTrained(ctx context.Context, meta *models.ModelMeta) error {
	return p.producer.Publish(ctx, p.topic, []byte(meta.Symbol), map[string]interface{}{
		"event":          "trained",
		"symbol":         meta.Symbol,
		"order":          meta.Order,
		"trend":          meta.Trend,
		"use_exog":       meta.UseExog,
		"train_len":      meta.TrainLen,
		"aic":            meta.AIC,
		"next_price_est": meta.NextPriceEst,
		"timestamp":      meta.Timestamp,
	})
}

func (p *KafkaForecastPublisher) PublishForecast(ctx context.Context, fc *models.GapForecast) error {
	return p.producer.Publish(ctx, p.topic, []byte(fc.Symbol), map[string]interface{}{
		"event":        "forecast",
		"symbol":       fc.Symbol,
		"gap_ret_mean": fc.GapRetMean,
		"gap_ret_ci":   fc.GapRetCI,
		"last_close":   fc.LastClose,
		"use_exog":     fc.UseExog,
	})
}

func (p *KafkaForecastPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
