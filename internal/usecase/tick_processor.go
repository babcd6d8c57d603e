package usecase

import (
	"context"
	"fmt"
	"time"

	"GapCast/internal/domain/models"
	drepo "GapCast/internal/domain/repository"
)

// TickProcessor writes stream ticks to the price store. Bars are derived
// from the raw tick table by ClickHouse materialized views.
type TickProcessor struct {
	writer  drepo.TickWriter
	metrics drepo.Metrics
}

func NewTickProcessor(writer drepo.TickWriter, metrics drepo.Metrics) *TickProcessor {
	return &TickProcessor{writer: writer, metrics: metrics}
}

// Process stores a single tick.
func (p *TickProcessor) Process(ctx context.Context, t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}
	start := time.Now()
	if err := p.writer.StoreTick(ctx, t); err != nil {
		p.metrics.RecordError("tick_store")
		return fmt.Errorf("process tick: %w", err)
	}
	p.metrics.RecordLatency("tick_store_seconds", time.Since(start).Seconds())
	return nil
}
