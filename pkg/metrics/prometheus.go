package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	trainsTotal    *prometheus.CounterVec
	gridFitsTotal  *prometheus.CounterVec
	forecastsTotal *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	nextPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		trainsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gapcast_trains_total",
				Help: "Training runs by symbol and outcome",
			},
			[]string{"symbol", "outcome"},
		),
		gridFitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gapcast_grid_fits_total",
				Help: "Grid-search fit attempts by outcome",
			},
			[]string{"outcome"},
		),
		forecastsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gapcast_forecasts_total",
				Help: "Served forecasts by kind and symbol",
			},
			[]string{"kind", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gapcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		nextPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gapcast_next_price_est",
				Help: "Latest next-session price estimate for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gapcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTrain records one training run outcome for a symbol.
func (r *Recorder) RecordTrain(symbol, outcome string) {
	r.trainsTotal.WithLabelValues(symbol, outcome).Inc()
}

// RecordGridFit records a grid-search fit attempt outcome.
func (r *Recorder) RecordGridFit(outcome string) {
	r.gridFitsTotal.WithLabelValues(outcome).Inc()
}

// RecordForecast records a served forecast.
func (r *Recorder) RecordForecast(kind, symbol string) {
	r.forecastsTotal.WithLabelValues(kind, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordNextPrice records the latest next-session price estimate.
func (r *Recorder) RecordNextPrice(symbol string, price float64) {
	r.nextPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
