package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ForecastAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gapcast",
			Subsystem: "forecast_api",
			Name:      "latency_seconds",
			Help:      "Latency of forecast endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ForecastAPIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gapcast",
			Subsystem: "forecast_api",
			Name:      "errors_total",
			Help:      "Errors by forecast endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ForecastAPILatency, ForecastAPIErrors)
	})
}
