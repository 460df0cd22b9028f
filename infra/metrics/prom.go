// Package metrics provides the Prometheus and InfluxDB implementations of the
// workflow measurement sink.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rec-operation/lem-api/core/metrics"
)

// PromSink records order workflow events in Prometheus metrics.
type PromSink struct {
	submitted *prometheus.CounterVec
	completed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	lemPrice  *prometheus.GaugeVec
}

// NewPromSink registers the workflow metrics on the provided registerer. If
// reg is nil, the default registerer is used. Already registered collectors
// are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lem_orders_submitted_total",
			Help: "Total number of submitted orders",
		}, []string{"request_type"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lem_orders_completed_total",
			Help: "Total number of successfully completed orders",
		}, []string{"request_type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lem_orders_failed_total",
			Help: "Total number of failed orders",
		}, []string{"request_type", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lem_order_duration_seconds",
			Help:    "Time between order submission and completion",
			Buckets: prometheus.DefBuckets,
		}, []string{"request_type"}),
		lemPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lem_last_price_eur_kwh",
			Help: "Last computed market price per pricing mechanism",
		}, []string{"mechanism"}),
	}

	if err := register(reg, &s.submitted); err != nil {
		return nil, err
	}
	if err := register(reg, &s.completed); err != nil {
		return nil, err
	}
	if err := register(reg, &s.failed); err != nil {
		return nil, err
	}
	if err := registerHist(reg, &s.duration); err != nil {
		return nil, err
	}
	if err := registerGauge(reg, &s.lemPrice); err != nil {
		return nil, err
	}
	return s, nil
}

func register(reg prometheus.Registerer, c **prometheus.CounterVec) error {
	if err := reg.Register(*c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*c = are.ExistingCollector.(*prometheus.CounterVec)
			return nil
		}
		return err
	}
	return nil
}

func registerHist(reg prometheus.Registerer, h **prometheus.HistogramVec) error {
	if err := reg.Register(*h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*h = are.ExistingCollector.(*prometheus.HistogramVec)
			return nil
		}
		return err
	}
	return nil
}

func registerGauge(reg prometheus.Registerer, g **prometheus.GaugeVec) error {
	if err := reg.Register(*g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*g = are.ExistingCollector.(*prometheus.GaugeVec)
			return nil
		}
		return err
	}
	return nil
}

var _ metrics.Sink = (*PromSink)(nil)

func (s *PromSink) OrderSubmitted(requestType string) {
	s.submitted.WithLabelValues(requestType).Inc()
}

func (s *PromSink) OrderCompleted(requestType string, duration time.Duration) {
	s.completed.WithLabelValues(requestType).Inc()
	s.duration.WithLabelValues(requestType).Observe(duration.Seconds())
}

func (s *PromSink) OrderFailed(requestType, code string) {
	s.failed.WithLabelValues(requestType, code).Inc()
}

func (s *PromSink) LemPriceComputed(mechanism string, price float64) {
	s.lemPrice.WithLabelValues(mechanism).Set(price)
}

func (s *PromSink) Close() error { return nil }
