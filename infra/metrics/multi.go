package metrics

import (
	"errors"
	"time"

	"github.com/rec-operation/lem-api/core/metrics"
)

// MultiSink fans every measurement out to multiple sinks.
type MultiSink struct {
	Sinks []metrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...metrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

var _ metrics.Sink = (*MultiSink)(nil)

func (m *MultiSink) OrderSubmitted(requestType string) {
	for _, s := range m.Sinks {
		s.OrderSubmitted(requestType)
	}
}

func (m *MultiSink) OrderCompleted(requestType string, duration time.Duration) {
	for _, s := range m.Sinks {
		s.OrderCompleted(requestType, duration)
	}
}

func (m *MultiSink) OrderFailed(requestType, code string) {
	for _, s := range m.Sinks {
		s.OrderFailed(requestType, code)
	}
}

func (m *MultiSink) LemPriceComputed(mechanism string, price float64) {
	for _, s := range m.Sinks {
		s.LemPriceComputed(mechanism, price)
	}
}

// Close closes every sink, returning the joined errors.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
