// Package metrics defines the measurement points of the order workflow.
// Implementations live under infra/metrics.
package metrics

import "time"

// Sink receives workflow measurements.
type Sink interface {
	OrderSubmitted(requestType string)
	OrderCompleted(requestType string, duration time.Duration)
	OrderFailed(requestType, code string)
	LemPriceComputed(mechanism string, price float64)
	Close() error
}

// NopSink discards every measurement.
type NopSink struct{}

func (NopSink) OrderSubmitted(string)                 {}
func (NopSink) OrderCompleted(string, time.Duration)  {}
func (NopSink) OrderFailed(string, string)            {}
func (NopSink) LemPriceComputed(string, float64)      {}
func (NopSink) Close() error                          { return nil }
