package metrics

import (
	"context"
	"net/http"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/rec-operation/lem-api/core/metrics"
	"github.com/rec-operation/lem-api/infra/logger"
)

// InfluxConfig carries the InfluxDB sink parameters.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes order workflow events to an InfluxDB instance.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// when the health check fails, so a metrics outage never blocks the service.
func NewInfluxSinkWithFallback(cfg InfluxConfig) metrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return metrics.NopSink{}
	}
	return sink
}

var _ metrics.Sink = (*InfluxSink)(nil)

func (s *InfluxSink) OrderSubmitted(requestType string) {
	s.write(write.NewPointWithMeasurement("lem_order").
		AddTag("request_type", requestType).
		AddTag("event", "submitted").
		AddField("count", 1).
		SetTime(time.Now()))
}

func (s *InfluxSink) OrderCompleted(requestType string, duration time.Duration) {
	s.write(write.NewPointWithMeasurement("lem_order").
		AddTag("request_type", requestType).
		AddTag("event", "completed").
		AddField("duration_seconds", duration.Seconds()).
		SetTime(time.Now()))
}

func (s *InfluxSink) OrderFailed(requestType, code string) {
	s.write(write.NewPointWithMeasurement("lem_order").
		AddTag("request_type", requestType).
		AddTag("event", "failed").
		AddTag("code", code).
		AddField("count", 1).
		SetTime(time.Now()))
}

func (s *InfluxSink) LemPriceComputed(mechanism string, price float64) {
	s.write(write.NewPointWithMeasurement("lem_price").
		AddTag("mechanism", mechanism).
		AddField("eur_kwh", price).
		SetTime(time.Now()))
}

func (s *InfluxSink) write(p *write.Point) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		s.log.Errorf("influx write: %v", err)
	}
}

func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
