package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromSinkRecordsOrders(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	sink.OrderSubmitted("vanilla")
	sink.OrderSubmitted("vanilla")
	sink.OrderCompleted("vanilla", 150*time.Millisecond)
	sink.OrderFailed("dual", "422")
	sink.LemPriceComputed("crossing_value", 0.12)

	expected := `
# HELP lem_orders_submitted_total Total number of submitted orders
# TYPE lem_orders_submitted_total counter
lem_orders_submitted_total{request_type="vanilla"} 2
`
	if err := testutil.CollectAndCompare(sink.submitted, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}

	expected = `
# HELP lem_orders_failed_total Total number of failed orders
# TYPE lem_orders_failed_total counter
lem_orders_failed_total{code="422",request_type="dual"} 1
`
	if err := testutil.CollectAndCompare(sink.failed, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}

	if c := testutil.CollectAndCount(sink.duration); c == 0 {
		t.Errorf("duration not recorded")
	}
	if v := testutil.ToFloat64(sink.lemPrice.WithLabelValues("crossing_value")); v != 0.12 {
		t.Errorf("unexpected price gauge: %v", v)
	}
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	second, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("recreate sink: %v", err)
	}

	first.OrderSubmitted("loop")
	second.OrderSubmitted("loop")
	if v := testutil.ToFloat64(second.submitted.WithLabelValues("loop")); v != 2 {
		t.Errorf("collectors not shared: %v", v)
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	reg1, reg2 := prometheus.NewRegistry(), prometheus.NewRegistry()
	s1, err := NewPromSink(reg1)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	s2, err := NewPromSink(reg2)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	multi := NewMultiSink(s1, s2)
	multi.OrderSubmitted("dual")
	if err := multi.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, s := range []*PromSink{s1, s2} {
		if v := testutil.ToFloat64(s.submitted.WithLabelValues("dual")); v != 1 {
			t.Errorf("measurement not forwarded: %v", v)
		}
	}
}
