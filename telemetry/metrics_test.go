package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestInitIdempotent(t *testing.T) {
	// A second Init must not re-register (promauto panics on duplicates).
	Init()
	Init()

	if GameSwitchesChanged == nil || GameSwitchesSame == nil {
		t.Error("switch counters not initialized")
	}
	if StoreFailures == nil || OverlayEvents == nil || ChatCommandsHandled == nil {
		t.Error("counter vecs not initialized")
	}
	if SwitchDuration == nil || CategoryPollDuration == nil {
		t.Error("histograms not initialized")
	}
	if OverlayClientsGauge == nil {
		t.Error("overlay clients gauge not initialized")
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.Counter.GetValue()
}

func TestCountGameSwitch(t *testing.T) {
	Init()

	changedBefore := counterValue(t, GameSwitchesChanged)
	sameBefore := counterValue(t, GameSwitchesSame)

	CountGameSwitch("changed")
	CountGameSwitch("same")
	CountGameSwitch("same")

	if got := counterValue(t, GameSwitchesChanged) - changedBefore; got != 1 {
		t.Errorf("changed delta = %v, want 1", got)
	}
	if got := counterValue(t, GameSwitchesSame) - sameBefore; got != 2 {
		t.Errorf("same delta = %v, want 2", got)
	}
}

func TestCountStoreFailure(t *testing.T) {
	Init()

	before := counterValue(t, StoreFailures.WithLabelValues("library"))
	CountStoreFailure("library")
	CountStoreFailure("library")
	if got := counterValue(t, StoreFailures.WithLabelValues("library")) - before; got != 2 {
		t.Errorf("library failure delta = %v, want 2", got)
	}
}

func TestCountChannelUpdate(t *testing.T) {
	Init()

	okBefore := counterValue(t, ChannelUpdatesOK)
	failedBefore := counterValue(t, ChannelUpdatesFailed)
	skippedBefore := counterValue(t, ChannelUpdatesSkipped)

	CountChannelUpdate("ok")
	CountChannelUpdate("skipped")
	CountChannelUpdate("error")
	CountChannelUpdate("anything-else")

	if got := counterValue(t, ChannelUpdatesOK) - okBefore; got != 1 {
		t.Errorf("ok delta = %v, want 1", got)
	}
	if got := counterValue(t, ChannelUpdatesSkipped) - skippedBefore; got != 1 {
		t.Errorf("skipped delta = %v, want 1", got)
	}
	if got := counterValue(t, ChannelUpdatesFailed) - failedBefore; got != 2 {
		t.Errorf("failed delta = %v, want 2", got)
	}
}

func TestGaugeAndObservationHelpers(t *testing.T) {
	Init()

	for _, n := range []int{0, 3, 250, 0} {
		SetOverlayClients(n)
	}
	CountOverlayEvent("counter_update")
	CountChatCommand("!deaths")
	ObserveSwitchDuration(125 * time.Millisecond)
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	testHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})
	prometheus.MustRegister(testHistogram)
	defer prometheus.Unregister(testHistogram)

	executed := false
	duration := TimeFunc(testHistogram, func() {
		time.Sleep(10 * time.Millisecond)
		executed = true
	})

	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}
	if duration < 10*time.Millisecond {
		t.Errorf("TimeFunc duration = %v, want >= 10ms", duration)
	}

	metric := &dto.Metric{}
	if err := testHistogram.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram == nil || *metric.Histogram.SampleCount == 0 {
		t.Error("TimeFunc did not record observation in histogram")
	}
}

func TestCorrelationRoundTrip(t *testing.T) {
	ctx := context.Background()

	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation on bare context = %q, want empty", got)
	}

	ctx = WithCorrelation(ctx, "corr-123")
	if got := GetCorrelation(ctx); got != "corr-123" {
		t.Errorf("GetCorrelation = %q, want corr-123", got)
	}

	if LoggerWithCorr(ctx) == nil {
		t.Error("LoggerWithCorr returned nil")
	}
	if LoggerWithCorr(context.Background()) == nil {
		t.Error("LoggerWithCorr without correlation returned nil")
	}
}
