// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	GameSwitchesChanged   prometheus.Counter
	GameSwitchesSame      prometheus.Counter
	StoreFailures         *prometheus.CounterVec
	ChannelUpdatesOK      prometheus.Counter
	ChannelUpdatesFailed  prometheus.Counter
	ChannelUpdatesSkipped prometheus.Counter
	OverlayEvents         *prometheus.CounterVec
	ChatCommandsHandled   *prometheus.CounterVec
	CategoryPollCycles    prometheus.Counter

	// Histograms (seconds)
	SwitchDuration       prometheus.Observer
	CategoryPollDuration prometheus.Observer

	// Gauges
	OverlayClientsGauge prometheus.Gauge
)

// Init registers metrics (idempotent). Code paths that run before Init, such
// as unit tests, hit nil-guarded helpers and record nothing.
func Init() {
	once.Do(func() {
		GameSwitchesChanged = promauto.NewCounter(prometheus.CounterOpts{Name: "tender_game_switches_changed_total", Help: "Number of detections that switched the active game"})
		GameSwitchesSame = promauto.NewCounter(prometheus.CounterOpts{Name: "tender_game_switches_same_total", Help: "Number of detections that matched the active game"})
		StoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tender_store_failures_total", Help: "Number of tolerated store failures"}, []string{"store"})
		ChannelUpdatesOK = promauto.NewCounter(prometheus.CounterOpts{Name: "tender_channel_updates_succeeded_total", Help: "Number of channel information pushes accepted by the platform"})
		ChannelUpdatesFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "tender_channel_updates_failed_total", Help: "Number of channel information pushes that failed"})
		ChannelUpdatesSkipped = promauto.NewCounter(prometheus.CounterOpts{Name: "tender_channel_updates_skipped_total", Help: "Number of switches with no channel updater configured"})
		OverlayEvents = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tender_overlay_events_total", Help: "Number of events broadcast to overlay clients"}, []string{"type"})
		ChatCommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tender_chat_commands_handled_total", Help: "Number of chat commands answered"}, []string{"command"})
		CategoryPollCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "tender_category_poll_cycles_total", Help: "Number of category monitor poll cycles"})
		SwitchDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "tender_game_switch_duration_seconds", Help: "Game switch handling duration seconds", Buckets: prometheus.DefBuckets})
		CategoryPollDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "tender_category_poll_duration_seconds", Help: "Category poll cycle duration seconds", Buckets: prometheus.DefBuckets})
		OverlayClientsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "tender_overlay_clients", Help: "Currently connected overlay clients"})
	})
}

// CountGameSwitch records a handled detection; result is "changed" or "same".
func CountGameSwitch(result string) {
	if result == "changed" {
		if GameSwitchesChanged != nil {
			GameSwitchesChanged.Inc()
		}
		return
	}
	if GameSwitchesSame != nil {
		GameSwitchesSame.Inc()
	}
}

// CountStoreFailure records a tolerated failure in the named store.
func CountStoreFailure(store string) {
	if StoreFailures != nil {
		StoreFailures.WithLabelValues(store).Inc()
	}
}

// CountChannelUpdate records a channel push outcome: "ok", "error" or "skipped".
func CountChannelUpdate(status string) {
	switch status {
	case "ok":
		if ChannelUpdatesOK != nil {
			ChannelUpdatesOK.Inc()
		}
	case "skipped":
		if ChannelUpdatesSkipped != nil {
			ChannelUpdatesSkipped.Inc()
		}
	default:
		if ChannelUpdatesFailed != nil {
			ChannelUpdatesFailed.Inc()
		}
	}
}

// CountCategoryPoll records one completed category monitor cycle.
func CountCategoryPoll() {
	if CategoryPollCycles != nil {
		CategoryPollCycles.Inc()
	}
}

// CountOverlayEvent records one broadcast event of the given type.
func CountOverlayEvent(eventType string) {
	if OverlayEvents != nil {
		OverlayEvents.WithLabelValues(eventType).Inc()
	}
}

// CountChatCommand records one answered chat command.
func CountChatCommand(command string) {
	if ChatCommandsHandled != nil {
		ChatCommandsHandled.WithLabelValues(command).Inc()
	}
}

// SetOverlayClients records the current connected overlay client count.
func SetOverlayClients(n int) {
	if OverlayClientsGauge != nil {
		OverlayClientsGauge.Set(float64(n))
	}
}

// ObserveSwitchDuration records how long a detection took to handle.
func ObserveSwitchDuration(d time.Duration) {
	if SwitchDuration != nil {
		SwitchDuration.Observe(d.Seconds())
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
