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
	MessagesSent      prometheus.Counter
	MessagesReceived  prometheus.Counter
	SendsFailed       prometheus.Counter
	PollCycles        prometheus.Counter
	PollErrors        prometheus.Counter
	RoomsResolved     prometheus.Counter
	RoomsCreated      prometheus.Counter
	NotificationsSent prometheus.Counter

	// Histograms (seconds)
	SendDuration    prometheus.Observer
	PollDuration    prometheus.Observer
	ResolveDuration prometheus.Observer

	// Gauges
	OpenSessionsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_sent_total", Help: "Number of messages sent through open sessions"})
		MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_received_total", Help: "Number of counterpart messages delivered by pollers"})
		SendsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_sends_failed_total", Help: "Number of message sends that failed"})
		PollCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_poll_cycles_total", Help: "Number of completed poll cycles across all sessions"})
		PollErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_poll_errors_total", Help: "Number of poll cycles skipped due to fetch errors"})
		RoomsResolved = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_rooms_resolved_total", Help: "Number of private rooms resolved to an existing room"})
		RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_rooms_created_total", Help: "Number of private rooms created"})
		NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_notifications_total", Help: "Number of incoming-message notifications fired"})
		SendDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chat_send_duration_seconds", Help: "Message send duration seconds", Buckets: prometheus.DefBuckets})
		PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chat_poll_duration_seconds", Help: "Poll cycle duration seconds", Buckets: prometheus.DefBuckets})
		ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chat_room_resolve_duration_seconds", Help: "Room resolve-or-create duration seconds", Buckets: prometheus.DefBuckets})
		OpenSessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_open_sessions", Help: "Current number of open chat sessions"})
	})
}

// SetOpenSessions records the current number of live sessions.
func SetOpenSessions(n int) {
	if OpenSessionsGauge != nil {
		OpenSessionsGauge.Set(float64(n))
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

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
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
