package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestCountersInitialized(t *testing.T) {
	Init()

	if MessagesSent == nil {
		t.Error("MessagesSent counter not initialized")
	}
	if PollCycles == nil {
		t.Error("PollCycles counter not initialized")
	}
	if RoomsCreated == nil {
		t.Error("RoomsCreated counter not initialized")
	}
	if OpenSessionsGauge == nil {
		t.Error("OpenSessionsGauge not initialized")
	}
}

func TestInitIdempotent(t *testing.T) {
	Init()
	first := MessagesSent
	Init()
	if MessagesSent != first {
		t.Error("Init re-registered metrics")
	}
}

func TestTimeFunc(t *testing.T) {
	Init()
	d := TimeFunc(SendDuration, func() { time.Sleep(5 * time.Millisecond) })
	if d < 5*time.Millisecond {
		t.Errorf("TimeFunc returned %v, want >= 5ms", d)
	}
	// nil observer must not panic
	TimeFunc(nil, func() {})
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation on empty context = %q, want empty", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("GetCorrelation = %q, want abc-123", got)
	}
	if l := LoggerWithCorr(ctx); l == nil {
		t.Error("LoggerWithCorr returned nil")
	}
}
