package otel

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/project-queyk/queyk-backend/internal/telemetry"
)

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec otellog.Record
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
}

func attributes(rec otellog.Record) map[string]string {
	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	return attrs
}

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), telemetry.NewEvent(telemetry.EventDeviceOnline, "test", nil)); err != nil {
		t.Errorf("noop Emit: %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	if err := NewEventEmitter(provider).Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

func TestEmit_AttributeAndBodyMapping(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	created := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	event := &telemetry.Event{
		ID:        "ev-1",
		EventType: telemetry.EventAlertDispatched,
		Source:    "dispatcher",
		Metadata:  json.RawMessage(`{"magnitude":4.2}`),
		CreatedAt: created,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := cap.rec
	if got := string(rec.Body().AsBytes()); got != `{"magnitude":4.2}` {
		t.Errorf("body = %q", got)
	}
	if !rec.Timestamp().Equal(created) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), created)
	}
	want := map[string]string{"event_id": "ev-1", "event_type": "alert_dispatched", "source": "dispatcher"}
	attrs := attributes(rec)
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %q = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestEmit_EmptyFields(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	before := time.Now().UTC()
	if err := em.Emit(context.Background(), &telemetry.Event{EventType: "ping"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	after := time.Now().UTC()
	rec := cap.rec
	if !rec.Body().Empty() {
		t.Error("body should be empty without metadata")
	}
	if ts := rec.Timestamp(); ts.Before(before) || ts.After(after) {
		t.Errorf("timestamp = %v, should be between %v and %v", ts, before, after)
	}
	attrs := attributes(rec)
	if attrs["event_type"] != "ping" {
		t.Errorf("event_type = %q", attrs["event_type"])
	}
	if _, ok := attrs["source"]; ok {
		t.Error("source should not be set when empty")
	}
	if _, ok := attrs["event_id"]; ok {
		t.Error("event_id should not be set when empty")
	}
}
