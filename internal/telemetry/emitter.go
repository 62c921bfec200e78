package telemetry

import (
	"context"
	"errors"
)

// EventEmitter emits telemetry events (e.g. to Kafka or OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// Multi fans an event out to every non-nil emitter and joins their errors.
type Multi []EventEmitter

// Emit sends event to each emitter in order.
func (m Multi) Emit(ctx context.Context, event *Event) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
