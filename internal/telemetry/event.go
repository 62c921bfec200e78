package telemetry

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the backend.
const (
	EventReadingIngested = "reading_ingested"
	EventDeviceOffline   = "device_offline"
	EventDeviceOnline    = "device_online"
	EventAlertDispatched = "alert_dispatched"
	EventEarthquake      = "earthquake_recorded"
	EventGRPCRequest     = "grpc_request"
)

// Event is one domain telemetry event. Metadata is an arbitrary JSON object.
type Event struct {
	ID        string          `json:"id"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent builds an event stamped with a fresh ID and the current UTC time.
// metadata is marshalled to JSON; a value that cannot be marshalled is dropped.
func NewEvent(eventType, source string, metadata any) *Event {
	ev := &Event{
		ID:        uuid.New().String(),
		EventType: eventType,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			ev.Metadata = raw
		}
	}
	return ev
}
