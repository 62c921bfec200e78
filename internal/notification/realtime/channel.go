// Package realtime delivers alerts to connected websocket clients.
package realtime

import (
	"context"
	"time"

	"github.com/project-queyk/queyk-backend/internal/notification/domain"
)

// Name is the channel name used in dispatch outcomes.
const Name = "realtime"

// EventAlert is the socket event name for alerts.
const EventAlert = "alert"

// Broadcaster sends an event to every connected client and reports how many received it.
type Broadcaster interface {
	Broadcast(event string, payload any) (int, error)
}

// Payload is the socket message data for an alert.
type Payload struct {
	Kind      domain.Kind     `json:"kind"`
	Audience  domain.Audience `json:"audience"`
	Magnitude float64         `json:"magnitude,omitempty"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Data      map[string]any  `json:"data,omitempty"`
	SentAt    time.Time       `json:"sentAt"`
}

// Channel is the realtime notification channel.
type Channel struct {
	hub Broadcaster
	now func() time.Time
}

// NewChannel returns a realtime channel over hub.
func NewChannel(hub Broadcaster) *Channel {
	return &Channel{hub: hub, now: time.Now}
}

func (c *Channel) Name() string { return Name }

// Send broadcasts n. No connected clients counts as no eligible recipients. Socket clients are
// anonymous, so admin-only notices are never broadcast.
func (c *Channel) Send(_ context.Context, n domain.Notice) domain.Outcome {
	if n.Audience == domain.AudienceAdmin {
		return domain.NoRecipients(Name)
	}
	delivered, err := c.hub.Broadcast(EventAlert, Payload{
		Kind:      n.Kind,
		Audience:  n.Audience,
		Magnitude: n.Magnitude,
		Title:     n.Title,
		Message:   n.Body,
		Data:      n.Data,
		SentAt:    c.now().UTC(),
	})
	if err != nil {
		return domain.Failed(Name, err)
	}
	if delivered == 0 {
		return domain.NoRecipients(Name)
	}
	return domain.Delivered(Name, delivered)
}
