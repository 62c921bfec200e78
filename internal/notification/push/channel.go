package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/project-queyk/queyk-backend/internal/logging"
	"github.com/project-queyk/queyk-backend/internal/notification/domain"
)

// Name is the channel name used in dispatch outcomes.
const Name = "push"

const androidChannelID = "earthquake-alerts"

// TokenSource lists Expo tokens of users opted into push alerts.
type TokenSource interface {
	ListPushTokens(ctx context.Context, adminOnly bool) ([]string, error)
}

// Sender sends one chunk of push messages.
type Sender interface {
	Send(ctx context.Context, msgs []Message) ([]Ticket, error)
}

// Channel is the push notification channel.
type Channel struct {
	sender Sender
	tokens TokenSource
	logger *slog.Logger
}

// NewChannel returns a push channel.
func NewChannel(sender Sender, tokens TokenSource, logger *slog.Logger) *Channel {
	return &Channel{sender: sender, tokens: tokens, logger: logging.OrDefault(logger).With("component", "push")}
}

func (c *Channel) Name() string { return Name }

// Send pushes n to every valid token. A chunk that fails is logged and skipped; the outcome
// counts tickets Expo accepted.
func (c *Channel) Send(ctx context.Context, n domain.Notice) domain.Outcome {
	tokens, err := c.tokens.ListPushTokens(ctx, n.Audience == domain.AudienceAdmin)
	if err != nil {
		return domain.Failed(Name, fmt.Errorf("list tokens: %w", err))
	}
	msgs := make([]Message, 0, len(tokens))
	for _, tok := range tokens {
		if !IsExpoPushToken(tok) {
			c.logger.Warn("skipping invalid expo push token")
			continue
		}
		msgs = append(msgs, Message{
			To:        tok,
			Title:     n.Title,
			Body:      n.Body,
			Data:      n.Data,
			Sound:     "default",
			Priority:  "high",
			ChannelID: androidChannelID,
		})
	}
	if len(msgs) == 0 {
		return domain.NoRecipients(Name)
	}

	var (
		accepted int
		tickets  int
		errs     []error
	)
	for i, chunk := range Chunk(msgs) {
		got, err := c.sender.Send(ctx, chunk)
		if err != nil {
			c.logger.Error("push chunk failed", "chunk", i, "size", len(chunk), "error", err)
			errs = append(errs, err)
			continue
		}
		tickets += len(got)
		for _, t := range got {
			if t.OK() {
				accepted++
			} else {
				c.logger.Warn("push ticket rejected", "message", t.Message, "details", t.Details)
			}
		}
	}
	c.logger.Info("push tickets received", "tickets", tickets, "accepted", accepted)
	if accepted == 0 {
		if len(errs) == 0 {
			errs = append(errs, fmt.Errorf("expo rejected all %d messages", tickets))
		}
		return domain.Failed(Name, errors.Join(errs...))
	}
	return domain.Delivered(Name, accepted)
}
