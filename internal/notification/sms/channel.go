package sms

import (
	"context"
	"fmt"

	"github.com/project-queyk/queyk-backend/internal/notification/domain"
)

// Name is the channel name used in dispatch outcomes.
const Name = "sms"

// PhoneSource lists phone numbers of users opted into alerts.
type PhoneSource interface {
	ListPhoneNumbers(ctx context.Context, adminOnly bool) ([]string, error)
}

// BulkSender sends one text to many numbers.
type BulkSender interface {
	SendBulk(ctx context.Context, numbers []string, message string) error
}

// Channel is the SMS notification channel.
type Channel struct {
	sender BulkSender
	phones PhoneSource
}

// NewChannel returns an SMS channel.
func NewChannel(sender BulkSender, phones PhoneSource) *Channel {
	return &Channel{sender: sender, phones: phones}
}

func (c *Channel) Name() string { return Name }

// Send texts the title and body of n to every eligible number.
func (c *Channel) Send(ctx context.Context, n domain.Notice) domain.Outcome {
	numbers, err := c.phones.ListPhoneNumbers(ctx, n.Audience == domain.AudienceAdmin)
	if err != nil {
		return domain.Failed(Name, fmt.Errorf("list phone numbers: %w", err))
	}
	if len(numbers) == 0 {
		return domain.NoRecipients(Name)
	}
	if err := c.sender.SendBulk(ctx, numbers, n.Title+"\n"+n.Body); err != nil {
		return domain.Failed(Name, err)
	}
	return domain.Delivered(Name, len(numbers))
}
