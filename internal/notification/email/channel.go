// Package email delivers alerts as one bulk HTML email per dispatch.
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/project-queyk/queyk-backend/internal/notification/domain"
	"github.com/project-queyk/queyk-backend/internal/notification/templates"
)

// Name is the channel name used in dispatch outcomes.
const Name = "email"

// RecipientSource lists addresses of users opted into alert emails.
type RecipientSource interface {
	ListEmailRecipients(ctx context.Context, adminOnly bool) ([]string, error)
}

// TemplateSource returns the active alert texts.
type TemplateSource interface {
	Current() templates.Templates
}

// Channel is the email notification channel.
type Channel struct {
	sender     Sender
	recipients RecipientSource
	templates  TemplateSource
	now        func() time.Time
}

// NewChannel returns an email channel.
func NewChannel(sender Sender, recipients RecipientSource, tpl TemplateSource) *Channel {
	return &Channel{sender: sender, recipients: recipients, templates: tpl, now: time.Now}
}

func (c *Channel) Name() string { return Name }

// Send mails n to every eligible recipient in a single message.
func (c *Channel) Send(ctx context.Context, n domain.Notice) domain.Outcome {
	addrs, err := c.recipients.ListEmailRecipients(ctx, n.Audience == domain.AudienceAdmin)
	if err != nil {
		return domain.Failed(Name, fmt.Errorf("list recipients: %w", err))
	}
	if len(addrs) == 0 {
		return domain.NoRecipients(Name)
	}
	html, text, err := render(n, c.templates.Current(), c.now())
	if err != nil {
		return domain.Failed(Name, fmt.Errorf("render body: %w", err))
	}
	subject := n.Subject
	if subject == "" {
		subject = n.Title
	}
	if err := c.sender.Send(ctx, Message{Bcc: addrs, Subject: subject, HTML: html, Text: text}); err != nil {
		return domain.Failed(Name, err)
	}
	return domain.Delivered(Name, len(addrs))
}
