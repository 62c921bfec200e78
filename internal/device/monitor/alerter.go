package monitor

import (
	"context"
	"fmt"
	"time"

	ndomain "github.com/project-queyk/queyk-backend/internal/notification/domain"
	"github.com/project-queyk/queyk-backend/internal/notification/templates"
)

// LastReadingLayout is how the last reading time appears in the offline alert.
const LastReadingLayout = "Jan 2, 2006, 03:04:05 PM"

// Dispatcher sends an alert through the notification channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert ndomain.Alert) (*ndomain.Result, error)
}

// TemplateSource returns the active alert texts.
type TemplateSource interface {
	Current() templates.Templates
}

// DispatchAlerter sends the offline alert to admins through the dispatcher.
type DispatchAlerter struct {
	dispatcher Dispatcher
	templates  TemplateSource
	threshold  time.Duration
	location   *time.Location
}

// NewDispatchAlerter returns an Alerter. loc is the zone for the last reading time; nil means UTC.
func NewDispatchAlerter(d Dispatcher, tpl TemplateSource, threshold time.Duration, loc *time.Location) *DispatchAlerter {
	if loc == nil {
		loc = time.UTC
	}
	return &DispatchAlerter{dispatcher: d, templates: tpl, threshold: threshold, location: loc}
}

func (a *DispatchAlerter) NotifyOffline(ctx context.Context, lastSeen *time.Time) error {
	lastReading := "Unknown"
	data := map[string]any{"lastReadingTime": nil}
	if lastSeen != nil {
		lastReading = lastSeen.In(a.location).Format(LastReadingLayout)
		data["lastReadingTime"] = lastSeen.UTC()
	}
	title, body := a.templates.Current().Offline(FormatThreshold(a.threshold), lastReading)
	_, err := a.dispatcher.Dispatch(ctx, ndomain.Alert{
		Kind:     ndomain.KindDeviceOffline,
		Audience: ndomain.AudienceAdmin,
		Title:    title,
		Message:  body,
		Data:     data,
	})
	return err
}

// FormatThreshold renders d for people, e.g. "6 minutes" or "90 seconds".
func FormatThreshold(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
