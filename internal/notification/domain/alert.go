// Package domain holds the alert, notice and per-channel outcome types shared by the dispatcher and its channels.
package domain

import (
	"strconv"
)

// Audience selects which recipients an alert goes to.
type Audience string

const (
	// AudienceAll is every opted-in user (earthquake alerts).
	AudienceAll Audience = "all"
	// AudienceAdmin is users with the admin role (device alerts).
	AudienceAdmin Audience = "admin"
)

// Kind distinguishes earthquake alerts from operational ones.
type Kind string

const (
	KindEarthquake    Kind = "earthquake"
	KindDeviceOffline Kind = "device_offline"
)

// Alert is what callers ask the dispatcher to send. For earthquakes, Title and Message are optional and
// are derived from Magnitude when empty.
type Alert struct {
	Kind      Kind
	Audience  Audience
	Magnitude float64
	Title     string
	Message   string
	Data      map[string]any
}

// Severity buckets a magnitude for the canned safety text.
type Severity string

const (
	SeverityMinor    Severity = "minor"    // < 3
	SeverityModerate Severity = "moderate" // 3 <= m < 6
	SeveritySevere   Severity = "severe"   // >= 6
)

// SeverityFor returns the severity bucket for magnitude.
func SeverityFor(magnitude float64) Severity {
	switch {
	case magnitude < 3:
		return SeverityMinor
	case magnitude < 6:
		return SeverityModerate
	default:
		return SeveritySevere
	}
}

// FormatMagnitude renders a magnitude the way it appears in alert texts (shortest form, e.g. "4.5").
func FormatMagnitude(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64)
}

// Notice is a fully composed alert handed to every channel. It is read-only once built.
type Notice struct {
	Kind      Kind
	Audience  Audience
	Magnitude float64
	Severity  Severity
	// Title is the short headline (push title, socket title).
	Title string
	// Subject is the email subject line.
	Subject string
	// Body is the alert text shown to people.
	Body string
	// Data is the structured payload attached to push and socket messages.
	Data map[string]any
}
