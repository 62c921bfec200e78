package domain

import "time"

// Status is a point-in-time view of the seismic device's liveness, published after every check.
type Status struct {
	// Checked is false until the first check completes.
	Checked bool `json:"checked"`
	Online  bool `json:"online"`
	// LastReadingTime is nil when no reading was ever recorded.
	LastReadingTime *time.Time `json:"lastReadingTime"`
	// OfflineNotificationSent is true while the device is offline and admins have been alerted.
	OfflineNotificationSent bool      `json:"offlineNotificationSent"`
	CheckedAt               time.Time `json:"checkedAt"`
}

// IsOffline reports whether a device last seen at last is offline at now. A device that never
// reported is offline.
func IsOffline(last *time.Time, now time.Time, threshold time.Duration) bool {
	return last == nil || now.Sub(*last) >= threshold
}
