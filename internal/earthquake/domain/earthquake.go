package domain

import "time"

// Earthquake is a recorded seismic event. Duration is in seconds.
type Earthquake struct {
	ID        string    `json:"id"`
	Magnitude float64   `json:"magnitude"`
	Duration  int       `json:"duration"`
	CreatedAt time.Time `json:"createdAt"`
}

// DayRange widens [start, end] to whole days in loc: start at 00:00:00.000 and end at 23:59:59.999.
func DayRange(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	s := start.In(loc)
	e := end.In(loc)
	from := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
	to := time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
	return from, to
}
