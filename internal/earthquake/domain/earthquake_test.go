package domain

import (
	"testing"
	"time"
)

func TestDayRange(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	tests := []struct {
		name       string
		start, end time.Time
		loc        *time.Location
		wantFrom   time.Time
		wantTo     time.Time
	}{
		{
			name:     "utc",
			start:    time.Date(2025, 3, 4, 15, 30, 0, 0, time.UTC),
			end:      time.Date(2025, 3, 6, 1, 0, 0, 0, time.UTC),
			wantFrom: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2025, 3, 6, 23, 59, 59, 999000000, time.UTC),
		},
		{
			name:     "zone shifts the day",
			start:    time.Date(2025, 3, 4, 20, 0, 0, 0, time.UTC),
			end:      time.Date(2025, 3, 4, 20, 0, 0, 0, time.UTC),
			loc:      manila,
			wantFrom: time.Date(2025, 3, 5, 0, 0, 0, 0, manila),
			wantTo:   time.Date(2025, 3, 5, 23, 59, 59, 999000000, manila),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := DayRange(tt.start, tt.end, tt.loc)
			if !from.Equal(tt.wantFrom) || !to.Equal(tt.wantTo) {
				t.Errorf("DayRange = %v, %v; want %v, %v", from, to, tt.wantFrom, tt.wantTo)
			}
		})
	}
}
