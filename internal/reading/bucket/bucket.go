// Package bucket downsamples a time-ordered series of readings into fixed-width time buckets.
// The bucket width is derived from the span of the queried range, never from the caller.
package bucket

import (
	"math"
	"sort"
	"time"

	"github.com/project-queyk/queyk-backend/internal/reading/domain"
)

const day = 24 * time.Hour

// Bucket is one aggregated window [Start, Start+width).
type Bucket struct {
	Start     time.Time      `json:"bucketStart"`
	Aggregate domain.Reading `json:"aggregate"`
}

// WidthFor returns the bucket width for a query range of the given span.
func WidthFor(span time.Duration) time.Duration {
	switch {
	case span <= day:
		return 30 * time.Minute
	case span <= 3*day:
		return time.Hour
	case span <= 7*day:
		return 2 * time.Hour
	case span <= 30*day:
		return 6 * time.Hour
	default:
		return day
	}
}

// Key returns the bucket start for t: floor(t / width) * width on the Unix epoch.
func Key(t time.Time, width time.Duration) time.Time {
	w := width.Milliseconds()
	ms := t.UnixMilli()
	k := ms / w
	if ms%w != 0 && ms < 0 {
		k--
	}
	return time.UnixMilli(k * w).UTC()
}

type accumulator struct {
	start      time.Time
	count      int
	sumAverage float64
	sumBattery float64
	min        float64
	max        float64
	last       domain.Reading
}

func (a *accumulator) add(r domain.Reading) {
	if a.count == 0 {
		a.min = r.SIMinimum
		a.max = r.SIMaximum
		a.last = r
	} else {
		a.min = math.Min(a.min, r.SIMinimum)
		a.max = math.Max(a.max, r.SIMaximum)
		// Later input wins on equal timestamps.
		if !r.CreatedAt.Before(a.last.CreatedAt) {
			a.last = r
		}
	}
	a.count++
	a.sumAverage += r.SIAverage
	a.sumBattery += r.Battery
}

func (a *accumulator) reduce() Bucket {
	agg := a.last
	if a.count > 1 {
		agg.SIAverage = a.sumAverage / float64(a.count)
		agg.Battery = a.sumBattery / float64(a.count)
	}
	agg.SIMinimum = a.min
	agg.SIMaximum = a.max
	return Bucket{Start: a.start, Aggregate: agg}
}

// Downsample groups readings into buckets sized for the span end-start and reduces each bucket:
// siAverage and battery are means, siMinimum/siMaximum are min/max, and signalStrength, createdAt
// and id come from the chronologically last member. Output is ascending by bucket start regardless
// of input order. Empty input yields an empty, non-nil slice; gaps produce no buckets.
func Downsample(readings []domain.Reading, start, end time.Time) []Bucket {
	return DownsampleWidth(readings, WidthFor(end.Sub(start)))
}

// DownsampleWidth is Downsample with an explicit bucket width.
func DownsampleWidth(readings []domain.Reading, width time.Duration) []Bucket {
	if width < time.Millisecond {
		width = time.Millisecond
	}
	groups := make(map[int64]*accumulator)
	for _, r := range readings {
		start := Key(r.CreatedAt, width)
		k := start.UnixMilli()
		acc, ok := groups[k]
		if !ok {
			acc = &accumulator{start: start}
			groups[k] = acc
		}
		acc.add(r)
	}

	keys := make([]int64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, groups[k].reduce())
	}
	return out
}
