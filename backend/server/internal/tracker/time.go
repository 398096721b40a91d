package tracker

import (
	"math"
	"time"
)

// All minute values in the tracker carry 2-decimal precision; every
// arithmetic step re-rounds to keep float drift out of the stored buckets.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func preciseMinutesBetween(start, end time.Time) float64 {
	return round2(end.Sub(start).Minutes())
}

// utcDay truncates t to midnight UTC of its calendar date.
func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfNextHour(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC).Add(time.Hour)
}

// minutesToNextHour is the fractional number of minutes between t and the
// next hour boundary. Sub-second offsets are ignored, matching the precision
// of reported timestamps.
func minutesToNextHour(t time.Time) float64 {
	t = t.UTC()
	return 60 - float64(t.Minute()) - float64(t.Second())/60
}
