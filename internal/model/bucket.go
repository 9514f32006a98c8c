package model

import "time"

// BucketStart truncates t to the start of its bucket. Weekly buckets start
// on Sunday; all results are at midnight in t's location.
func BucketStart(t time.Time, period BucketPeriod) time.Time {
	switch period {
	case BucketWeekly:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		return day.AddDate(0, 0, -int(day.Weekday()))
	case BucketMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case BucketYearly:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

// BucketLabel formats a bucket start for presentation, matching the
// period's natural granularity.
func BucketLabel(t time.Time, period BucketPeriod) string {
	switch period {
	case BucketWeekly:
		return t.Format("Jan 02")
	case BucketMonthly:
		return t.Format("Jan 2006")
	case BucketYearly:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}
