package analytics

import "time"

// Profile selects bucket granularity from the span of the data in whole days.
// Spans up to DailyMaxDays use daily buckets, up to WeeklyMaxDays weekly
// buckets, anything longer monthly buckets.
type Profile struct {
	Name          string
	DailyMaxDays  int
	WeeklyMaxDays int
}

// The two threshold tables in use. They intentionally differ: the sentiment
// trend tolerates coarser granularity later than the general dashboard does.
var (
	GeneralProfile        = Profile{Name: "general", DailyMaxDays: 60, WeeklyMaxDays: 365}
	SentimentTrendProfile = Profile{Name: "sentiment-trend", DailyMaxDays: 90, WeeklyMaxDays: 730}
)

type bucketUnit int

const (
	unitDay bucketUnit = iota
	unitWeek
	unitMonth
)

// Bucketing maps timestamps to canonical bucket keys and enumerates every
// bucket in its span, so gap buckets surface as zero-valued points.
type Bucketing struct {
	unit bucketUnit
	min  time.Time
	max  time.Time
}

// ChooseBucketing picks a granularity for the inclusive [minDate, maxDate]
// span under the given profile.
func ChooseBucketing(minDate, maxDate time.Time, profile Profile) Bucketing {
	lo := startOfDay(minDate)
	hi := startOfDay(maxDate)
	span := int(hi.Sub(lo).Hours() / 24)

	unit := unitMonth
	switch {
	case span <= profile.DailyMaxDays:
		unit = unitDay
	case span <= profile.WeeklyMaxDays:
		unit = unitWeek
	}
	return Bucketing{unit: unit, min: lo, max: hi}
}

// KeyOf returns the canonical key of the bucket containing t. Keys are
// formatted identically to the ones produced by Keys, so map lookups line up.
func (b Bucketing) KeyOf(t time.Time) string {
	return formatBucket(b.bucketStart(t), b.unit)
}

// Keys enumerates the keys of every bucket across the span, in order,
// including buckets with no records.
func (b Bucketing) Keys() []string {
	if b.min.IsZero() && b.max.IsZero() {
		return nil
	}
	var keys []string
	last := b.bucketStart(b.max)
	for cur := b.bucketStart(b.min); !cur.After(last); cur = b.next(cur) {
		keys = append(keys, formatBucket(cur, b.unit))
	}
	return keys
}

func (b Bucketing) bucketStart(t time.Time) time.Time {
	day := startOfDay(t)
	switch b.unit {
	case unitWeek:
		// Sunday-based week start.
		return day.AddDate(0, 0, -int(day.Weekday()))
	case unitMonth:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	default:
		return day
	}
}

func (b Bucketing) next(t time.Time) time.Time {
	switch b.unit {
	case unitWeek:
		return t.AddDate(0, 0, 7)
	case unitMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func formatBucket(start time.Time, unit bucketUnit) string {
	if unit == unitMonth {
		return start.Format("2006-01")
	}
	return start.Format("2006-01-02")
}
