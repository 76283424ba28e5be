package analytics

import (
	"strings"
	"time"

	"github.com/chatlens/chatlens/internal/models"
)

// Recognized sentiment labels in canonical form.
const (
	LabelPositive = "Positive"
	LabelNegative = "Negative"
	LabelNeutral  = "Neutral"
)

// NormalizeLabel maps a raw sentiment label to its canonical form. The second
// return value is false for labels outside the recognized set; such records
// are silently excluded from every label-dependent aggregation.
func NormalizeLabel(label string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "positive":
		return LabelPositive, true
	case "negative":
		return LabelNegative, true
	case "neutral":
		return LabelNeutral, true
	}
	return "", false
}

// FilterMessages returns the messages retained by spec. The input slice is
// never mutated; all predicates AND together.
func FilterMessages(messages []models.Message, spec models.FilterSpec) []models.Message {
	from, to, hasRange := dateWindow(spec.DateRange)
	allowed := participantSet(spec.Participants)

	filtered := make([]models.Message, 0, len(messages))
	for _, msg := range messages {
		if hasRange && (msg.Date.Before(from) || msg.Date.After(to)) {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[msg.Sender]; !ok {
				continue
			}
		}
		if !hourInPeriod(spec.TimePeriod, msg.Date.Hour()) {
			continue
		}
		filtered = append(filtered, msg)
	}
	return filtered
}

// FilterSentiment returns the sentiment records retained by spec. Retained
// records are copies carrying the canonical label, so downstream aggregators
// never re-normalize. Records with unrecognized labels are dropped.
func FilterSentiment(records []models.SentimentRecord, spec models.FilterSpec) []models.SentimentRecord {
	from, to, hasRange := dateWindow(spec.DateRange)
	allowed := participantSet(spec.Participants)
	labels := sentimentLabelSet(spec.SentimentTypes)

	filtered := make([]models.SentimentRecord, 0, len(records))
	for _, rec := range records {
		label, ok := NormalizeLabel(rec.OverallLabel)
		if !ok {
			continue
		}
		if _, ok := labels[label]; !ok {
			continue
		}
		if hasRange && (rec.Date.Before(from) || rec.Date.After(to)) {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[rec.Sender]; !ok {
				continue
			}
		}
		if !hourInPeriod(spec.TimePeriod, rec.Date.Hour()) {
			continue
		}
		rec.OverallLabel = label
		filtered = append(filtered, rec)
	}
	return filtered
}

// dateWindow expands an optional DateRange into an inclusive
// [startOfDay(from), endOfDay(to)] window. A missing To collapses the range
// to the single day of From.
func dateWindow(r *models.DateRange) (from, to time.Time, ok bool) {
	if r == nil {
		return time.Time{}, time.Time{}, false
	}
	from = startOfDay(r.From)
	last := r.From
	if r.To != nil {
		last = *r.To
	}
	to = startOfDay(last).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return from, to, true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// participantSet returns nil when the allow-list is empty, meaning no
// participant restriction.
func participantSet(participants []string) map[string]struct{} {
	if len(participants) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		set[p] = struct{}{}
	}
	return set
}

func sentimentLabelSet(types []string) map[string]struct{} {
	set := make(map[string]struct{}, 3)
	if len(types) == 0 {
		set[LabelPositive] = struct{}{}
		set[LabelNegative] = struct{}{}
		set[LabelNeutral] = struct{}{}
		return set
	}
	for _, t := range types {
		if label, ok := NormalizeLabel(t); ok {
			set[label] = struct{}{}
		}
	}
	return set
}

// hourInPeriod implements the fixed time-of-day bucket table. Unknown periods
// behave like "All Day" so a stale UI value never blanks the dashboard.
func hourInPeriod(period string, hour int) bool {
	switch period {
	case models.PeriodMorning:
		return hour >= 6 && hour <= 11
	case models.PeriodAfternoon:
		return hour >= 12 && hour <= 16
	case models.PeriodEvening:
		return hour >= 17 && hour <= 20
	case models.PeriodNight:
		return hour >= 21 || hour <= 5
	default:
		return true
	}
}
