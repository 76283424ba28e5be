package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/chatlens/chatlens/internal/models"
)

// SparkPoint is one point of a KPI sparkline.
type SparkPoint struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// KPIMetric is one card of the dashboard KPI row.
type KPIMetric struct {
	Title string       `json:"title"`
	Value float64      `json:"value"`
	Spark []SparkPoint `json:"spark,omitempty"`
}

// TimeSeriesPoint is one bucket of the messages-over-time chart.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DayActivity is one weekday bar, Sunday first. Fill carries the chart color
// so the presentation layer stays free of palette logic.
type DayActivity struct {
	Day      string `json:"day"`
	Messages int    `json:"messages"`
	Fill     string `json:"fill"`
}

// HourActivity is one hour-of-day bar.
type HourActivity struct {
	Hour     int `json:"hour"`
	Messages int `json:"messages"`
}

// Contribution tag values.
const (
	ContributionSingle = "single"
	ContributionTwo    = "two"
	ContributionMulti  = "multi"
)

// Contribution is the participant-contribution view, shaped by how many
// participants are active in the filtered set: exactly one gives a share-of-
// voice card, exactly two a head-to-head split, anything else a ranked list.
type Contribution struct {
	Type string           `json:"type"`
	Data ContributionData `json:"data"`
}

// ContributionData is the closed set of contribution payloads.
type ContributionData interface {
	contributionData()
}

// SingleContribution expresses one sender's share of all messages in the
// matching window.
type SingleContribution struct {
	Name             string  `json:"name"`
	Percentage       float64 `json:"percentage"`
	OthersPercentage float64 `json:"othersPercentage"`
}

// ParticipantMessages pairs a sender with a message count.
type ParticipantMessages struct {
	Name     string `json:"name"`
	Messages int    `json:"messages"`
}

// TwoContribution is the head-to-head split for a two-person conversation.
type TwoContribution struct {
	Participants  []ParticipantMessages `json:"participants"`
	TotalMessages int                   `json:"totalMessages"`
}

// MultiContribution ranks the top senders by message count, descending.
type MultiContribution []ParticipantMessages

func (SingleContribution) contributionData() {}
func (TwoContribution) contributionData()    {}
func (MultiContribution) contributionData()  {}

// StyleStats is one participant's row of the communication-style matrix.
type StyleStats struct {
	Name      string `json:"name"`
	Text      int    `json:"text"`
	Media     int    `json:"media"`
	Links     int    `json:"links"`
	Questions int    `json:"questions"`
	Emojis    int    `json:"emojis"`
}

// Timeline tag values mirror the contribution tags.
type Timeline struct {
	Type     string            `json:"type"`
	Segments []TimelineSegment `json:"segments"`
}

// BalanceEntry is one side of a two-person month split.
type BalanceEntry struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// TimelineSegment summarizes one calendar month. ConversationBalance is only
// present for two-participant chats; ActiveParticipants and MostActive only
// for chats with three or more participants overall.
type TimelineSegment struct {
	Month               string         `json:"month"`
	TotalMessages       int            `json:"totalMessages"`
	PeakDay             string         `json:"peakDay"`
	ConversationBalance []BalanceEntry `json:"conversationBalance,omitempty"`
	ActiveParticipants  int            `json:"activeParticipants,omitempty"`
	MostActive          string         `json:"mostActive,omitempty"`
}

// ActiveParticipants lists the distinct senders of the given messages in
// first-appearance order. First-appearance order is the tie-break used by
// every ranking in this package.
func ActiveParticipants(messages []models.Message) []string {
	seen := make(map[string]struct{}, 8)
	var participants []string
	for _, msg := range messages {
		if _, ok := seen[msg.Sender]; !ok {
			seen[msg.Sender] = struct{}{}
			participants = append(participants, msg.Sender)
		}
	}
	return participants
}

// BuildKPIMetrics derives the four KPI cards from the filtered set. The two
// sparklines bucket the filtered set over its own span.
func BuildKPIMetrics(filtered []models.Message) []KPIMetric {
	totalMessages := len(filtered)
	participants := ActiveParticipants(filtered)

	days := make(map[string]struct{})
	for _, msg := range filtered {
		days[msg.Date.Format("2006-01-02")] = struct{}{}
	}
	activeDays := len(days)

	avgPerDay := 0.0
	if activeDays > 0 {
		avgPerDay = round1(float64(totalMessages) / float64(activeDays))
	}

	var totalSpark, participantSpark []SparkPoint
	if totalMessages > 0 {
		minDate, maxDate := dateBounds(filtered)
		bucketing := ChooseBucketing(minDate, maxDate, GeneralProfile)

		counts := make(map[string]int)
		senders := make(map[string]map[string]struct{})
		for _, msg := range filtered {
			key := bucketing.KeyOf(msg.Date)
			counts[key]++
			if senders[key] == nil {
				senders[key] = make(map[string]struct{})
			}
			senders[key][msg.Sender] = struct{}{}
		}
		for _, key := range bucketing.Keys() {
			totalSpark = append(totalSpark, SparkPoint{Date: key, Value: counts[key]})
			participantSpark = append(participantSpark, SparkPoint{Date: key, Value: len(senders[key])})
		}
	}

	return []KPIMetric{
		{Title: "Total Messages", Value: float64(totalMessages), Spark: totalSpark},
		{Title: "Active Participants", Value: float64(len(participants)), Spark: participantSpark},
		{Title: "Active Days", Value: float64(activeDays)},
		{Title: "Avg Messages/Day", Value: avgPerDay},
	}
}

// BuildMessagesOverTime buckets the filtered set across its own span under
// the general profile, zero-filling gap buckets. Empty input yields an empty
// series, never an error.
func BuildMessagesOverTime(filtered []models.Message) []TimeSeriesPoint {
	if len(filtered) == 0 {
		return []TimeSeriesPoint{}
	}
	minDate, maxDate := dateBounds(filtered)
	bucketing := ChooseBucketing(minDate, maxDate, GeneralProfile)

	counts := make(map[string]int)
	for _, msg := range filtered {
		counts[bucketing.KeyOf(msg.Date)]++
	}

	series := make([]TimeSeriesPoint, 0, len(counts))
	for _, key := range bucketing.Keys() {
		series = append(series, TimeSeriesPoint{Date: key, Count: counts[key]})
	}
	return series
}

// BuildActivityByDay always returns all seven weekdays, Sunday first, with a
// deterministic color ramp so the same weekday keeps the same color across
// filter changes.
func BuildActivityByDay(filtered []models.Message) []DayActivity {
	counts := make(map[time.Weekday]int, 7)
	for _, msg := range filtered {
		counts[msg.Date.Weekday()]++
	}

	activity := make([]DayActivity, 0, 7)
	for i := 0; i < 7; i++ {
		wd := time.Weekday(i)
		activity = append(activity, DayActivity{
			Day:      wd.String()[:3],
			Messages: counts[wd],
			Fill:     weekdayFill(i),
		})
	}
	return activity
}

// weekdayFill walks an HSL ramp from the brand hue, darkening 5 points of
// lightness per weekday index.
func weekdayFill(index int) string {
	lightness := (40.0 - 5.0*float64(index)) / 100.0
	return colorful.Hsl(171, 0.79, lightness).Hex()
}

// BuildHourlyActivity always returns all 24 hours, zero-filled.
func BuildHourlyActivity(filtered []models.Message) []HourActivity {
	counts := make(map[int]int, 24)
	for _, msg := range filtered {
		counts[msg.Date.Hour()]++
	}

	activity := make([]HourActivity, 0, 24)
	for hour := 0; hour < 24; hour++ {
		activity = append(activity, HourActivity{Hour: hour, Messages: counts[hour]})
	}
	return activity
}

// BuildContribution selects the contribution shape from the number of active
// participants in the filtered set. For the single shape the denominator is
// the total for the matching time/date window: when a participant filter is
// active it is re-derived from the unfiltered set with the participant
// restriction lifted, so the share is never computed against an already
// participant-filtered subset.
func BuildContribution(filtered, all []models.Message, spec models.FilterSpec) Contribution {
	participants := ActiveParticipants(filtered)
	counts := make(map[string]int, len(participants))
	for _, msg := range filtered {
		counts[msg.Sender]++
	}

	switch len(participants) {
	case 1:
		name := participants[0]
		denominator := len(filtered)
		if len(spec.Participants) > 0 {
			window := spec
			window.Participants = nil
			denominator = len(FilterMessages(all, window))
		}
		percentage := 0.0
		othersPercentage := 0.0
		if denominator > 0 {
			percentage = round1(float64(counts[name]) / float64(denominator) * 100)
			othersPercentage = round1(100 - percentage)
		}
		return Contribution{
			Type: ContributionSingle,
			Data: SingleContribution{Name: name, Percentage: percentage, OthersPercentage: othersPercentage},
		}

	case 2:
		pair := make([]ParticipantMessages, 0, 2)
		for _, name := range participants {
			pair = append(pair, ParticipantMessages{Name: name, Messages: counts[name]})
		}
		return Contribution{
			Type: ContributionTwo,
			Data: TwoContribution{Participants: pair, TotalMessages: len(filtered)},
		}

	default:
		ranked := make(MultiContribution, 0, len(participants))
		for _, name := range participants {
			ranked = append(ranked, ParticipantMessages{Name: name, Messages: counts[name]})
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Messages > ranked[j].Messages
		})
		if len(ranked) > 30 {
			ranked = ranked[:30]
		}
		return Contribution{Type: ContributionMulti, Data: ranked}
	}
}

// BuildActivityProfile computes the communication-style matrix. With more
// than three active participants only the top three by message count are
// profiled; with three or fewer, all of them, in first-appearance order.
// Returns nil when nobody is active.
func BuildActivityProfile(filtered []models.Message) []StyleStats {
	participants := ActiveParticipants(filtered)
	if len(participants) == 0 {
		return nil
	}

	if len(participants) > 3 {
		counts := make(map[string]int, len(participants))
		for _, msg := range filtered {
			counts[msg.Sender]++
		}
		sort.SliceStable(participants, func(i, j int) bool {
			return counts[participants[i]] > counts[participants[j]]
		})
		participants = participants[:3]
	}

	stats := make(map[string]*StyleStats, len(participants))
	profile := make([]StyleStats, 0, len(participants))
	for _, name := range participants {
		stats[name] = &StyleStats{Name: name}
	}
	for _, msg := range filtered {
		s, ok := stats[msg.Sender]
		if !ok {
			continue
		}
		if msg.IsMedia {
			s.Media++
		} else if msg.WordCount > 0 {
			s.Text++
		}
		s.Links += msg.LinksCount
		if msg.IsQuestion {
			s.Questions++
		}
		s.Emojis += msg.EmojisCount
	}
	for _, name := range participants {
		profile = append(profile, *stats[name])
	}
	return profile
}

// BuildTimeline groups the filtered set by calendar month. The segment shape
// follows the overall participant count of the filtered set, not the
// per-month count: a silent month participant still appears in the balance
// with a zero percentage.
func BuildTimeline(filtered []models.Message) Timeline {
	participants := ActiveParticipants(filtered)

	timelineType := ContributionMulti
	switch len(participants) {
	case 1:
		timelineType = ContributionSingle
	case 2:
		timelineType = ContributionTwo
	}
	timeline := Timeline{Type: timelineType, Segments: []TimelineSegment{}}
	if len(filtered) == 0 {
		return timeline
	}

	type monthData struct {
		start    time.Time
		messages []models.Message
	}
	months := make(map[string]*monthData)
	for _, msg := range filtered {
		key := msg.Date.Format("2006-01")
		m, ok := months[key]
		if !ok {
			m = &monthData{start: time.Date(msg.Date.Year(), msg.Date.Month(), 1, 0, 0, 0, 0, msg.Date.Location())}
			months[key] = m
		}
		m.messages = append(m.messages, msg)
	}

	keys := make([]string, 0, len(months))
	for key := range months {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		m := months[key]
		segment := TimelineSegment{
			Month:         m.start.Format("January 2006"),
			TotalMessages: len(m.messages),
			PeakDay:       peakDay(m.messages),
		}

		switch len(participants) {
		case 1:
			// Base fields only.
		case 2:
			monthCounts := make(map[string]int, 2)
			for _, msg := range m.messages {
				monthCounts[msg.Sender]++
			}
			balance := make([]BalanceEntry, 0, 2)
			for _, name := range participants {
				pct := 0.0
				if len(m.messages) > 0 {
					pct = round1(float64(monthCounts[name]) / float64(len(m.messages)) * 100)
				}
				balance = append(balance, BalanceEntry{Name: name, Percentage: pct})
			}
			segment.ConversationBalance = balance
		default:
			segment.ActiveParticipants = len(ActiveParticipants(m.messages))
			segment.MostActive = mostActiveSender(m.messages)
		}

		timeline.Segments = append(timeline.Segments, segment)
	}
	return timeline
}

// peakDay returns the ordinal day-of-month with the most messages; the
// earliest such day wins ties.
func peakDay(messages []models.Message) string {
	counts := make(map[int]int, 31)
	for _, msg := range messages {
		counts[msg.Date.Day()]++
	}
	best, bestCount := 0, 0
	for day := 1; day <= 31; day++ {
		if counts[day] > bestCount {
			best, bestCount = day, counts[day]
		}
	}
	if best == 0 {
		return ""
	}
	return ordinal(best)
}

func mostActiveSender(messages []models.Message) string {
	counts := make(map[string]int)
	best, bestCount := "", 0
	for _, msg := range messages {
		counts[msg.Sender]++
		if counts[msg.Sender] > bestCount {
			best, bestCount = msg.Sender, counts[msg.Sender]
		}
	}
	return best
}

func ordinal(day int) string {
	suffix := "th"
	if day%100 < 11 || day%100 > 13 {
		switch day % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", day, suffix)
}

// dateBounds returns the earliest and latest timestamps of a non-empty set.
func dateBounds(messages []models.Message) (minDate, maxDate time.Time) {
	minDate, maxDate = messages[0].Date, messages[0].Date
	for _, msg := range messages[1:] {
		if msg.Date.Before(minDate) {
			minDate = msg.Date
		}
		if msg.Date.After(maxDate) {
			maxDate = msg.Date
		}
	}
	return minDate, maxDate
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
