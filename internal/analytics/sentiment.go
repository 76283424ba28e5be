package analytics

import (
	"sort"
	"time"

	"github.com/chatlens/chatlens/internal/models"
)

// SentimentKPI is the headline block of the sentiment dashboard. OverallScore
// is the positive percentage minus the negative percentage.
type SentimentKPI struct {
	TotalMessagesOrSegments int     `json:"totalMessagesOrSegments"`
	PositivePercent         float64 `json:"positivePercent"`
	NegativePercent         float64 `json:"negativePercent"`
	NeutralPercent          float64 `json:"neutralPercent"`
	OverallScore            float64 `json:"overallScore"`
}

// SentimentTrendPoint is one bucket of the sentiment trend chart.
type SentimentTrendPoint struct {
	Date     string `json:"date"`
	Positive int    `json:"Positive"`
	Negative int    `json:"Negative"`
	Neutral  int    `json:"Neutral"`
}

// SentimentByParticipant is one row of the per-participant breakdown table.
type SentimentByParticipant struct {
	Name     string `json:"name"`
	Positive int    `json:"Positive"`
	Negative int    `json:"Negative"`
	Neutral  int    `json:"Neutral"`
	Total    int    `json:"total"`
}

// SentimentDayStat carries one weekday's counts and net score.
type SentimentDayStat struct {
	Day      string  `json:"day"`
	Positive int     `json:"positive"`
	Negative int     `json:"negative"`
	Neutral  int     `json:"neutral"`
	Total    int     `json:"total"`
	Score    float64 `json:"score"`
}

// SentimentHourStat carries one hour's counts.
type SentimentHourStat struct {
	Hour     int `json:"hour"`
	Positive int `json:"Positive"`
	Negative int `json:"Negative"`
	Neutral  int `json:"Neutral"`
	Total    int `json:"total"`
}

// Highlight is one extreme-sentiment excerpt.
type Highlight struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// Highlights holds the top positive and top negative excerpts.
type Highlights struct {
	TopPositive []Highlight `json:"topPositive"`
	TopNegative []Highlight `json:"topNegative"`
}

// BuildSentimentKPI returns nil for an empty set; percentages are rounded to
// one decimal and sum to 100 within rounding.
func BuildSentimentKPI(records []models.SentimentRecord) *SentimentKPI {
	total := len(records)
	if total == 0 {
		return nil
	}

	var positive, negative, neutral int
	for _, rec := range records {
		switch rec.OverallLabel {
		case LabelPositive:
			positive++
		case LabelNegative:
			negative++
		case LabelNeutral:
			neutral++
		}
	}

	positivePercent := round1(float64(positive) / float64(total) * 100)
	negativePercent := round1(float64(negative) / float64(total) * 100)
	return &SentimentKPI{
		TotalMessagesOrSegments: total,
		PositivePercent:         positivePercent,
		NegativePercent:         negativePercent,
		NeutralPercent:          round1(float64(neutral) / float64(total) * 100),
		OverallScore:            round1(positivePercent - negativePercent),
	}
}

// BuildSentimentTrend buckets label counts across the set's span under the
// sentiment-trend profile, zero-filling gap buckets. Empty input yields an
// empty series.
func BuildSentimentTrend(records []models.SentimentRecord) []SentimentTrendPoint {
	if len(records) == 0 {
		return []SentimentTrendPoint{}
	}

	minDate, maxDate := sentimentDateBounds(records)
	bucketing := ChooseBucketing(minDate, maxDate, SentimentTrendProfile)

	buckets := make(map[string]*SentimentTrendPoint)
	for _, rec := range records {
		key := bucketing.KeyOf(rec.Date)
		point, ok := buckets[key]
		if !ok {
			point = &SentimentTrendPoint{Date: key}
			buckets[key] = point
		}
		switch rec.OverallLabel {
		case LabelPositive:
			point.Positive++
		case LabelNegative:
			point.Negative++
		case LabelNeutral:
			point.Neutral++
		}
	}

	trend := make([]SentimentTrendPoint, 0, len(buckets))
	for _, key := range bucketing.Keys() {
		if point, ok := buckets[key]; ok {
			trend = append(trend, *point)
		} else {
			trend = append(trend, SentimentTrendPoint{Date: key})
		}
	}
	return trend
}

// BuildSentimentBreakdown returns per-sender label counts in first-appearance
// order. Only senders present in the data appear; nil for an empty set.
func BuildSentimentBreakdown(records []models.SentimentRecord) []SentimentByParticipant {
	if len(records) == 0 {
		return nil
	}

	rows := make(map[string]*SentimentByParticipant)
	var order []string
	for _, rec := range records {
		row, ok := rows[rec.Sender]
		if !ok {
			row = &SentimentByParticipant{Name: rec.Sender}
			rows[rec.Sender] = row
			order = append(order, rec.Sender)
		}
		switch rec.OverallLabel {
		case LabelPositive:
			row.Positive++
		case LabelNegative:
			row.Negative++
		case LabelNeutral:
			row.Neutral++
		}
		row.Total++
	}

	breakdown := make([]SentimentByParticipant, 0, len(order))
	for _, name := range order {
		breakdown = append(breakdown, *rows[name])
	}
	return breakdown
}

// BuildSentimentByDay returns all seven weekdays, Sunday first, zero-filled.
// A day with no records scores 0. Nil for an empty set.
func BuildSentimentByDay(records []models.SentimentRecord) []SentimentDayStat {
	if len(records) == 0 {
		return nil
	}

	byDay := make(map[time.Weekday]*SentimentDayStat, 7)
	for _, rec := range records {
		wd := rec.Date.Weekday()
		stat, ok := byDay[wd]
		if !ok {
			stat = &SentimentDayStat{}
			byDay[wd] = stat
		}
		switch rec.OverallLabel {
		case LabelPositive:
			stat.Positive++
		case LabelNegative:
			stat.Negative++
		case LabelNeutral:
			stat.Neutral++
		}
		stat.Total++
	}

	stats := make([]SentimentDayStat, 0, 7)
	for i := 0; i < 7; i++ {
		wd := time.Weekday(i)
		stat := SentimentDayStat{Day: wd.String()[:3]}
		if s, ok := byDay[wd]; ok {
			stat.Positive, stat.Negative, stat.Neutral, stat.Total = s.Positive, s.Negative, s.Neutral, s.Total
		}
		if stat.Total > 0 {
			positivePercent := float64(stat.Positive) / float64(stat.Total) * 100
			negativePercent := float64(stat.Negative) / float64(stat.Total) * 100
			stat.Score = round1(positivePercent - negativePercent)
		}
		stats = append(stats, stat)
	}
	return stats
}

// BuildSentimentByHour returns all 24 hours, zero-filled. Nil for an empty set.
func BuildSentimentByHour(records []models.SentimentRecord) []SentimentHourStat {
	if len(records) == 0 {
		return nil
	}

	byHour := make(map[int]*SentimentHourStat, 24)
	for _, rec := range records {
		hour := rec.Date.Hour()
		stat, ok := byHour[hour]
		if !ok {
			stat = &SentimentHourStat{}
			byHour[hour] = stat
		}
		switch rec.OverallLabel {
		case LabelPositive:
			stat.Positive++
		case LabelNegative:
			stat.Negative++
		case LabelNeutral:
			stat.Neutral++
		}
		stat.Total++
	}

	stats := make([]SentimentHourStat, 0, 24)
	for hour := 0; hour < 24; hour++ {
		stat := SentimentHourStat{Hour: hour}
		if s, ok := byHour[hour]; ok {
			stat.Positive, stat.Negative, stat.Neutral, stat.Total = s.Positive, s.Negative, s.Neutral, s.Total
		}
		stats = append(stats, stat)
	}
	return stats
}

// BuildHighlights extracts the five highest-scored positive records and the
// five lowest-scored negative records. One descending sort by score drives
// both lists; negatives are taken from its tail and reversed so the lowest
// score comes first. Nil for an empty set.
func BuildHighlights(records []models.SentimentRecord) *Highlights {
	if len(records) == 0 {
		return nil
	}

	sorted := make([]models.SentimentRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OverallLabelScore > sorted[j].OverallLabelScore
	})

	highlights := &Highlights{
		TopPositive: []Highlight{},
		TopNegative: []Highlight{},
	}
	for _, rec := range sorted {
		if rec.OverallLabel == LabelPositive && len(highlights.TopPositive) < 5 {
			highlights.TopPositive = append(highlights.TopPositive, excerpt(rec))
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		rec := sorted[i]
		if rec.OverallLabel == LabelNegative && len(highlights.TopNegative) < 5 {
			highlights.TopNegative = append(highlights.TopNegative, excerpt(rec))
		}
	}
	return highlights
}

func excerpt(rec models.SentimentRecord) Highlight {
	return Highlight{
		ID:        rec.ID,
		Sender:    rec.Sender,
		Text:      rec.Text,
		Timestamp: rec.Date,
		Score:     rec.OverallLabelScore,
	}
}

func sentimentDateBounds(records []models.SentimentRecord) (minDate, maxDate time.Time) {
	minDate, maxDate = records[0].Date, records[0].Date
	for _, rec := range records[1:] {
		if rec.Date.Before(minDate) {
			minDate = rec.Date
		}
		if rec.Date.After(maxDate) {
			maxDate = rec.Date
		}
	}
	return minDate, maxDate
}
