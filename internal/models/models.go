package models

import "time"

// Message is a single parsed chat message as delivered by the processing
// backend once a chat export has been analyzed.
type Message struct {
	ID          string    `json:"id"`
	Sender      string    `json:"sender"`
	Text        string    `json:"text"`
	WordCount   int       `json:"word_count"`
	EmojisCount int       `json:"emojis_count"`
	LinksCount  int       `json:"links_count"`
	IsQuestion  bool      `json:"is_question"`
	IsMedia     bool      `json:"is_media"`
	Date        time.Time `json:"date"`
}

// SentimentRecord is a sentiment-labeled message or conversational segment.
// Granularity selects which collection the backend returns; the two are never
// mixed within one query. For segments, Text carries the combined segment text.
type SentimentRecord struct {
	ID                string    `json:"id"`
	Sender            string    `json:"sender"`
	Text              string    `json:"text"`
	Date              time.Time `json:"date"`
	OverallLabel      string    `json:"overall_label"`
	OverallLabelScore float64   `json:"overall_label_score"`
}

// Sentiment granularities.
const (
	GranularityMessage = "message"
	GranularitySegment = "segment"
)

// Time-of-day periods accepted by FilterSpec.TimePeriod.
const (
	PeriodAllDay    = "All Day"
	PeriodMorning   = "Morning"   // 06:00-11:59
	PeriodAfternoon = "Afternoon" // 12:00-16:59
	PeriodEvening   = "Evening"   // 17:00-20:59
	PeriodNight     = "Night"     // 21:00-05:59
)

// DateRange is an inclusive calendar-day range. A nil To means the range
// covers the single day of From.
type DateRange struct {
	From time.Time  `json:"from"`
	To   *time.Time `json:"to,omitempty"`
}

// FilterSpec describes which records a dashboard query retains. An empty
// Participants list means no participant restriction, never "match nothing".
// SentimentTypes and Granularity only apply to the sentiment dashboard;
// an empty SentimentTypes list admits all three recognized labels.
type FilterSpec struct {
	Participants   []string   `json:"participants,omitempty"`
	DateRange      *DateRange `json:"date_range,omitempty"`
	TimePeriod     string     `json:"time_period,omitempty"`
	SentimentTypes []string   `json:"sentiment_types,omitempty"`
	Granularity    string     `json:"granularity,omitempty"`
}
