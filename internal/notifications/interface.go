package notifications

// Summary is the completion notice sent out when a chat finishes analysis.
type Summary struct {
	ChatID          string         `json:"chat_id"`
	JobID           string         `json:"job_id"`
	TotalMessages   int            `json:"total_messages"`
	Participants    int            `json:"participants"`
	SentimentCounts map[string]int `json:"sentiment_counts,omitempty"`
	DurationSeconds float64        `json:"duration_seconds"`
}

// Notifier defines the contract for completion notifications.
type Notifier interface {
	SendSummary(summary *Summary) error
}
