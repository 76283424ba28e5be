package ingest

import (
	"context"

	"github.com/chatlens/chatlens/internal/models"
)

// JobStatus is the processing backend's view of one analysis job.
type JobStatus struct {
	JobID    string `json:"job_id"`
	ChatID   string `json:"chat_id"`
	Status   string `json:"status"` // "starting", "in_progress", "completed", "failed"
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

// Backend defines the contract for the external chat-processing service.
// Parsing, sentiment inference and segmenting all happen there; this service
// only consumes the results.
type Backend interface {
	StartProcessing(ctx context.Context, chatID string) (*JobStatus, error)
	FetchJobStatus(ctx context.Context, jobID string) (*JobStatus, error)
	FetchMessages(ctx context.Context, chatID string) ([]models.Message, error)
	FetchSentimentRecords(ctx context.Context, chatID, granularity string) ([]models.SentimentRecord, error)
}
