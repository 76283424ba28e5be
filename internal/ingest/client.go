package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/internal/models"
)

// Client talks to the processing backend over its JSON API.
type Client struct {
	client  *resty.Client
	baseURL string
}

// Ensure Client implements Backend
var _ Backend = (*Client)(nil)

// NewClient creates a backend client. apiKey may be empty for backends that
// sit behind a private network.
func NewClient(baseURL, apiKey string) *Client {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "chatlens/1.0")
	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &Client{client: client, baseURL: baseURL}
}

func (c *Client) StartProcessing(ctx context.Context, chatID string) (*JobStatus, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		Post(fmt.Sprintf("%s/api/chats/%s/process", c.baseURL, chatID))
	if err != nil {
		return nil, fmt.Errorf("failed to start processing for chat %s: %w", chatID, err)
	}
	return decodeStatus(resp)
}

func (c *Client) FetchJobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/api/jobs/%s", c.baseURL, jobID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status of job %s: %w", jobID, err)
	}
	return decodeStatus(resp)
}

func (c *Client) FetchMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/api/chats/%s/messages", c.baseURL, chatID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages for chat %s: %w", chatID, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("backend returned status %d for chat %s messages", resp.StatusCode(), chatID)
	}

	var messages []models.Message
	if err := json.Unmarshal(resp.Body(), &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages for chat %s: %w", chatID, err)
	}

	logrus.Debugf("Fetched %d messages for chat %s", len(messages), chatID)
	return messages, nil
}

func (c *Client) FetchSentimentRecords(ctx context.Context, chatID, granularity string) ([]models.SentimentRecord, error) {
	if granularity == "" {
		granularity = models.GranularityMessage
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("granularity", granularity).
		Get(fmt.Sprintf("%s/api/chats/%s/sentiment", c.baseURL, chatID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sentiment records for chat %s: %w", chatID, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("backend returned status %d for chat %s sentiment", resp.StatusCode(), chatID)
	}

	var records []models.SentimentRecord
	if err := json.Unmarshal(resp.Body(), &records); err != nil {
		return nil, fmt.Errorf("failed to decode sentiment records for chat %s: %w", chatID, err)
	}

	logrus.Debugf("Fetched %d %s-level sentiment records for chat %s", len(records), granularity, chatID)
	return records, nil
}

func decodeStatus(resp *resty.Response) (*JobStatus, error) {
	if resp.StatusCode() != 200 && resp.StatusCode() != 202 {
		return nil, fmt.Errorf("backend returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var status JobStatus
	if err := json.Unmarshal(resp.Body(), &status); err != nil {
		return nil, fmt.Errorf("failed to decode job status: %w", err)
	}
	return &status, nil
}
