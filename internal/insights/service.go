package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/internal/analytics"
	"github.com/chatlens/chatlens/internal/config"
	"github.com/chatlens/chatlens/internal/ingest"
	"github.com/chatlens/chatlens/internal/live"
	"github.com/chatlens/chatlens/internal/models"
	"github.com/chatlens/chatlens/internal/notifications"
	"github.com/chatlens/chatlens/internal/session"
	"github.com/chatlens/chatlens/internal/storage"
)

// Service orchestrates the analytics pipeline: it runs analysis jobs against
// the processing backend, caches and snapshots the resulting record sets, and
// recomputes dashboards from scratch on every request. Dashboards are never
// cached; recomputation is cheap because one chat's history is bounded.
type Service struct {
	config   *config.Config
	store    storage.Store
	backend  ingest.Backend
	notifier notifications.Notifier
	registry *session.Registry
	hub      *live.Hub

	mu         sync.RWMutex
	messages   map[string][]models.Message
	sentiments map[string][]models.SentimentRecord
	handles    map[string]*session.Handle
	metrics    *Metrics
}

// Metrics holds service counters exposed on /metrics.
type Metrics struct {
	JobsStarted      int            `json:"jobs_started"`
	JobsCompleted    int            `json:"jobs_completed"`
	JobsFailed       int            `json:"jobs_failed"`
	DashboardsBuilt  int            `json:"dashboards_built"`
	LastJobDuration  string         `json:"last_job_duration,omitempty"`
	ChatsLoaded      int            `json:"chats_loaded"`
	LastSentiment    map[string]int `json:"last_sentiment_breakdown,omitempty"`
	LastDashboardRun time.Time      `json:"last_dashboard_run,omitempty"`
}

// NewService creates the orchestrating service.
func NewService(cfg *config.Config, store storage.Store, backend ingest.Backend, notifier notifications.Notifier, hub *live.Hub) *Service {
	return &Service{
		config:     cfg,
		store:      store,
		backend:    backend,
		notifier:   notifier,
		registry:   session.NewRegistry(backend, cfg.PollInterval),
		hub:        hub,
		messages:   make(map[string][]models.Message),
		sentiments: make(map[string][]models.SentimentRecord),
		handles:    make(map[string]*session.Handle),
		metrics:    &Metrics{},
	}
}

// ProcessChat starts an analysis job for a chat. Progress is pushed to the
// live hub; on completion the record sets are fetched, snapshotted, and a
// summary notification goes out.
func (s *Service) ProcessChat(ctx context.Context, chatID string) (session.Job, error) {
	started := time.Now()

	handle, err := s.registry.Start(ctx, chatID, session.Callbacks{
		OnTick: func(job session.Job) {
			s.hub.Broadcast(chatID, "progress", job)
		},
		OnComplete: func(job session.Job) {
			s.onJobComplete(job, started)
		},
		OnError: func(job session.Job, err error) {
			logrus.Errorf("Analysis job %s for chat %s failed: %v", job.ID, chatID, err)
			s.hub.Broadcast(chatID, "failed", job)
			s.countJob(false)
		},
	})
	if err != nil {
		return session.Job{}, err
	}

	s.mu.Lock()
	s.handles[chatID] = handle
	s.metrics.JobsStarted++
	s.mu.Unlock()

	job, _ := s.registry.Get(handle.JobID)
	return job, nil
}

// CancelChat cancels the chat's running job, if any. Cancellation takes
// effect at the next poll tick.
func (s *Service) CancelChat(chatID string) error {
	s.mu.RLock()
	handle, ok := s.handles[chatID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no job for chat %s", chatID)
	}

	handle.Cancel()
	return nil
}

// Status returns the latest job for a chat.
func (s *Service) Status(chatID string) (session.Job, bool) {
	return s.registry.ForChat(chatID)
}

func (s *Service) onJobComplete(job session.Job, started time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	messages, err := s.loadMessages(ctx, job.ChatID, true)
	if err != nil {
		// The job itself completed; only the record fetch failed. Keep the
		// counters and the broadcast consistent with the registry state and
		// let clients re-request the records.
		logrus.Errorf("Records unavailable for completed chat %s: %v", job.ChatID, err)
		s.hub.Broadcast(job.ChatID, "records_unavailable", job)
		s.countJob(true)
		return
	}

	summary := &notifications.Summary{
		ChatID:          job.ChatID,
		JobID:           job.ID,
		TotalMessages:   len(messages),
		Participants:    len(analytics.ActiveParticipants(messages)),
		DurationSeconds: time.Since(started).Seconds(),
	}

	// Sentiment records are best-effort here: the activity dashboard must not
	// wait on them, and the sentiment dashboard re-fetches on demand anyway.
	if records, err := s.loadSentiment(ctx, job.ChatID, models.GranularityMessage, true); err == nil {
		counts := make(map[string]int, 3)
		for _, rec := range analytics.FilterSentiment(records, models.FilterSpec{}) {
			counts[rec.OverallLabel]++
		}
		summary.SentimentCounts = counts
	} else {
		logrus.Warnf("Sentiment records unavailable for chat %s: %v", job.ChatID, err)
	}

	s.mu.Lock()
	s.metrics.JobsCompleted++
	s.metrics.LastJobDuration = time.Since(started).String()
	s.metrics.LastSentiment = summary.SentimentCounts
	s.mu.Unlock()

	s.hub.Broadcast(job.ChatID, "completed", job)

	if s.notifier != nil {
		if err := s.notifier.SendSummary(summary); err != nil {
			logrus.Errorf("Failed to send completion summary for chat %s: %v", job.ChatID, err)
		}
	}
}

func (s *Service) countJob(completed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if completed {
		s.metrics.JobsCompleted++
	} else {
		s.metrics.JobsFailed++
	}
}

// GeneralDashboard builds the activity dashboard for a chat under a filter.
func (s *Service) GeneralDashboard(ctx context.Context, chatID string, spec models.FilterSpec) (analytics.GeneralDashboard, error) {
	messages, err := s.loadMessages(ctx, chatID, false)
	if err != nil {
		return analytics.GeneralDashboard{}, err
	}

	dashboard := analytics.BuildGeneralDashboard(messages, spec)
	s.countDashboard()
	return dashboard, nil
}

// SentimentDashboard builds the sentiment dashboard for a chat under a filter.
func (s *Service) SentimentDashboard(ctx context.Context, chatID string, spec models.FilterSpec) (analytics.SentimentDashboard, error) {
	granularity := spec.Granularity
	if granularity == "" {
		granularity = models.GranularityMessage
	}

	records, err := s.loadSentiment(ctx, chatID, granularity, false)
	if err != nil {
		return analytics.SentimentDashboard{}, err
	}

	dashboard := analytics.BuildSentimentDashboard(records, spec)
	s.countDashboard()
	return dashboard, nil
}

// Participants lists every sender of the chat, unfiltered. The filter UI
// relies on this list never shrinking as filters are applied.
func (s *Service) Participants(ctx context.Context, chatID string) ([]string, error) {
	messages, err := s.loadMessages(ctx, chatID, false)
	if err != nil {
		return nil, err
	}
	return analytics.ActiveParticipants(messages), nil
}

func (s *Service) countDashboard() {
	s.mu.Lock()
	s.metrics.DashboardsBuilt++
	s.metrics.LastDashboardRun = time.Now()
	s.mu.Unlock()
}

// loadMessages resolves a chat's messages from cache, then snapshot storage,
// then the backend. refresh forces a backend fetch and a new snapshot.
func (s *Service) loadMessages(ctx context.Context, chatID string, refresh bool) ([]models.Message, error) {
	if !refresh {
		s.mu.RLock()
		cached, ok := s.messages[chatID]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		if s.store != nil {
			if data, err := s.store.Get(ctx, messagesBlob(chatID)); err == nil {
				var messages []models.Message
				if err := json.Unmarshal(data, &messages); err == nil {
					s.cacheMessages(chatID, messages)
					return messages, nil
				}
				logrus.Warnf("Discarding corrupt message snapshot for chat %s", chatID)
			}
		}
	}

	messages, err := s.backend.FetchMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for chat %s: %w", chatID, err)
	}

	s.cacheMessages(chatID, messages)
	s.snapshot(ctx, messagesBlob(chatID), messages)
	return messages, nil
}

func (s *Service) loadSentiment(ctx context.Context, chatID, granularity string, refresh bool) ([]models.SentimentRecord, error) {
	key := chatID + "/" + granularity

	if !refresh {
		s.mu.RLock()
		cached, ok := s.sentiments[key]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		if s.store != nil {
			if data, err := s.store.Get(ctx, sentimentBlob(chatID, granularity)); err == nil {
				var records []models.SentimentRecord
				if err := json.Unmarshal(data, &records); err == nil {
					s.cacheSentiment(key, records)
					return records, nil
				}
				logrus.Warnf("Discarding corrupt sentiment snapshot for chat %s", chatID)
			}
		}
	}

	records, err := s.backend.FetchSentimentRecords(ctx, chatID, granularity)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentiment records for chat %s: %w", chatID, err)
	}

	s.cacheSentiment(key, records)
	s.snapshot(ctx, sentimentBlob(chatID, granularity), records)
	return records, nil
}

func (s *Service) cacheMessages(chatID string, messages []models.Message) {
	s.mu.Lock()
	if _, ok := s.messages[chatID]; !ok {
		s.metrics.ChatsLoaded++
	}
	s.messages[chatID] = messages
	s.mu.Unlock()
}

func (s *Service) cacheSentiment(key string, records []models.SentimentRecord) {
	s.mu.Lock()
	s.sentiments[key] = records
	s.mu.Unlock()
}

func (s *Service) snapshot(ctx context.Context, name string, v interface{}) {
	if s.store == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logrus.Errorf("Failed to marshal snapshot %s: %v", name, err)
		return
	}
	if err := s.store.Put(ctx, name, data); err != nil {
		logrus.Errorf("Failed to store snapshot %s: %v", name, err)
	}
}

// Sweep removes terminal jobs and expired snapshots past the retention
// window. Invoked by the scheduler.
func (s *Service) Sweep(ctx context.Context, retention time.Duration) {
	removed := s.registry.Sweep(retention)
	if removed > 0 {
		logrus.Infof("Swept %d finished jobs", removed)
	}

	if s.store == nil {
		return
	}
	objects, err := s.store.List(ctx, "chats/")
	if err != nil {
		logrus.Errorf("Retention sweep failed to list snapshots: %v", err)
		return
	}

	cutoff := time.Now().Add(-retention)
	expired := 0
	for _, obj := range objects {
		if obj.LastModified.Before(cutoff) {
			if err := s.store.Delete(ctx, obj.Name); err != nil {
				logrus.Errorf("Failed to delete expired snapshot %s: %v", obj.Name, err)
				continue
			}
			expired++
		}
	}
	if expired > 0 {
		logrus.Infof("Swept %d expired snapshots", expired)
	}
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}

func messagesBlob(chatID string) string {
	return fmt.Sprintf("chats/%s/messages.json", chatID)
}

func sentimentBlob(chatID, granularity string) string {
	return fmt.Sprintf("chats/%s/sentiment-%s.json", chatID, granularity)
}
