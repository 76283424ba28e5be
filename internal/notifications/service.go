package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/chatlens/chatlens/internal/config"
)

// Service sends completion notices via the configured channels: a JSON
// webhook, an email summary, or both.
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements Notifier
var _ Notifier = (*Service)(nil)

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendSummary delivers the summary to every configured channel. Channels fail
// independently; errors are collected rather than short-circuiting.
func (s *Service) SendSummary(summary *Summary) error {
	var errors []string

	if s.config.WebhookURL != "" {
		if err := s.sendWebhook(summary); err != nil {
			logrus.Errorf("Failed to send webhook notification: %v", err)
			errors = append(errors, fmt.Sprintf("webhook: %v", err))
		} else {
			logrus.Infof("Sent completion webhook for chat %s", summary.ChatID)
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(summary); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("email: %v", err))
		} else {
			logrus.Infof("Sent completion email for chat %s", summary.ChatID)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (s *Service) sendWebhook(summary *Summary) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(summary).
		Post(s.config.WebhookURL)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func (s *Service) sendEmail(summary *Summary) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", fmt.Sprintf("Chat analysis complete: %s", summary.ChatID))
	m.SetBody("text/html", s.buildEmailBody(summary))

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *Service) buildEmailBody(summary *Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Chat %s analyzed</h2>", summary.ChatID)
	fmt.Fprintf(&b, "<p>%d messages across %d participants, processed in %.1fs.</p>",
		summary.TotalMessages, summary.Participants, summary.DurationSeconds)

	if len(summary.SentimentCounts) > 0 {
		b.WriteString("<ul>")
		for _, label := range []string{"Positive", "Negative", "Neutral"} {
			if count, ok := summary.SentimentCounts[label]; ok {
				fmt.Fprintf(&b, "<li>%s: %d</li>", label, count)
			}
		}
		b.WriteString("</ul>")
	}
	return b.String()
}
