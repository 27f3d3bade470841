// Package notify delivers newly harvested posts to an outbound webhook.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	notifyconfig "github.com/jonesrussell/cafecrawl/internal/config/notify"
	"github.com/jonesrussell/cafecrawl/internal/domain"
	"github.com/jonesrussell/cafecrawl/internal/logger"
)

// Notifier announces newly inserted posts to downstream consumers.
type Notifier interface {
	// NotifyNewPosts delivers the batch. A delivery failure never fails the
	// harvest; implementations report the error and the caller logs it.
	NotifyNewPosts(ctx context.Context, posts []domain.HarvestedPost) error
}

// payload is the webhook request body.
type payload struct {
	Source string                 `json:"source"`
	Count  int                    `json:"count"`
	SentAt time.Time              `json:"sent_at"`
	Posts  []domain.HarvestedPost `json:"posts"`
}

// WebhookNotifier posts new-post batches to a configured webhook URL.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger logger.Interface
}

// Ensure interface compliance
var _ Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a webhook notifier. An empty webhook URL
// yields a disabled notifier that accepts every batch silently.
func NewWebhookNotifier(cfg *notifyconfig.Config, log logger.Interface) *WebhookNotifier {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)

	return &WebhookNotifier{
		client: client,
		url:    cfg.WebhookURL,
		logger: log.WithComponent("notify"),
	}
}

// NotifyNewPosts delivers one batch. Empty batches are skipped.
func (n *WebhookNotifier) NotifyNewPosts(ctx context.Context, posts []domain.HarvestedPost) error {
	if n.url == "" || len(posts) == 0 {
		return nil
	}

	body := payload{
		Count:  len(posts),
		SentAt: time.Now().UTC(),
		Posts:  posts,
	}
	if len(posts) > 0 {
		body.Source = posts[0].SourceName
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	n.logger.Info("Webhook delivered",
		"count", len(posts),
		"status", resp.StatusCode())

	return nil
}

// NoOpNotifier drops every batch. Used when notifications are disabled.
type NoOpNotifier struct{}

// NotifyNewPosts implements Notifier.
func (NoOpNotifier) NotifyNewPosts(context.Context, []domain.HarvestedPost) error {
	return nil
}
