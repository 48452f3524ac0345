package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"vital-monitor/internal/models"
)

// WebhookSink POSTs alerts as JSON to a configured endpoint. Stands in
// front of whatever delivery transport (email gateway, SMS bridge) the
// deployment uses.
type WebhookSink struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewWebhookSink creates a webhook sink.
func NewWebhookSink(url string, timeout time.Duration, logger *zap.Logger) *WebhookSink {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookSink{
		httpClient: client,
		url:        url,
		logger:     logger,
	}
}

func (s *WebhookSink) Name() string {
	return "webhook"
}

func (s *WebhookSink) Notify(ctx context.Context, alert models.Alert) error {
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(alert).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("failed to post alert: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	s.logger.Debug("Alert delivered to webhook",
		zap.String("alert_id", alert.AlertID),
		zap.Int("status", resp.StatusCode()),
	)

	return nil
}
