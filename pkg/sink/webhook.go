package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"

	"github.com/memwarden/agent/pkg/events"
	"github.com/memwarden/agent/internal/utils"
)

// WebhookSink posts recovery and error events to an external alerting
// endpoint. Snapshot events are intentionally not forwarded; the endpoint
// is for actionable episodes, not for raw telemetry.
type WebhookSink struct {
	client *retryablehttp.Client
	url    string
	logger *log.Logger

	// Rate limit: at most one signal per minInterval
	minInterval time.Duration
	lastSignal  time.Time
	mu          sync.Mutex
	now         func() time.Time
}

// NewWebhookSink creates a webhook sink with a retrying HTTP client.
func NewWebhookSink(cfg WebhookConfig, logger *log.Logger) *WebhookSink {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.Logger = &utils.LeveledLogrus{Logger: logger}

	return &WebhookSink{
		client:      client,
		url:         cfg.URL,
		logger:      logger,
		minInterval: cfg.MinInterval,
		now:         time.Now,
	}
}

// Name returns the sink name
func (s *WebhookSink) Name() string {
	return "webhook"
}

// Process forwards recovery and error events, subject to the rate limit.
func (s *WebhookSink) Process(ctx context.Context, event events.Event) error {
	var payload interface{}

	switch e := event.(type) {
	case events.RecoveryEvent:
		payload = map[string]interface{}{
			"type":           string(e.Type()),
			"timestamp":      e.Timestamp().Format(time.RFC3339Nano),
			"pressure_level": e.Trigger.Level.String(),
			"percent_used":   e.Trigger.PercentUsed,
			"outcomes":       e.Outcomes,
		}
	case events.ErrorEvent:
		payload = map[string]interface{}{
			"type":      string(e.Type()),
			"timestamp": e.Timestamp().Format(time.RFC3339Nano),
			"error":     e.Payload,
		}
	default:
		return nil
	}

	s.mu.Lock()
	limited := !s.lastSignal.IsZero() && s.now().Sub(s.lastSignal) < s.minInterval
	if !limited {
		s.lastSignal = s.now()
	}
	s.mu.Unlock()

	if limited {
		s.logger.Debugf("[webhook] rate limited, dropping %s event", event.Type())
		return nil
	}

	return s.post(ctx, payload)
}

func (s *WebhookSink) post(ctx context.Context, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", s.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 && resp.StatusCode != 201 && resp.StatusCode != 204 {
		body, _ := io.ReadAll(resp.Body)
		s.logger.Error("Failed to deliver webhook. Response body: ", string(body))
		return fmt.Errorf("failed to deliver webhook, code: %d", resp.StatusCode)
	}

	return nil
}

// Close releases the underlying HTTP client connections
func (s *WebhookSink) Close() error {
	s.client.HTTPClient.CloseIdleConnections()
	return nil
}
