package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"pickup-match-system/models"
)

// Sender delivers one notification to the outside world.
type Sender interface {
	Send(ctx context.Context, n models.Notification) error
}

// WebhookSender posts notifications as JSON to a delivery service.
type WebhookSender struct {
	URL        string
	Token      string
	HTTPClient *http.Client
}

func NewWebhookSender(url, token string, client *http.Client) *WebhookSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookSender{URL: url, Token: token, HTTPClient: client}
}

type webhookPayload struct {
	ID        string         `json:"id"`
	PlayerID  string         `json:"player_id"`
	MatchID   string         `json:"match_id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
}

func (s *WebhookSender) Send(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(webhookPayload{
		ID:        n.ID,
		PlayerID:  n.PlayerID,
		MatchID:   n.MatchID,
		EventType: n.EventType,
		Payload:   n.Payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", n.ID)
	if s.Token != "" {
		req.Header.Set("X-Service-Token", s.Token)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call notification service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notification service returned status %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

// LogSender only logs. Used when no webhook is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, n models.Notification) error {
	log.Info().
		Str("player_id", n.PlayerID).
		Str("match_id", n.MatchID).
		Str("event", n.EventType).
		Msg("[NOTIFY] 📨 notification")
	return nil
}
