package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/SixtySecondsApp/onboarding-forms/models"
)

const SignatureHeader = "X-Onboarding-Signature"

type WebhookSender struct {
	client *http.Client
}

func NewWebhookSender(client *http.Client) *WebhookSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSender{client: client}
}

type webhookPayload struct {
	Event      string       `json:"event"`
	FormID     string       `json:"form_id"`
	Step       string       `json:"step,omitempty"`
	Form       *models.Form `json:"form,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// Send posts the event to the configured URL. The body is signed with
// HMAC-SHA256 when the setting has a secret.
func (s *WebhookSender) Send(ctx context.Context, setting *models.WebhookSetting, event models.FormEvent) error {
	body, err := json.Marshal(webhookPayload{
		Event:      event.Event,
		FormID:     event.FormID,
		Step:       event.Step,
		Form:       event.Form,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, setting.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Onboarding-Event", event.Event)
	if setting.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(setting.Secret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %s", resp.Status)
	}
	return nil
}

func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
