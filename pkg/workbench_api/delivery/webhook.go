package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
)

// WebhookSender POSTs the delivery content as JSON to the URL in the
// channel config.
type WebhookSender struct {
	Client *http.Client
}

func NewWebhookSender() *WebhookSender {
	return &WebhookSender{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (s *WebhookSender) Send(ctx context.Context, channel *models.DeliveryChannel, content *Content) (*SendResult, error) {
	var cfg struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(channel.ConfigJSON, &cfg); err != nil || cfg.URL == "" {
		return &SendResult{Success: false, Error: "webhook channel has no url configured"}, nil
	}

	body, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Channel", channel.ID)

	resp, err := s.Client.Do(req)
	if err != nil {
		return &SendResult{Success: false, Error: err.Error()}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &SendResult{
			Success: false,
			Error:   fmt.Sprintf("webhook endpoint returned %d", resp.StatusCode),
		}, nil
	}
	return &SendResult{Success: true, ID: uuid.New().String()}, nil
}
