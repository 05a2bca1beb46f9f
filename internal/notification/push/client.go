// Package push talks to the mobile/web push gateway.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trade_portal_backend/platform/config"
	"trade_portal_backend/platform/logger"
)

// Message is one push notification addressed to a user.
type Message struct {
	UserID   string `json:"userId"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	DeepLink string `json:"deepLink,omitempty"`
	Category string `json:"category,omitempty"`
	Urgent   bool   `json:"urgent"`
	// CollapseKey lets the gateway replace an earlier push for the same action.
	CollapseKey string `json:"collapseKey,omitempty"`
}

// Sender delivers push messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client posts messages to the push gateway's JSON API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

// NewClient returns nil when no gateway is configured. A nil *Client drops
// every message.
func NewClient(cfg config.PushConfig, log *logger.Logger) *Client {
	if !cfg.IsPushEnabled() {
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetPushGatewayURL(), "/"),
		apiKey:  cfg.GetPushGatewayKey(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

func (c *Client) Send(ctx context.Context, msg Message) error {
	if c == nil {
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	url := fmt.Sprintf("%s/v1/push", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("push gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Debug("push sent", "userId", msg.UserID, "category", msg.Category)
	return nil
}
