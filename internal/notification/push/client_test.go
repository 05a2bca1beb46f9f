package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trade_portal_backend/platform/logger"
)

type testPushConfig struct{ url string }

func (c testPushConfig) GetPushGatewayURL() string { return c.url }
func (c testPushConfig) GetPushGatewayKey() string { return "secret" }
func (c testPushConfig) IsPushEnabled() bool       { return c.url != "" }

func TestNewClient_DisabledReturnsNil(t *testing.T) {
	c := NewClient(testPushConfig{}, logger.Discard())
	if c != nil {
		t.Fatalf("expected nil client when gateway is not configured")
	}
	if err := c.Send(context.Background(), Message{UserID: "u"}); err != nil {
		t.Fatalf("nil client should drop messages, got %v", err)
	}
}

func TestClient_SendPostsJSON(t *testing.T) {
	var got Message
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(testPushConfig{url: srv.URL + "/"}, logger.Discard())
	msg := Message{UserID: "u-1", Title: "Payment required", Body: "Pay now", Category: "payment", Urgent: true}
	if err := c.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/v1/push" {
		t.Fatalf("expected /v1/push, got %s", path)
	}
	if auth != "Bearer secret" {
		t.Fatalf("expected bearer auth, got %q", auth)
	}
	if got != msg {
		t.Fatalf("expected %+v, got %+v", msg, got)
	}
}

func TestClient_SendReportsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "device not registered", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(testPushConfig{url: srv.URL}, logger.Discard())
	err := c.Send(context.Background(), Message{UserID: "u"})
	if err == nil || !strings.Contains(err.Error(), "device not registered") {
		t.Fatalf("expected gateway error, got %v", err)
	}
}
