package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWithContextAddsRequestAndUser(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")
	ctx = context.WithValue(ctx, UserIDKey, "user-7")
	log.WithContext(ctx).DatabaseError("orders.list_active", errors.New("timeout"))

	out := buf.String()
	for _, want := range []string{`"request_id":"req-42"`, `"user_id":"user-7"`, `"operation":"orders.list_active"`, `"level":"ERROR"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestSideChannelFailedIsWarn(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("production", &buf).SideChannelFailed("email", "n-1", errors.New("smtp down"))

	if !strings.Contains(buf.String(), `"level":"WARN"`) || !strings.Contains(buf.String(), `"channel":"email"`) {
		t.Fatalf("unexpected record %s", buf.String())
	}
}
