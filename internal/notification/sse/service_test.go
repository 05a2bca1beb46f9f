package sse

import (
	"testing"

	"trade_portal_backend/platform/logger"

	"github.com/google/uuid"
)

func TestService_PublishReachesOnlyTargetUser(t *testing.T) {
	s := New(logger.Discard())
	alice, bob := uuid.New(), uuid.New()

	aliceEvents, cancelAlice := s.Subscribe(alice)
	defer cancelAlice()
	bobEvents, cancelBob := s.Subscribe(bob)
	defer cancelBob()

	s.Publish(alice, Event{Type: EventQueuesUpdated, Data: 1})

	select {
	case ev := <-aliceEvents:
		if ev.Type != EventQueuesUpdated {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatalf("expected event for alice")
	}
	select {
	case ev := <-bobEvents:
		t.Fatalf("bob should not receive %+v", ev)
	default:
	}
}

func TestService_CancelUnregisters(t *testing.T) {
	s := New(logger.Discard())
	user := uuid.New()

	_, cancel := s.Subscribe(user)
	if got := len(s.ConnectedUsers()); got != 1 {
		t.Fatalf("expected 1 connected user, got %d", got)
	}
	cancel()
	cancel()
	if got := len(s.ConnectedUsers()); got != 0 {
		t.Fatalf("expected 0 connected users, got %d", got)
	}

	s.Publish(user, Event{Type: EventActionRequired})
}

func TestService_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	s := New(logger.Discard())
	user := uuid.New()
	events, cancel := s.Subscribe(user)
	defer cancel()

	for i := 0; i < clientBuffer+5; i++ {
		s.Publish(user, Event{Type: EventQueuesUpdated, Data: i})
	}
	if len(events) != clientBuffer {
		t.Fatalf("expected buffer to hold %d events, got %d", clientBuffer, len(events))
	}
}
