// Package sse provides Server-Sent Events support for real-time notifications.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"trade_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventQueuesUpdated   EventType = "queues_updated"
	EventActionRequired  EventType = "action_required"
	EventActionsResolved EventType = "actions_resolved"
)

// Event represents an SSE event payload
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
}

const clientBuffer = 32

// client represents a connected SSE client
type client struct {
	userID uuid.UUID
	events chan Event
}

// Service manages SSE connections and event broadcasting
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client // userID -> clients
	log     *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

// Subscribe registers a listener for userID outside of an HTTP request.
// The returned cancel func must be called to release it.
func (s *Service) Subscribe(userID uuid.UUID) (<-chan Event, func()) {
	c := &client{userID: userID, events: make(chan Event, clientBuffer)}
	s.addClient(c)
	var once sync.Once
	return c.events, func() { once.Do(func() { s.removeClient(c) }) }
}

// addClient registers a new client connection
func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[c.userID] = append(s.clients[c.userID], c)
}

// removeClient unregisters a client connection
func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.userID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.userID] = append(clients[:i:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.userID]) == 0 {
		delete(s.clients, c.userID)
	}
}

// Publish sends an event to a specific user. Slow clients drop events
// rather than block the publisher.
func (s *Service) Publish(userID uuid.UUID, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := s.clients[userID]
	for _, c := range clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse event buffer full", "userId", userID, "type", event.Type)
		}
	}
}

// ConnectedUsers returns the users with at least one open stream.
func (s *Service) ConnectedUsers() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]uuid.UUID, 0, len(s.clients))
	for id := range s.clients {
		out = append(out, id)
	}
	return out
}

// Handler returns a Gin handler for SSE connections. onConnect, when set,
// runs after the client is registered so callers can push an initial state.
func (s *Service) Handler(getUserID func(*gin.Context) (uuid.UUID, bool), onConnect func(userID uuid.UUID)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		// Set SSE headers
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		events, cancel := s.Subscribe(userID)
		defer cancel()

		c.SSEvent("connected", gin.H{"userId": userID})
		c.Writer.Flush()

		s.log.Debug("sse client connected", "userId", userID)
		if onConnect != nil {
			onConnect(userID)
		}

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Debug("sse client disconnected", "userId", userID)
				return
			case event := <-events:
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close drops every registered client. Open handlers end when their
// request context is cancelled.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients = make(map[uuid.UUID][]*client)
}
