package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"trade_portal_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "feed:"

// RedisFeed fans changes out across processes through Redis pub/sub.
// Local subscribers are served by an embedded MemoryFeed fed from a single
// pattern subscription.
type RedisFeed struct {
	client *redis.Client
	local  *MemoryFeed
	log    *logger.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedisFeed creates a feed on client. Call Start before expecting deliveries.
func NewRedisFeed(client *redis.Client, log *logger.Logger) *RedisFeed {
	if log == nil {
		log = logger.Discard()
	}
	return &RedisFeed{client: client, local: NewMemoryFeed(), log: log}
}

// Start subscribes to every feed channel and begins dispatching. It returns
// once the subscription is confirmed by the server.
func (f *RedisFeed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubsub != nil {
		return nil
	}

	ps := f.client.PSubscribe(ctx, channelPrefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("feed: subscribe: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	f.pubsub = ps
	f.cancel = cancel
	f.done = make(chan struct{})
	go f.listen(listenCtx, ps.Channel(), f.done)
	return nil
}

// Stop closes the subscription and waits for the listener to exit.
func (f *RedisFeed) Stop() error {
	f.mu.Lock()
	ps, cancel, done := f.pubsub, f.cancel, f.done
	f.pubsub = nil
	f.mu.Unlock()

	if ps == nil {
		return nil
	}
	cancel()
	err := ps.Close()
	<-done
	return err
}

func (f *RedisFeed) listen(ctx context.Context, ch <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				f.log.Warn("feed: dropping malformed change", "channel", msg.Channel, "error", err)
				continue
			}
			if change.Table == "" {
				change.Table = Table(strings.TrimPrefix(msg.Channel, channelPrefix))
			}
			f.local.dispatch(change)
		}
	}
}

// Publish sends change to every process subscribed to its table.
func (f *RedisFeed) Publish(ctx context.Context, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("feed: marshal change: %w", err)
	}
	if err := f.client.Publish(ctx, channelPrefix+string(change.Table), data).Err(); err != nil {
		return fmt.Errorf("feed: publish: %w", err)
	}
	return nil
}

// Subscribe registers handler for changes on table.
func (f *RedisFeed) Subscribe(table Table, handler Handler) Subscription {
	return f.local.Subscribe(table, handler)
}
