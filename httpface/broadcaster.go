package httpface

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// queueDepth bounds each SSE subscriber's buffered channel, matching
// spec.md §5's ~1000-message drop-oldest log-sink backpressure rule
// applied to the SSE fan-out path.
const queueDepth = 1000

// Broadcaster fans one session's log lines out to every subscriber of its
// SSE stream. With no redis client it is a local, in-process fan-out
// (one channel per subscriber, guarded by a single mutex per spec.md §5's
// "shared mutable structures... protected by a single async mutex each").
// With a redis client it publishes to a channel-per-session topic instead,
// so multiple API replicas behind a load balancer can each serve
// subscribers for a session whose run is executing on a different
// replica - the scenario go-redis has no other consumer for in this
// module, grounded on testforge-hq-testforge's redis/cache.go client
// construction.
type Broadcaster struct {
	mu    sync.Mutex
	local map[string][]chan []byte
	redis *redis.Client
}

// NewBroadcaster returns a Broadcaster. A nil redisClient selects the
// local, single-process fan-out.
func NewBroadcaster(redisClient *redis.Client) *Broadcaster {
	return &Broadcaster{local: make(map[string][]chan []byte), redis: redisClient}
}

func channelName(sessionID string) string {
	return "pdfhunter:session:" + sessionID
}

// Publish delivers data to every current subscriber of sessionID. It never
// blocks: a full subscriber channel has its oldest buffered message
// dropped to make room, per spec.md §5 ("producers never await
// subscribers").
func (b *Broadcaster) Publish(ctx context.Context, sessionID string, data []byte) {
	if b.redis != nil {
		b.redis.Publish(ctx, channelName(sessionID), data)
		return
	}
	b.publishLocal(sessionID, data)
}

func (b *Broadcaster) publishLocal(sessionID string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.local[sessionID] {
		select {
		case ch <- data:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- data:
			default:
			}
		}
	}
}

// Subscribe registers a new listener for sessionID and returns a receive
// channel plus an unsubscribe function the caller must invoke when done.
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID string) (<-chan []byte, func()) {
	if b.redis != nil {
		return b.subscribeRedis(ctx, sessionID)
	}
	return b.subscribeLocal(sessionID)
}

func (b *Broadcaster) subscribeLocal(sessionID string) (<-chan []byte, func()) {
	ch := make(chan []byte, queueDepth)

	b.mu.Lock()
	b.local[sessionID] = append(b.local[sessionID], ch)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.local[sessionID]
		for i, c := range subs {
			if c == ch {
				b.local[sessionID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(b.local[sessionID]) == 0 {
			delete(b.local, sessionID)
		}
	}
	return ch, unsubscribe
}

func (b *Broadcaster) subscribeRedis(ctx context.Context, sessionID string) (<-chan []byte, func()) {
	pubsub := b.redis.Subscribe(ctx, channelName(sessionID))
	out := make(chan []byte, queueDepth)

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			data := []byte(msg.Payload)
			select {
			case out <- data:
			default:
				select {
				case <-out:
				default:
				}
				select {
				case out <- data:
				default:
				}
			}
		}
	}()

	return out, func() { pubsub.Close() }
}
