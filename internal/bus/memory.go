package bus

import (
	"context"
	"strings"
	"sync"
)

// MemoryBus is an in-process Bus used by tests and local single-process
// development. Delivery is synchronous and in publish order per subscriber.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[*memorySubscription]struct{}
	closed bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[*memorySubscription]struct{})}
}

func (b *MemoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	msg := Message{Channel: channel, Payload: string(payload)}
	for sub := range b.subs {
		if sub.matches(channel) {
			select {
			case sub.out <- msg:
			default:
				// Slow subscriber: drop rather than block the publisher.
			}
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	return b.addSubscription(channels, nil)
}

func (b *MemoryBus) PSubscribe(ctx context.Context, patterns ...string) (Subscription, error) {
	return b.addSubscription(nil, patterns)
}

func (b *MemoryBus) addSubscription(channels, patterns []string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	sub := &memorySubscription{
		bus:      b,
		channels: channels,
		patterns: patterns,
		out:      make(chan Message, 256),
	}
	b.subs[sub] = struct{}{}
	return sub, nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.out)
		delete(b.subs, sub)
	}
	return nil
}

func (b *MemoryBus) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		close(sub.out)
		delete(b.subs, sub)
	}
}

type memorySubscription struct {
	bus      *MemoryBus
	channels []string
	patterns []string
	out      chan Message
}

func (s *memorySubscription) matches(channel string) bool {
	for _, ch := range s.channels {
		if ch == channel {
			return true
		}
	}
	for _, p := range s.patterns {
		if matchPattern(p, channel) {
			return true
		}
	}
	return false
}

// matchPattern supports the single glob form the relay uses: a literal
// prefix followed by a trailing '*'.
func matchPattern(pattern, channel string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(channel, prefix)
	}
	return pattern == channel
}

func (s *memorySubscription) Messages() <-chan Message {
	return s.out
}

func (s *memorySubscription) Close() error {
	s.bus.remove(s)
	return nil
}
