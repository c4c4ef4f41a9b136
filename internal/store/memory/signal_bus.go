package memory

import (
	"context"
	"path"
	"sync"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// SignalBus is an in-process domain.SignalBus. Channel patterns use
// path.Match syntax. Slow subscribers drop messages rather than block
// publishers.
type SignalBus struct {
	mu   sync.RWMutex
	subs map[*subscription]struct{}
}

type subscription struct {
	pattern string
	ch      chan []byte
}

// NewSignalBus creates an empty bus.
func NewSignalBus() *SignalBus {
	return &SignalBus{subs: make(map[*subscription]struct{})}
}

// Publish delivers payload to every matching subscriber.
func (b *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if ok, _ := path.Match(sub.pattern, channel); !ok {
			continue
		}
		msg := append([]byte(nil), payload...)
		select {
		case sub.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of payloads published to channels matching
// pattern. It is closed when ctx is cancelled.
func (b *SignalBus) Subscribe(ctx context.Context, pattern string) (<-chan []byte, error) {
	sub := &subscription{pattern: pattern, ch: make(chan []byte, 128)}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, sub)
		close(sub.ch)
		b.mu.Unlock()
	}()
	return sub.ch, nil
}

// Compile-time interface check.
var _ domain.SignalBus = (*SignalBus)(nil)
