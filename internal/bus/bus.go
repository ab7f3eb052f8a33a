// Package bus is the in-process publish/subscribe channel between the
// arbitration engine and the collaborators reacting to voice events.
package bus

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prestond28/road-trip-game-box/internal/logging"
)

type Kind string

const (
	KindWake          Kind = "wake"
	KindListening     Kind = "listening"
	KindResult        Kind = "result"
	KindRequestListen Kind = "request_listen"
	KindSpeakRequest  Kind = "speak_request"
	KindSpeaking      Kind = "speaking"
)

// Event is one published notification. Listening is meaningful for
// KindListening, Speaking for KindSpeaking, Text for KindResult and
// KindSpeakRequest.
type Event struct {
	Kind      Kind
	Listening bool
	Speaking  bool
	Text      string
	At        time.Time
}

// Handler receives one delivered event.
type Handler func(Event)

// Subscription removes its handler. Calling it more than once is a no-op.
type Subscription func()

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus delivers events synchronously, in registration order, to the
// subscribers registered at publish time.
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   map[Kind][]subscriber

	awaitingAnswer atomic.Bool
}

// New constructs an empty bus.
func New(logger *slog.Logger) *Bus {
	logger = logging.OrDiscard(logger)
	return &Bus{logger: logger, subs: make(map[Kind][]subscriber)}
}

// Subscribe registers handler for kind.
func (b *Bus) Subscribe(kind Kind, handler Handler) Subscription {
	if handler == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscriber{id: id, handler: handler})
	b.mu.Unlock()

	return sync.OnceFunc(func() { b.remove(kind, id) })
}

func (b *Bus) remove(kind Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.subs[kind]
	kept := make([]subscriber, 0, len(current))
	for _, sub := range current {
		if sub.id != id {
			kept = append(kept, sub)
		}
	}
	if len(kept) == 0 {
		delete(b.subs, kind)
		return
	}
	b.subs[kind] = kept
}

// Publish delivers ev to every current subscriber of ev.Kind.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	snapshot := append([]subscriber(nil), b.subs[ev.Kind]...)
	b.mu.RUnlock()

	for _, sub := range snapshot {
		b.deliver(sub, ev)
	}
}

// deliver isolates one handler so a panic cannot starve later subscribers.
func (b *Bus) deliver(sub subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Debug("bus handler panicked",
				"kind", string(ev.Kind),
				"subscriber", sub.id,
				"error", fmt.Sprint(r),
			)
		}
	}()
	sub.handler(ev)
}

// Subscribers reports how many handlers are registered for kind.
func (b *Bus) Subscribers(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

// IsAwaitingAnswer reports whether a collaborator is waiting on a yes/no reply.
func (b *Bus) IsAwaitingAnswer() bool {
	return b.awaitingAnswer.Load()
}

// SetAwaitingAnswer toggles early yes/no detection.
func (b *Bus) SetAwaitingAnswer(v bool) {
	b.awaitingAnswer.Store(v)
}
