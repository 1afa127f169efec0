package event

import (
	"fmt"
	"runtime/debug"
	"slices"
	"strconv"
	"sync"

	"github.com/D3h420/janos-app/internal/logging"
)

// Wildcard is the event type that matches every event.
const Wildcard = "*"

// Handler receives a published event.
type Handler func(Event)

type subscription struct {
	id        string
	eventType string
	handler   Handler
}

// Bus is a synchronous pub-sub bus. The controller reports device activity
// on it; the TUI, the CLI and the history recorder listen.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription // registration order
	lastID uint64
	logger *logging.Logger
}

// NewBus creates an event bus. Handler panics are reported through logger;
// a nil logger discards them.
func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Bus{logger: logger.WithComponent("event")}
}

// Subscribe registers handler for eventType and returns the subscription ID.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastID++
	id := "sub-" + strconv.FormatUint(b.lastID, 10)
	b.subs = append(b.subs, subscription{id: id, eventType: eventType, handler: handler})
	return id
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(Wildcard, handler)
}

// Unsubscribe removes a subscription. It reports whether id was registered.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := slices.IndexFunc(b.subs, func(s subscription) bool { return s.id == id })
	if i < 0 {
		return false
	}
	b.subs = slices.Delete(b.subs, i, i+1)
	return true
}

// Publish calls the handlers for event on the calling goroutine: those
// subscribed to its type first, then the wildcard ones, each group in
// registration order. A panicking handler is logged and skipped.
func (b *Bus) Publish(event Event) {
	eventType := event.EventType()

	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.eventType == eventType {
			targets = append(targets, s.handler)
		}
	}
	for _, s := range b.subs {
		if s.eventType == Wildcard && eventType != Wildcard {
			targets = append(targets, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range targets {
		b.call(h, event)
	}
}

// call runs h, logging a panic with its stack. The stack goes to the log
// file only; the terminal may belong to the TUI.
func (b *Bus) call(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", event.EventType(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	h(event)
}

// SubscriptionCount returns the number of registered handlers.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
