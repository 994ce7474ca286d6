package store

import (
	"slices"
	"sync"
	"time"
)

// EventKind identifies the mutation that produced an event.
type EventKind string

const (
	EventAPIKeyChanged    EventKind = "api_key_changed"
	EventSelectionChanged EventKind = "selection_changed"
	EventModeChanged      EventKind = "mode_changed"
	EventFavoritesChanged EventKind = "favorites_changed"
	EventParamsChanged    EventKind = "params_changed"
	EventMessageAdded     EventKind = "message_added"
	EventMessageUpdated   EventKind = "message_updated"
	EventChatCleared      EventKind = "chat_cleared"
)

// PersistedKinds lists the kinds that change the persisted subset.
var PersistedKinds = []EventKind{
	EventAPIKeyChanged,
	EventSelectionChanged,
	EventModeChanged,
	EventFavoritesChanged,
	EventParamsChanged,
}

// Event is an immutable notification of a store mutation. Data holds the
// new value: a string for the key, []string for selection and favorites,
// selection.Mode, params.Params, message.Message, or nil for ChatCleared.
// A mode change that also trims the selection publishes both kinds.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	Data      any
}

// Persisted reports whether the event touched the persisted subset.
func (e Event) Persisted() bool {
	return slices.Contains(PersistedKinds, e.Kind)
}

// Subscription receives events from a Store.
type Subscription struct {
	C     <-chan Event
	ch    chan Event
	kinds []EventKind
}

func (s *Subscription) wants(k EventKind) bool {
	return len(s.kinds) == 0 || slices.Contains(s.kinds, k)
}

// eventBus fans out events to all active subscribers. It is safe for
// concurrent use.
type eventBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[*Subscription]struct{})}
}

func (b *eventBus) subscribe(bufSize int, kinds []EventKind) *Subscription {
	ch := make(chan Event, bufSize)
	sub := &Subscription{C: ch, ch: ch, kinds: slices.Clone(kinds)}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

func (b *eventBus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// publish sends e to every interested subscriber. If a subscriber's buffer
// is full the event is dropped for that subscriber so a slow consumer never
// stalls a mutation.
func (b *eventBus) publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if !sub.wants(e.Kind) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
}
