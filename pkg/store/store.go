// Package store is the process-wide state container of the studio.
//
// All mutations go through a narrow API that applies the pure transition
// functions of the selection and params packages under a mutex, so readers
// only ever observe states that satisfy the selection invariants. Every
// mutation publishes an [Event] to subscribers.
package store

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/germanamz/studio/pkg/chats/chat"
	"github.com/germanamz/studio/pkg/chats/message"
	"github.com/germanamz/studio/pkg/params"
	"github.com/germanamz/studio/pkg/selection"
)

// Settings is the subset of the state that survives restarts.
type Settings struct {
	APIKey    string
	Mode      selection.Mode
	Selected  []string
	Favorites []string
	Params    params.Params
}

// State is a deep copy of the store contents.
type State struct {
	Settings
	Messages []message.Message
}

// Store holds the studio state. Create it with New.
type Store struct {
	mu       sync.Mutex
	settings Settings
	chat     *chat.Chat
	bus      *eventBus
	now      func() time.Time
}

// New creates a store in chat mode with default parameters and nothing
// selected.
func New() *Store {
	return &Store{
		settings: Settings{
			Mode:   selection.Chat,
			Params: params.Defaults(),
		},
		chat: chat.New(),
		bus:  newEventBus(),
		now:  time.Now,
	}
}

// Subscribe registers a subscriber with the given channel buffer. With no
// kinds every event is delivered. Call Unsubscribe when done.
func (s *Store) Subscribe(bufSize int, kinds ...EventKind) *Subscription {
	return s.bus.subscribe(bufSize, kinds)
}

// Unsubscribe removes sub and closes its channel.
func (s *Store) Unsubscribe(sub *Subscription) {
	s.bus.unsubscribe(sub)
}

// emit publishes under s.mu so that subscribers see events in mutation
// order. publish never blocks.
func (s *Store) emit(kind EventKind, data any) {
	s.bus.publish(Event{Kind: kind, Timestamp: s.now(), Data: data})
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Settings: s.settingsLocked(),
		Messages: s.chat.Messages(),
	}
}

// Settings returns a copy of the persisted subset.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settingsLocked()
}

func (s *Store) settingsLocked() Settings {
	out := s.settings
	out.Selected = slices.Clone(s.settings.Selected)
	out.Favorites = slices.Clone(s.settings.Favorites)
	return out
}

// Messages returns a copy of the conversation.
func (s *Store) Messages() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chat.Messages()
}

// SetAPIKey replaces the API key.
func (s *Store) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings.APIKey == key {
		return
	}
	s.settings.APIKey = key
	s.emit(EventAPIKeyChanged, key)
}

// ToggleModel flips id in the selection under the current mode and returns
// the new selection.
func (s *Store) ToggleModel(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings.Selected = selection.Toggle(s.settings.Selected, s.settings.Mode, id)
	out := slices.Clone(s.settings.Selected)
	s.emit(EventSelectionChanged, slices.Clone(out))

	return out
}

// SetMode switches the interaction mode, trimming the selection when the
// new mode allows fewer models.
func (s *Store) SetMode(m selection.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("store: set mode: %w: %q", selection.ErrUnknownMode, m)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings.Mode == m {
		return nil
	}

	prev := s.settings.Selected
	s.settings.Selected = selection.SwitchMode(prev, m)
	s.settings.Mode = m
	s.emit(EventModeChanged, m)

	if !slices.Equal(prev, s.settings.Selected) {
		s.emit(EventSelectionChanged, slices.Clone(s.settings.Selected))
	}

	return nil
}

// ToggleFavorite flips id in the favorites and returns the new list.
func (s *Store) ToggleFavorite(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings.Favorites = selection.ToggleFavorite(s.settings.Favorites, id)
	out := slices.Clone(s.settings.Favorites)
	s.emit(EventFavoritesChanged, slices.Clone(out))

	return out
}

// UpdateParams merges patch into the parameters. A rejected patch leaves
// the parameters untouched and publishes nothing.
func (s *Store) UpdateParams(patch params.Patch) (params.Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.settings.Params.Merge(patch)
	if err != nil {
		return s.settings.Params, err
	}
	if next == s.settings.Params {
		return next, nil
	}

	s.settings.Params = next
	s.emit(EventParamsChanged, next)

	return next, nil
}

// AddMessage appends m to the conversation.
func (s *Store) AddMessage(m message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chat.Append(m)
	s.emit(EventMessageAdded, m)
}

// AppendContent appends delta to the message with the given id and reports
// whether it exists. Messages removed by ClearChat are silently skipped.
func (s *Store) AppendContent(id, delta string) (message.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.chat.AppendContent(id, delta)
	if ok {
		s.emit(EventMessageUpdated, m)
	}
	return m, ok
}

// ClearChat drops the whole conversation.
func (s *Store) ClearChat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chat.Reset()
	s.emit(EventChatCleared, nil)
}

// Restore replaces the persisted subset, normalizing the selection for the
// restored mode. It publishes no events.
func (s *Store) Restore(in Settings) {
	if !in.Mode.Valid() {
		in.Mode = selection.Chat
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = Settings{
		APIKey:    in.APIKey,
		Mode:      in.Mode,
		Selected:  selection.Normalize(in.Selected, in.Mode),
		Favorites: slices.Clone(in.Favorites),
		Params:    in.Params,
	}
}
