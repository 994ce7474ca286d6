package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/germanamz/studio/pkg/chats/message"
	"github.com/germanamz/studio/pkg/chats/role"
	"github.com/germanamz/studio/pkg/compare"
	"github.com/germanamz/studio/pkg/openrouter"
	"github.com/germanamz/studio/pkg/persist"
	"github.com/germanamz/studio/pkg/selection"
	"github.com/germanamz/studio/pkg/store"
)

var (
	// ErrNoModels is returned by Send when nothing is selected.
	ErrNoModels = errors.New("studio: no model selected")
	// ErrNoAPIKey is returned by Send when no API key is known.
	ErrNoAPIKey = errors.New("studio: no API key")
	// ErrBusy is returned by Send while another send is in flight.
	ErrBusy = errors.New("studio: a send is already in progress")
	// ErrEmptyPrompt is returned by Send for blank input.
	ErrEmptyPrompt = errors.New("studio: empty prompt")
)

// Sink receives streamed content tagged with the model that produced it.
// In versus mode it is called from several goroutines at once.
type Sink func(model, delta string)

// Studio wires the store, the streaming client and persistence together.
type Studio struct {
	cfg    Config
	log    *slog.Logger
	store  *store.Store
	client *openrouter.Client
	file   *persist.File // nil when settings are not persisted.

	mu       sync.Mutex
	busy     bool
	cancel   context.CancelFunc
	sessions map[string]*openrouter.Session

	models modelCache

	autosave  *store.Subscription
	saverDone chan struct{}
	closeOnce sync.Once
}

// New creates a Studio from cfg. Persisted settings are loaded from
// cfg.StateFile when set; a persisted API key takes precedence over the
// configured one. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) (*Studio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &Studio{
		cfg: cfg,
		log: logger,
		client: openrouter.New(cfg.BaseURL,
			openrouter.WithAttribution(cfg.AppURL, cfg.AppTitle),
			openrouter.WithLogger(logger),
		),
		store:    store.New(),
		sessions: make(map[string]*openrouter.Session),
		models:   modelCache{path: cfg.ModelsCache},
	}

	if cfg.StateFile != "" {
		s.file = persist.NewFile(cfg.StateFile, logger)

		snap, ok, err := s.file.Load()
		if err != nil {
			return nil, fmt.Errorf("studio: %w", err)
		}
		if ok {
			s.store.Restore(snap.Settings())
			logger.Debug("studio: restored settings", "path", s.file.Path(), "mode", snap.Mode, "selected", snap.SelectedModels)
		}

		s.autosave = s.store.Subscribe(64, store.PersistedKinds...)
		s.saverDone = make(chan struct{})
		go s.saveLoop()
	}

	return s, nil
}

// Store exposes the state container for observers and simple mutations.
func (s *Studio) Store() *store.Store { return s.store }

// Client returns the streaming client.
func (s *Studio) Client() *openrouter.Client { return s.client }

// Config returns the configuration the studio was built with.
func (s *Studio) Config() Config { return s.cfg }

// APIKey returns the key used for requests: the stored key, or the
// configured one when none was stored.
func (s *Studio) APIKey() string {
	if k := s.store.Settings().APIKey; k != "" {
		return k
	}
	return s.cfg.APIKey
}

// Busy reports whether a send is in flight.
func (s *Studio) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Send appends a user message and streams replies from the selected models
// according to the current mode. Settings are read once at the start, so
// changes made while the send runs apply to the next one.
//
// Request failures are not returned: they arrive through the sink and in the
// conversation as bracketed deltas. Send returns an error only when it could
// not start.
func (s *Studio) Send(ctx context.Context, text string, sink Sink) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyPrompt
	}
	if sink == nil {
		sink = func(string, string) {}
	}

	st := s.store.Snapshot()
	key := st.APIKey
	if key == "" {
		key = s.cfg.APIKey
	}

	switch {
	case key == "":
		return ErrNoAPIKey
	case len(st.Selected) == 0:
		return ErrNoModels
	}

	ctx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer s.end()

	user := message.New(role.User, text)
	s.store.AddMessage(user)
	history := append(st.Messages, user)

	s.log.InfoContext(ctx, "studio: send", "mode", st.Mode, "models", st.Selected)

	t := turn{studio: s, key: key, params: st.Params, sink: sink}

	switch st.Mode {
	case selection.Versus:
		var wg sync.WaitGroup
		for _, model := range st.Selected {
			wg.Add(1)
			go func() {
				defer wg.Done()
				t.stream(ctx, model, versusContext(history, model))
			}()
		}
		wg.Wait()

	case selection.Roundtable:
		for _, model := range st.Selected {
			if ctx.Err() != nil {
				break
			}
			reply := t.stream(ctx, model, roundtableContext(history, model))
			history = append(history, reply)
		}

	default:
		t.stream(ctx, st.Selected[0], chatContext(history))
	}

	return nil
}

// begin marks the studio busy and derives the cancellable send context.
func (s *Studio) begin(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return nil, ErrBusy
	}

	ctx, cancel := context.WithCancel(ctx)
	s.busy = true
	s.cancel = cancel

	return ctx, nil
}

func (s *Studio) end() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.busy = false
	s.cancel = nil
	clear(s.sessions)
}

// Cancel stops the in-flight send, if any. No delta reaches the sink after
// Cancel returns. It reports whether a send was running.
func (s *Studio) Cancel() bool {
	s.mu.Lock()
	cancel := s.cancel
	sessions := make([]*openrouter.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	if cancel == nil {
		return false
	}

	cancel()
	for _, sess := range sessions {
		sess.Cancel()
	}

	s.log.Info("studio: send cancelled")
	return true
}

func (s *Studio) track(sess *openrouter.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return false
	}
	s.sessions[sess.ID()] = sess
	return true
}

func (s *Studio) untrack(sess *openrouter.Session) {
	s.mu.Lock()
	delete(s.sessions, sess.ID())
	s.mu.Unlock()
}

// LatestDiff diffs the two most recent replies from different models.
func (s *Studio) LatestDiff() (string, error) {
	a, b, err := compare.LatestPair(s.store.Messages())
	if err != nil {
		return "", err
	}
	return compare.Diff(a, b, s.cfg.DiffContext)
}

// Save writes the persisted settings now. It is a no-op without a state file.
func (s *Studio) Save() error {
	if s.file == nil {
		return nil
	}
	return s.file.Save(persist.FromSettings(s.store.Settings()))
}

func (s *Studio) saveLoop() {
	defer close(s.saverDone)

	for e := range s.autosave.C {
		if err := s.Save(); err != nil {
			s.log.Error("studio: autosave failed", "event", e.Kind, "error", err)
		}
	}
}

// Close cancels any in-flight send, stops autosave and writes the settings
// one last time.
func (s *Studio) Close() error {
	var err error

	s.closeOnce.Do(func() {
		s.Cancel()

		if s.autosave != nil {
			s.store.Unsubscribe(s.autosave)
			<-s.saverDone
		}

		err = s.Save()
	})

	return err
}
