package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/germanamz/studio/pkg/sse"
	"github.com/google/uuid"
)

// ErrSessionStarted is returned by Run when the session already ran.
var ErrSessionStarted = errors.New("openrouter: session already started")

// State is the lifecycle position of a session.
type State int

const (
	Idle State = iota
	Connecting
	Streaming
	Completed
	Cancelled
	Failed
)

var stateNames = [...]string{"idle", "connecting", "streaming", "completed", "cancelled", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

// Session is one streamed completion for one model. Run it once.
type Session struct {
	id     string
	client *Client
	req    Request
	sink   Sink

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	cancelled bool

	// deliverMu serializes sink calls with Cancel so that no delta is
	// delivered after Cancel returns. The sink must not call Cancel.
	deliverMu sync.Mutex
}

// NewSession prepares a session. Nothing is sent until Run.
func (c *Client) NewSession(req Request, sink Sink) *Session {
	if sink == nil {
		sink = func(string) {}
	}

	return &Session{
		id:     uuid.NewString(),
		client: c,
		req:    req,
		sink:   sink,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Model returns the model the session streams from.
func (s *Session) Model() string { return s.req.Model }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Cancel stops the session. It is safe to call at any time and more than
// once; once it returns the sink receives nothing more.
func (s *Session) Cancel() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	s.cancelled = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// deliver forwards a delta unless the session has been cancelled.
func (s *Session) deliver(ctx context.Context, delta string) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	cancelled := s.cancelled
	s.mu.Unlock()

	if cancelled || ctx.Err() != nil {
		return
	}

	s.sink(delta)
}

// Run performs the request and streams deltas into the sink until the
// sentinel frame, the end of the body, cancellation or a failure. Failures
// are delivered to the sink as one bracketed delta and also returned.
// Cancellation returns Cancelled with a nil error.
func (s *Session) Run(ctx context.Context) (State, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return s.State(), ErrSessionStarted
	}
	if s.cancelled {
		s.state = Cancelled
		s.mu.Unlock()
		return Cancelled, nil
	}
	s.cancel = cancel
	s.state = Connecting
	s.mu.Unlock()

	st, err := s.run(ctx)
	s.setState(st)

	log := s.client.logger().With("session", s.id, "model", s.req.Model, "state", st.String())
	if err != nil {
		log.WarnContext(ctx, "openrouter: stream failed", "error", err)
	} else {
		log.DebugContext(ctx, "openrouter: stream finished")
	}

	return st, err
}

func (s *Session) run(ctx context.Context) (State, error) {
	body, err := json.Marshal(newBody(s.req))
	if err != nil {
		return s.fail(ctx, fmt.Errorf("openrouter: marshal request: %w", err))
	}

	req, err := s.client.NewRequest(ctx, http.MethodPost, "/chat/completions", s.req.APIKey, bytes.NewReader(body))
	if err != nil {
		return s.fail(ctx, fmt.Errorf("openrouter: build request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Cancelled, nil
		}
		return s.fail(ctx, fmt.Errorf("openrouter: do request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, readErr := io.ReadAll(resp.Body)
		if ctx.Err() != nil {
			return Cancelled, nil
		}
		if readErr != nil {
			return s.fail(ctx, fmt.Errorf("openrouter: read error body: %w", readErr))
		}

		statusErr := &StatusError{Code: resp.StatusCode, Body: string(raw)}
		s.deliver(ctx, statusErr.Delta())
		return Failed, statusErr
	}

	s.setState(Streaming)

	r := sse.NewReader(resp.Body)
	for {
		f, err := r.Next()
		if err != nil {
			if ctx.Err() != nil {
				return Cancelled, nil
			}
			if errors.Is(err, io.EOF) {
				return Completed, nil
			}
			return s.fail(ctx, fmt.Errorf("openrouter: read stream: %w", err))
		}

		if f.Kind == sse.Done {
			return Completed, nil
		}

		var c chunk
		if err := json.Unmarshal([]byte(f.Data), &c); err != nil {
			continue
		}

		if content := c.content(); content != "" {
			s.deliver(ctx, content)
		}

		if ctx.Err() != nil {
			return Cancelled, nil
		}
	}
}

// fail delivers err as a system error delta.
func (s *Session) fail(ctx context.Context, err error) (State, error) {
	s.deliver(ctx, systemErrorDelta(errors.Unwrap(err)))
	return Failed, err
}
