package studio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/germanamz/studio/pkg/chats/message"
	"github.com/germanamz/studio/pkg/chats/role"
	"github.com/germanamz/studio/pkg/params"
	"github.com/germanamz/studio/pkg/persist"
	"github.com/germanamz/studio/pkg/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type captured struct {
	Model    string    `json:"model"`
	Messages []wireMsg `json:"messages"`
	Auth     string    `json:"-"`
}

// fakeRouter answers every completion with "reply from <model>" split into
// two frames and records the requests.
type fakeRouter struct {
	mu       sync.Mutex
	requests []captured
	block    chan struct{} // when set, streams wait on it after the first frame
	fail     string        // model answered with 429
}

func (f *fakeRouter) handler(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/models":
		_, _ = io.WriteString(w, `{"data":[{"id":"b/beta","name":"Beta"},{"id":"a/alpha","name":"Alpha"},{"id":"deepseek/r1","name":"R1"}]}`)
		return
	case "/chat/completions":
	default:
		http.NotFound(w, r)
		return
	}

	var c captured
	_ = json.NewDecoder(r.Body).Decode(&c)
	c.Auth = r.Header.Get("Authorization")

	f.mu.Lock()
	f.requests = append(f.requests, c)
	fail := f.fail
	f.mu.Unlock()

	if c.Model == fail {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, "slow down")
		return
	}

	fl := w.(http.Flusher)
	frame := func(s string) {
		b, _ := json.Marshal(map[string]any{"choices": []any{map[string]any{"delta": map[string]any{"content": s}}}})
		_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
		fl.Flush()
	}

	frame("reply ")
	if f.block != nil {
		select {
		case <-f.block:
		case <-r.Context().Done():
			return
		}
	}
	frame("from " + c.Model)
	_, _ = io.WriteString(w, "data: [DONE]\n\n")
}

func (f *fakeRouter) byModel(model string) []captured {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []captured
	for _, r := range f.requests {
		if r.Model == model {
			out = append(out, r)
		}
	}
	return out
}

func newTestStudio(t *testing.T, f *fakeRouter, mutate ...func(*Config)) *Studio {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.APIKey = "sk-config"
	for _, m := range mutate {
		m(&cfg)
	}

	s, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

// deltas collects sink output per model.
type deltas struct {
	mu sync.Mutex
	m  map[string]string
}

func (d *deltas) sink(model, delta string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.m == nil {
		d.m = map[string]string{}
	}
	d.m[model] += delta
}

func (d *deltas) get(model string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.m[model]
}

func TestSend_Chat(t *testing.T) {
	f := &fakeRouter{}
	s := newTestStudio(t, f)
	s.Store().ToggleModel("a/alpha")

	var d deltas
	require.NoError(t, s.Send(context.Background(), "hello", d.sink))

	assert.Equal(t, "reply from a/alpha", d.get("a/alpha"))

	msgs := s.Store().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, role.User, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "a/alpha", msgs[1].ModelName)
	assert.Equal(t, "reply from a/alpha", msgs[1].Content)

	reqs := f.byModel("a/alpha")
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer sk-config", reqs[0].Auth)
	assert.Equal(t, []wireMsg{{Role: "user", Content: "hello"}}, reqs[0].Messages)
	assert.False(t, s.Busy())
}

func TestSend_ChatSendsWholeHistory(t *testing.T) {
	f := &fakeRouter{}
	s := newTestStudio(t, f)
	s.Store().ToggleModel("a/alpha")

	require.NoError(t, s.Send(context.Background(), "one", nil))
	require.NoError(t, s.Send(context.Background(), "two", nil))

	reqs := f.byModel("a/alpha")
	require.Len(t, reqs, 2)
	assert.Equal(t, []wireMsg{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "reply from a/alpha"},
		{Role: "user", Content: "two"},
	}, reqs[1].Messages)
}

func TestSend_VersusIsolatesReplies(t *testing.T) {
	f := &fakeRouter{}
	s := newTestStudio(t, f)
	require.NoError(t, s.Store().SetMode(selection.Versus))
	s.Store().ToggleModel("a/alpha")
	s.Store().ToggleModel("b/beta")

	var d deltas
	require.NoError(t, s.Send(context.Background(), "q1", d.sink))
	require.NoError(t, s.Send(context.Background(), "q2", d.sink))

	assert.Equal(t, "reply from a/alphareply from a/alpha", d.get("a/alpha"))

	for _, model := range []string{"a/alpha", "b/beta"} {
		reqs := f.byModel(model)
		require.Len(t, reqs, 2)
		assert.Equal(t, []wireMsg{
			{Role: "user", Content: "q1"},
			{Role: "assistant", Content: "reply from " + model},
			{Role: "user", Content: "q2"},
		}, reqs[1].Messages, model)
	}

	assert.Len(t, s.Store().Messages(), 6)
}

func TestSend_RoundtableIsSequentialAndAttributed(t *testing.T) {
	f := &fakeRouter{}
	s := newTestStudio(t, f)
	require.NoError(t, s.Store().SetMode(selection.Roundtable))
	s.Store().ToggleModel("a/alpha")
	s.Store().ToggleModel("b/beta")

	require.NoError(t, s.Send(context.Background(), "topic", nil))

	beta := f.byModel("b/beta")
	require.Len(t, beta, 1)
	assert.Equal(t, []wireMsg{
		{Role: "user", Content: "topic"},
		{Role: "assistant", Content: "[a/alpha] reply from a/alpha"},
	}, beta[0].Messages)

	msgs := s.Store().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "a/alpha", msgs[1].ModelName)
	assert.Equal(t, "b/beta", msgs[2].ModelName)
}

func TestSend_RoundtableSkipsFailedReplies(t *testing.T) {
	f := &fakeRouter{fail: "a/alpha"}
	s := newTestStudio(t, f)
	require.NoError(t, s.Store().SetMode(selection.Roundtable))
	s.Store().ToggleModel("a/alpha")
	s.Store().ToggleModel("b/beta")

	require.NoError(t, s.Send(context.Background(), "topic", nil))

	beta := f.byModel("b/beta")
	require.Len(t, beta, 1)
	assert.Equal(t, []wireMsg{{Role: "user", Content: "topic"}}, beta[0].Messages)

	msgs := s.Store().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "[Error: 429 - slow down]", msgs[1].Content, "the failure stays visible in the conversation")

	f.mu.Lock()
	f.fail = ""
	f.mu.Unlock()
	require.NoError(t, s.Send(context.Background(), "again", nil))

	alpha := f.byModel("a/alpha")
	require.Len(t, alpha, 2)
	for _, m := range alpha[1].Messages {
		assert.NotContains(t, m.Content, "[Error:")
	}
}

func TestSend_SetupErrors(t *testing.T) {
	f := &fakeRouter{}

	s := newTestStudio(t, f)
	assert.ErrorIs(t, s.Send(context.Background(), "hi", nil), ErrNoModels)
	assert.ErrorIs(t, s.Send(context.Background(), "   ", nil), ErrEmptyPrompt)

	noKey := newTestStudio(t, f, func(c *Config) { c.APIKey = "" })
	noKey.Store().ToggleModel("a/alpha")
	assert.ErrorIs(t, noKey.Send(context.Background(), "hi", nil), ErrNoAPIKey)

	assert.Empty(t, s.Store().Messages())
}

func TestSend_StoredKeyWins(t *testing.T) {
	f := &fakeRouter{}
	s := newTestStudio(t, f)
	s.Store().SetAPIKey("sk-stored")
	s.Store().ToggleModel("a/alpha")

	require.NoError(t, s.Send(context.Background(), "hi", nil))

	assert.Equal(t, "Bearer sk-stored", f.byModel("a/alpha")[0].Auth)
	assert.Equal(t, "sk-stored", s.APIKey())
}

func TestSend_BusyAndCancel(t *testing.T) {
	f := &fakeRouter{block: make(chan struct{})}
	defer close(f.block)

	s := newTestStudio(t, f)
	s.Store().ToggleModel("a/alpha")

	var d deltas
	first := make(chan struct{})
	var once sync.Once

	done := make(chan error, 1)
	go func() {
		done <- s.Send(context.Background(), "hi", func(model, delta string) {
			d.sink(model, delta)
			once.Do(func() { close(first) })
		})
	}()

	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("no delta")
	}

	assert.True(t, s.Busy())
	assert.ErrorIs(t, s.Send(context.Background(), "again", nil), ErrBusy)

	assert.True(t, s.Cancel())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("send did not finish")
	}

	assert.Equal(t, "reply ", d.get("a/alpha"))
	assert.False(t, s.Busy())
	assert.False(t, s.Cancel())

	msgs := s.Store().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "reply ", msgs[1].Content)
}

func TestSend_ErrorStatusBecomesReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "bad key")
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.APIKey = "sk"
	s, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	s.Store().ToggleModel("m")

	var d deltas
	require.NoError(t, s.Send(context.Background(), "hi", d.sink))
	assert.Equal(t, "[Error: 401 - bad key]", d.get("m"))
	assert.Equal(t, "[Error: 401 - bad key]", s.Store().Messages()[1].Content)
}

func TestNew_RestoresAndAutosaves(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")

	seed := persist.Default()
	seed.APIKey = "sk-persisted"
	seed.Mode = selection.Versus
	seed.SelectedModels = []string{"a/alpha", "b/beta"}
	require.NoError(t, persist.NewFile(statePath, nil).Save(seed))

	f := &fakeRouter{}
	s := newTestStudio(t, f, func(c *Config) { c.StateFile = statePath })

	assert.Equal(t, "sk-persisted", s.APIKey())
	assert.Equal(t, selection.Versus, s.Store().Settings().Mode)

	s.Store().ToggleFavorite("a/alpha")

	require.Eventually(t, func() bool {
		snap, _, err := persist.NewFile(statePath, nil).Load()
		return err == nil && slices.Equal(snap.Favorites, []string{"a/alpha"})
	}, 5*time.Second, 10*time.Millisecond)

	s.Store().AddMessage(message.New(role.User, "never persisted"))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "never persisted")
}

func TestNew_RestartKeepsParams(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	f := &fakeRouter{}
	withState := func(c *Config) { c.StateFile = statePath }

	first := newTestStudio(t, f, withState)
	first.Store().SetAPIKey("sk-1")
	require.NoError(t, first.Close())

	second := newTestStudio(t, f, withState)
	assert.Equal(t, params.Defaults(), second.Store().Settings().Params)

	temp := 0.75
	_, err := second.Store().UpdateParams(params.Patch{Temperature: &temp})
	require.NoError(t, err)
	require.NoError(t, second.Close())

	want := params.Defaults()
	want.Temperature = 0.75

	third := newTestStudio(t, f, withState)
	assert.Equal(t, want, third.Store().Settings().Params)
	assert.Equal(t, "sk-1", third.APIKey())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "nope"

	_, err := New(cfg, nil)
	require.Error(t, err)
}

func TestModels_SortedAndCached(t *testing.T) {
	f := &fakeRouter{}
	cache := filepath.Join(t.TempDir(), "models.json")
	s := newTestStudio(t, f, func(c *Config) { c.ModelsCache = cache })
	s.Store().ToggleFavorite("b/beta")

	models := s.Models(context.Background())
	require.Len(t, models, 3)
	assert.Equal(t, "b/beta", models[0].ID)
	assert.Equal(t, "a/alpha", models[1].ID)
	assert.FileExists(t, cache)

	got := s.SearchModels(context.Background(), "", true)
	require.Len(t, got, 1)
	assert.Equal(t, "deepseek/r1", got[0].ID)
}

func TestModels_FallsBackToDiskCache(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "models.json")
	require.NoError(t, os.WriteFile(cache, []byte(`[{"id":"x/cached","name":"Cached"}]`), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.ModelsCache = cache
	s, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	models := s.Models(context.Background())
	require.Len(t, models, 1)
	assert.Equal(t, "x/cached", models[0].ID)
}

func TestLatestDiff(t *testing.T) {
	f := &fakeRouter{}
	s := newTestStudio(t, f)
	require.NoError(t, s.Store().SetMode(selection.Versus))
	s.Store().ToggleModel("a/alpha")
	s.Store().ToggleModel("b/beta")

	_, err := s.LatestDiff()
	require.Error(t, err)

	require.NoError(t, s.Send(context.Background(), "q", nil))

	out, err := s.LatestDiff()
	require.NoError(t, err)
	assert.Contains(t, out, "-reply from ")
	assert.Contains(t, out, "+reply from ")
}

func TestContexts(t *testing.T) {
	history := []message.Message{
		message.New(role.System, "be brief"),
		message.New(role.User, "q"),
		message.NewReply("a", "from a"),
		message.NewReply("b", "from b"),
		message.NewReply("c", ""),
	}

	vs := versusContext(history, "a")
	require.Len(t, vs, 3)
	assert.Equal(t, "from a", vs[2].Content)

	rt := roundtableContext(history, "a")
	require.Len(t, rt, 4)
	assert.Equal(t, "from a", rt[2].Content)
	assert.Equal(t, "[b] from b", rt[3].Content)
	assert.Equal(t, "from b", history[3].Content, "history is not modified")

	assert.Len(t, chatContext(history), 4)
}

func TestContexts_SkipFailedReplies(t *testing.T) {
	history := []message.Message{
		message.New(role.User, "q"),
		message.NewReply("a", "[Error: 429 - slow down]"),
		message.NewReply("b", "partial [System Error: unexpected EOF]"),
		message.NewReply("c", "[System Error: connection reset]"),
	}

	rt := roundtableContext(history, "d")
	require.Len(t, rt, 2)
	assert.Equal(t, "[b] partial [System Error: unexpected EOF]", rt[1].Content)

	assert.Len(t, versusContext(history, "a"), 1)
	assert.Len(t, chatContext(history), 2)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", MaskKey(""))
	assert.Equal(t, "*****", MaskKey("short"))
	assert.Equal(t, "sk-o*******cdef", MaskKey("sk-or-v1-abcdef"))
}
