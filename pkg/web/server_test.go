package web_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/germanamz/studio/pkg/chats/message"
	"github.com/germanamz/studio/pkg/chats/role"
	"github.com/germanamz/studio/pkg/studio"
	"github.com/germanamz/studio/pkg/tools/toolbox"
	"github.com/germanamz/studio/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func router(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/models":
		_, _ = io.WriteString(w, `{"data":[{"id":"b/beta","name":"Beta"},{"id":"a/alpha","name":"Alpha"},{"id":"deepseek/r1","name":"R1"}]}`)
	case "/chat/completions":
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		b, _ := json.Marshal(map[string]any{"choices": []any{map[string]any{"delta": map[string]any{"content": "hi from " + body.Model}}}})
		_, _ = fmt.Fprintf(w, "data: %s\n\ndata: [DONE]\n\n", b)
	default:
		http.NotFound(w, r)
	}
}

func newServer(t *testing.T) (*studio.Studio, *httptest.Server) {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(router))
	t.Cleanup(upstream.Close)

	cfg := studio.DefaultConfig()
	cfg.BaseURL = upstream.URL
	cfg.APIKey = "sk-test-key-1234"

	st, err := studio.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srv := httptest.NewServer(web.New(st, nil).Handler())
	t.Cleanup(srv.Close)

	return st, srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, url, strings.NewReader(body))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestState(t *testing.T) {
	_, srv := newServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v := decode[studio.View](t, resp)
	assert.Equal(t, "chat", string(v.Mode))
	assert.True(t, v.HasKey)
	assert.NotContains(t, v.APIKey, "test-key")
	assert.Empty(t, v.Selected)
}

func TestSetKey(t *testing.T) {
	st, srv := newServer(t)

	resp := do(t, http.MethodPut, srv.URL+"/api/key", `{"apiKey":"sk-new"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sk-new", st.Store().Settings().APIKey)
}

func TestBadJSON(t *testing.T) {
	_, srv := newServer(t)

	resp := do(t, http.MethodPut, srv.URL+"/api/key", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestToggleModelAndMode(t *testing.T) {
	st, srv := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/selection/toggle", `{"id":"a/alpha"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string][]string{"selectedModels": {"a/alpha"}}, decode[map[string][]string](t, resp))

	resp = do(t, http.MethodPut, srv.URL+"/api/mode", `{"mode":"versus"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "versus", string(st.Store().Settings().Mode))

	resp = do(t, http.MethodPut, srv.URL+"/api/mode", `{"mode":"duel"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/selection/toggle", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestToggleFavorite(t *testing.T) {
	_, srv := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/favorites/toggle", `{"id":"b/beta"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"b/beta"}, decode[map[string][]string](t, resp)["favorites"])
}

func TestParams(t *testing.T) {
	st, srv := newServer(t)

	resp := do(t, http.MethodPatch, srv.URL+"/api/params", `{"temperature":1.2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 1.2, st.Store().Settings().Params.Temperature, 1e-9)

	resp = do(t, http.MethodPatch, srv.URL+"/api/params", `{"temperature":9}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.InDelta(t, 1.2, st.Store().Settings().Params.Temperature, 1e-9)
}

func TestModels(t *testing.T) {
	_, srv := newServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/models", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var all struct {
		Models []struct {
			ID string `json:"id"`
		} `json:"models"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&all))
	require.Len(t, all.Models, 3)
	assert.Equal(t, "a/alpha", all.Models[0].ID)

	resp = do(t, http.MethodGet, srv.URL+"/api/models?reasoning=true", "")
	var reasoning struct {
		Models []struct {
			ID string `json:"id"`
		} `json:"models"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reasoning))
	require.Len(t, reasoning.Models, 1)
	assert.Equal(t, "deepseek/r1", reasoning.Models[0].ID)
}

func TestMessagesAndClear(t *testing.T) {
	st, srv := newServer(t)
	st.Store().AddMessage(message.New(role.User, "hello"))

	resp := do(t, http.MethodGet, srv.URL+"/api/messages", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Messages []json.RawMessage `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out.Messages, 1)

	resp = do(t, http.MethodDelete, srv.URL+"/api/messages", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, st.Store().Messages())
}

func TestDiff(t *testing.T) {
	st, srv := newServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/diff", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	st.Store().AddMessage(message.New(role.User, "q"))
	st.Store().AddMessage(message.NewReply("a/alpha", "one\n"))
	st.Store().AddMessage(message.NewReply("b/beta", "two\n"))

	resp = do(t, http.MethodGet, srv.URL+"/api/diff", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	diff := decode[map[string]string](t, resp)["diff"]
	assert.Contains(t, diff, "-one")
	assert.Contains(t, diff, "+two")
}

func TestUnknownRoute(t *testing.T) {
	_, srv := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/state", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestTools(t *testing.T) {
	st, srv := newServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/tools", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list.Tools, 9)

	resp = do(t, http.MethodPost, srv.URL+"/api/tools/toggle_favorite", `{"id":"b/beta"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[toolbox.Result](t, resp)
	assert.False(t, res.IsError)
	assert.Equal(t, []string{"b/beta"}, st.Store().Settings().Favorites)

	resp = do(t, http.MethodPost, srv.URL+"/api/tools/diff_replies", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[toolbox.Result](t, resp).IsError)

	resp = do(t, http.MethodPost, srv.URL+"/api/tools/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/tools/set_mode", "{")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func dial(t *testing.T, srv *httptest.Server) (context.Context, *websocket.Conn) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/chat", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	return ctx, conn
}

func TestChat_Streams(t *testing.T) {
	st, srv := newServer(t)
	st.Store().ToggleModel("a/alpha")

	ctx, conn := dial(t, srv)
	require.NoError(t, wsjson.Write(ctx, conn, web.Frame{Type: web.FrameSend, Text: "hello"}))

	var content strings.Builder
	for {
		var f web.Frame
		require.NoError(t, wsjson.Read(ctx, conn, &f))
		if f.Type == web.FrameDone {
			break
		}
		require.Equal(t, web.FrameDelta, f.Type, f.Error)
		assert.Equal(t, "a/alpha", f.Model)
		content.WriteString(f.Content)
	}

	assert.Equal(t, "hi from a/alpha", content.String())

	msgs := st.Store().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi from a/alpha", msgs[1].Content)
}

func TestChat_SetupError(t *testing.T) {
	_, srv := newServer(t)

	ctx, conn := dial(t, srv)
	require.NoError(t, wsjson.Write(ctx, conn, web.Frame{Type: web.FrameSend, Text: "hello"}))

	var f web.Frame
	require.NoError(t, wsjson.Read(ctx, conn, &f))
	assert.Equal(t, web.FrameError, f.Type)
	assert.Contains(t, f.Error, "no model selected")
}

func TestChat_UnknownFrame(t *testing.T) {
	_, srv := newServer(t)

	ctx, conn := dial(t, srv)
	require.NoError(t, wsjson.Write(ctx, conn, web.Frame{Type: "nope"}))

	var f web.Frame
	require.NoError(t, wsjson.Read(ctx, conn, &f))
	assert.Equal(t, web.FrameError, f.Type)
}
