package openrouter_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/germanamz/studio/pkg/openrouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultBaseURL(t *testing.T) {
	c := openrouter.New("")
	assert.Equal(t, openrouter.DefaultBaseURL, c.BaseURL)
	assert.NotNil(t, c.Logger)
}

func TestNewRequest_NoKeyNoAuthHeader(t *testing.T) {
	c := openrouter.New("https://api.example.com")

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/models", "", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/models", req.URL.String())
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("HTTP-Referer"))
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":[
			{"id":"a/one","name":"One","context_length":8192,"pricing":{"prompt":"0.1","completion":"0.2"}},
			{"id":"b/two","name":"Two"}
		]}`)
	}))
	t.Cleanup(srv.Close)

	models := openrouter.New(srv.URL).ListModels(context.Background())

	require.Len(t, models, 2)
	assert.Equal(t, "a/one", models[0].ID)
	assert.Equal(t, 8192, models[0].ContextLength)
	assert.Equal(t, "0.2", models[0].Pricing.Completion)
	assert.Equal(t, "Two", models[1].Name)
}

func TestListModels_FailureYieldsEmpty(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"bad json": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "<html>")
		},
		"no data": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{}`)
		},
	}

	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			t.Cleanup(srv.Close)

			models := openrouter.New(srv.URL).ListModels(context.Background())
			assert.NotNil(t, models)
			assert.Empty(t, models)
		})
	}
}

func TestListModels_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	models := openrouter.New(url).ListModels(context.Background())
	assert.NotNil(t, models)
	assert.Empty(t, models)
}

func TestIsFailure(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{"[Error: 429 - slow down]", true},
		{"[System Error: connection reset]", true},
		{"partial answer [System Error: unexpected EOF]", false},
		{"[Error: unterminated", false},
		{"[note] fine", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			assert.Equal(t, tt.want, openrouter.IsFailure(tt.content))
		})
	}
}
