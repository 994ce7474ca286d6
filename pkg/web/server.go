// Package web serves a studio over HTTP: a small JSON API for the settings
// and a websocket endpoint that streams replies as they arrive.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/germanamz/studio/pkg/compare"
	"github.com/germanamz/studio/pkg/params"
	"github.com/germanamz/studio/pkg/selection"
	"github.com/germanamz/studio/pkg/studio"
	"github.com/germanamz/studio/pkg/tools/toolbox"
)

// maxBody bounds JSON request bodies.
const maxBody = 1 << 20

// Server exposes a Studio over HTTP.
type Server struct {
	studio *studio.Studio
	tools  *toolbox.ToolBox
	log    *slog.Logger
	mux    *http.ServeMux
}

// New builds the HTTP API for st. A nil logger uses slog.Default().
func New(st *studio.Studio, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{studio: st, tools: st.Tools(), log: logger, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("PUT /api/key", s.handleKey)
	s.mux.HandleFunc("POST /api/selection/toggle", s.handleToggleModel)
	s.mux.HandleFunc("PUT /api/mode", s.handleMode)
	s.mux.HandleFunc("POST /api/favorites/toggle", s.handleToggleFavorite)
	s.mux.HandleFunc("PATCH /api/params", s.handleParams)
	s.mux.HandleFunc("GET /api/models", s.handleModels)
	s.mux.HandleFunc("GET /api/messages", s.handleMessages)
	s.mux.HandleFunc("DELETE /api/messages", s.handleClear)
	s.mux.HandleFunc("GET /api/diff", s.handleDiff)
	s.mux.HandleFunc("GET /api/tools", s.handleListTools)
	s.mux.HandleFunc("POST /api/tools/{name}", s.handleCallTool)
	s.mux.HandleFunc("GET /api/chat", s.handleChat)

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.log.Info("web: listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.studio.Cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

type idRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.studio.View())
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var in struct {
		APIKey string `json:"apiKey"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	s.studio.Store().SetAPIKey(in.APIKey)
	writeJSON(w, http.StatusOK, s.studio.View())
}

func (s *Server) handleToggleModel(w http.ResponseWriter, r *http.Request) {
	var in idRequest
	if !readJSON(w, r, &in) {
		return
	}
	if in.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("id is required"))
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"selectedModels": s.studio.Store().ToggleModel(in.ID)})
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Mode string `json:"mode"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	m, err := selection.ParseMode(in.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.studio.Store().SetMode(m); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, s.studio.View())
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var in idRequest
	if !readJSON(w, r, &in) {
		return
	}
	if in.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("id is required"))
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"favorites": s.studio.Store().ToggleFavorite(in.ID)})
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	var patch params.Patch
	if !readJSON(w, r, &patch) {
		return
	}

	p, err := s.studio.Store().UpdateParams(patch)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reasoning, _ := strconv.ParseBool(q.Get("reasoning"))

	models := s.studio.SearchModels(r.Context(), q.Get("q"), reasoning)
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (s *Server) handleMessages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"messages": s.studio.Store().Messages()})
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	s.studio.Store().ClearChat()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDiff(w http.ResponseWriter, _ *http.Request) {
	diff, err := s.studio.LatestDiff()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, compare.ErrNoPair) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"diff": diff})
}

type toolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	tools := s.tools.Tools()
	out := make([]toolInfo, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolInfo{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": out})
}

// handleCallTool runs a studio tool with the request body as its input.
// Tool failures are reported in the result, not as HTTP errors.
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, ok := s.tools.Get(name); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("tool not found: %s", name))
		return
	}

	input, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(input) > 0 && !json.Valid(input) {
		writeError(w, http.StatusBadRequest, errors.New("input must be a JSON object"))
		return
	}

	writeJSON(w, http.StatusOK, s.tools.Call(r.Context(), name, input))
}
