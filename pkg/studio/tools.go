package studio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/germanamz/studio/pkg/params"
	"github.com/germanamz/studio/pkg/selection"
	"github.com/germanamz/studio/pkg/tools/toolbox"
)

// maxListedModels caps list_models output.
const maxListedModels = 50

// MaskKey hides all but the ends of an API key.
func MaskKey(k string) string {
	if len(k) <= 8 {
		return strings.Repeat("*", len(k))
	}
	return k[:4] + strings.Repeat("*", len(k)-8) + k[len(k)-4:]
}

// View is the read-only summary of the state shown to frontends. The API
// key is never included in clear text.
type View struct {
	Mode      selection.Mode `json:"mode"`
	Selected  []string       `json:"selectedModels"`
	Favorites []string       `json:"favorites"`
	Params    params.Params  `json:"params"`
	APIKey    string         `json:"apiKey"`
	HasKey    bool           `json:"hasKey"`
	Messages  int            `json:"messages"`
	Busy      bool           `json:"busy"`
}

// View summarizes the current state.
func (s *Studio) View() View {
	st := s.store.Snapshot()
	key := s.APIKey()

	return View{
		Mode:      st.Mode,
		Selected:  nonNil(st.Selected),
		Favorites: nonNil(st.Favorites),
		Params:    st.Params,
		APIKey:    MaskKey(key),
		HasKey:    key != "",
		Messages:  len(st.Messages),
		Busy:      s.Busy(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Tools exposes the studio operations as tools.
func (s *Studio) Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(
		s.stateTool(),
		s.listModelsTool(),
		s.toggleModelTool(),
		s.setModeTool(),
		s.toggleFavoriteTool(),
		s.setParamsTool(),
		s.sendTool(),
		s.diffTool(),
		s.clearTool(),
	)
	return tb
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Studio) stateTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "studio_state",
		Description: "Show the current mode, selected models, favorites and generation parameters.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
		Handler: func(_ context.Context, _ json.RawMessage) (string, error) {
			return marshal(s.View())
		},
	}
}

func (s *Studio) listModelsTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "list_models",
		Description: "List available models, favorites first. Optionally fuzzy-filter by query or keep only reasoning models.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"},"reasoning":{"type":"boolean"}}}`),
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Query     string `json:"query"`
				Reasoning bool   `json:"reasoning"`
			}
			if err := toolbox.Decode(input, &in); err != nil {
				return "", fmt.Errorf("list_models: %w", err)
			}

			models := s.SearchModels(ctx, in.Query, in.Reasoning)
			if len(models) > maxListedModels {
				models = models[:maxListedModels]
			}

			var b strings.Builder
			for _, m := range models {
				fmt.Fprintf(&b, "%s\t%s\n", m.ID, m.Label())
			}
			if b.Len() == 0 {
				return "no models found", nil
			}
			return b.String(), nil
		},
	}
}

func idInput(input json.RawMessage, tool string) (string, error) {
	var in struct {
		ID string `json:"id"`
	}
	if err := toolbox.Decode(input, &in); err != nil {
		return "", fmt.Errorf("%s: %w", tool, err)
	}
	if in.ID == "" {
		return "", fmt.Errorf("%s: id is required", tool)
	}
	return in.ID, nil
}

func (s *Studio) toggleModelTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "toggle_model",
		Description: "Select or deselect a model by id. In chat mode selecting replaces the current model; in versus and roundtable up to three are kept, dropping the oldest.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			id, err := idInput(input, "toggle_model")
			if err != nil {
				return "", err
			}
			return marshal(s.store.ToggleModel(id))
		},
	}
}

func (s *Studio) setModeTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "set_mode",
		Description: "Switch between chat, versus and roundtable.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"mode":{"type":"string","enum":["chat","versus","roundtable"]}},"required":["mode"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Mode string `json:"mode"`
			}
			if err := toolbox.Decode(input, &in); err != nil {
				return "", fmt.Errorf("set_mode: %w", err)
			}

			m, err := selection.ParseMode(in.Mode)
			if err != nil {
				return "", err
			}
			if err := s.store.SetMode(m); err != nil {
				return "", err
			}
			return marshal(s.View())
		},
	}
}

func (s *Studio) toggleFavoriteTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "toggle_favorite",
		Description: "Add or remove a model from the favorites.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			id, err := idInput(input, "toggle_favorite")
			if err != nil {
				return "", err
			}
			return marshal(s.store.ToggleFavorite(id))
		},
	}
}

func (s *Studio) setParamsTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "set_params",
		Description: "Change generation parameters. Only the given keys change; values outside their range are rejected.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{
			"temperature":{"type":"number","minimum":0,"maximum":2},
			"max_tokens":{"type":"number","minimum":0,"maximum":8000},
			"top_p":{"type":"number","minimum":0,"maximum":2},
			"top_k":{"type":"number","minimum":0,"maximum":100},
			"frequency_penalty":{"type":"number","minimum":-2,"maximum":2},
			"presence_penalty":{"type":"number","minimum":-2,"maximum":2},
			"repetition_penalty":{"type":"number","minimum":-2,"maximum":2}}}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var patch params.Patch
			if err := toolbox.Decode(input, &patch); err != nil {
				return "", fmt.Errorf("set_params: %w", err)
			}

			p, err := s.store.UpdateParams(patch)
			if err != nil {
				return "", err
			}
			return marshal(p)
		},
	}
}

func (s *Studio) sendTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "send",
		Description: "Send a prompt to the selected models using the current mode and return their replies.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Text string `json:"text"`
			}
			if err := toolbox.Decode(input, &in); err != nil {
				return "", fmt.Errorf("send: %w", err)
			}

			var (
				mu      sync.Mutex
				order   []string
				replies = map[string]*strings.Builder{}
			)
			err := s.Send(ctx, in.Text, func(model, delta string) {
				mu.Lock()
				defer mu.Unlock()

				b, ok := replies[model]
				if !ok {
					b = &strings.Builder{}
					replies[model] = b
					order = append(order, model)
				}
				b.WriteString(delta)
			})
			if err != nil {
				return "", err
			}

			var out strings.Builder
			for _, model := range order {
				fmt.Fprintf(&out, "## %s\n\n%s\n\n", model, replies[model].String())
			}
			return strings.TrimSpace(out.String()), nil
		},
	}
}

func (s *Studio) diffTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "diff_replies",
		Description: "Unified diff of the two latest replies from different models.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
		Handler: func(_ context.Context, _ json.RawMessage) (string, error) {
			out, err := s.LatestDiff()
			if err != nil {
				return "", err
			}
			if out == "" {
				return "replies are identical", nil
			}
			return out, nil
		},
	}
}

func (s *Studio) clearTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "clear_chat",
		Description: "Forget the conversation. Settings are kept.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
		Handler: func(_ context.Context, _ json.RawMessage) (string, error) {
			s.store.ClearChat()
			return "cleared", nil
		},
	}
}
