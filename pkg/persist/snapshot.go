// Package persist is the serialization boundary for the part of the studio
// state that survives restarts: the API key, parameters, mode, favorites and
// selection. Conversation history is never written.
package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/germanamz/studio/pkg/params"
	"github.com/germanamz/studio/pkg/selection"
	"github.com/germanamz/studio/pkg/store"
)

// Snapshot is the persisted subset in its on-disk shape.
type Snapshot struct {
	APIKey         string         `json:"apiKey"`
	Params         params.Params  `json:"params"`
	Mode           selection.Mode `json:"mode"`
	Favorites      []string       `json:"favorites"`
	SelectedModels []string       `json:"selectedModels"`
}

// FromState extracts the persisted subset of st.
func FromState(st store.State) Snapshot {
	return FromSettings(st.Settings)
}

// FromSettings converts store settings into a Snapshot.
func FromSettings(s store.Settings) Snapshot {
	return Snapshot{
		APIKey:         s.APIKey,
		Params:         s.Params,
		Mode:           s.Mode,
		Favorites:      nonNil(s.Favorites),
		SelectedModels: nonNil(s.Selected),
	}
}

// Settings converts the snapshot for store.Restore.
func (s Snapshot) Settings() store.Settings {
	return store.Settings{
		APIKey:    s.APIKey,
		Mode:      s.Mode,
		Selected:  slices.Clone(s.SelectedModels),
		Favorites: slices.Clone(s.Favorites),
		Params:    s.Params,
	}
}

// Encode renders the snapshot as indented JSON.
func (s Snapshot) Encode() ([]byte, error) {
	s.Favorites = nonNil(s.Favorites)
	s.SelectedModels = nonNil(s.SelectedModels)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("persist: marshal: %w", err)
	}
	return data, nil
}

// wireSnapshot is the lenient decoding shape: params may be partial and
// mode may be anything.
type wireSnapshot struct {
	APIKey         string       `json:"apiKey"`
	Params         params.Patch `json:"params"`
	Mode           string       `json:"mode"`
	Favorites      []string     `json:"favorites"`
	SelectedModels []string     `json:"selectedModels"`
}

// envelope is the layout written by browser state libraries, which wrap
// the persisted fields in {"state": ..., "version": n}.
type envelope struct {
	State   *wireSnapshot `json:"state"`
	Version int           `json:"version"`
}

// Fixups lists what Decode had to correct in its input.
type Fixups struct {
	UnknownMode   string       // Mode that was replaced by chat.
	SkippedParams []params.Key // Out-of-range parameters left at their defaults.
}

// Empty reports whether the input was used as-is.
func (f Fixups) Empty() bool {
	return f.UnknownMode == "" && len(f.SkippedParams) == 0
}

// Decode parses a snapshot. Missing or out-of-range parameters fall back to
// their defaults, an unknown mode becomes chat and the selection is
// normalized for the mode. The corrections are reported in Fixups. Empty
// input yields the default snapshot.
func Decode(data []byte) (Snapshot, Fixups, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Default(), Fixups{}, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Snapshot{}, Fixups{}, fmt.Errorf("persist: parse: %w", err)
	}

	w := env.State
	if w == nil {
		w = &wireSnapshot{}
		if err := json.Unmarshal(trimmed, w); err != nil {
			return Snapshot{}, Fixups{}, fmt.Errorf("persist: parse: %w", err)
		}
	}

	var fix Fixups

	mode, err := selection.ParseMode(w.Mode)
	if err != nil {
		if w.Mode != "" {
			fix.UnknownMode = w.Mode
		}
		mode = selection.Chat
	}

	p, skipped := params.Defaults().MergeLenient(w.Params)
	fix.SkippedParams = skipped

	return Snapshot{
		APIKey:         w.APIKey,
		Params:         p,
		Mode:           mode,
		Favorites:      dedupe(w.Favorites),
		SelectedModels: selection.Normalize(w.SelectedModels, mode),
	}, fix, nil
}

// Default is the snapshot of a fresh studio.
func Default() Snapshot {
	return Snapshot{
		Params:         params.Defaults(),
		Mode:           selection.Chat,
		Favorites:      []string{},
		SelectedModels: []string{},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
