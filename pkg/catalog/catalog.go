// Package catalog holds the list of models offered by the aggregator and
// the sorting and filtering used by model pickers.
package catalog

import (
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Pricing is the per-token price of a model as reported by the API.
type Pricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// Model describes one entry of the model list.
type Model struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	ContextLength int     `json:"context_length,omitempty"`
	Pricing       Pricing `json:"pricing"`
}

// Label returns the display name, falling back to the id.
func (m Model) Label() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// Reasoning reports whether the model looks like a reasoning model.
func (m Model) Reasoning() bool {
	return strings.Contains(m.ID, "reasoning") ||
		strings.Contains(m.ID, "o1") ||
		strings.Contains(m.ID, "r1") ||
		strings.Contains(strings.ToLower(m.Name), "think")
}

// Sort returns a copy of models with favorites first, each group ordered by
// case-insensitive name.
func Sort(models []Model, favorites []string) []Model {
	out := slices.Clone(models)

	slices.SortStableFunc(out, func(a, b Model) int {
		af, bf := slices.Contains(favorites, a.ID), slices.Contains(favorites, b.ID)
		switch {
		case af && !bf:
			return -1
		case !af && bf:
			return 1
		}
		return strings.Compare(strings.ToLower(a.Label()), strings.ToLower(b.Label()))
	})

	return out
}

// source adapts a model slice to fuzzy.Source.
type source []Model

func (s source) String(i int) string {
	return strings.ToLower(s[i].Name + " " + s[i].ID)
}

func (s source) Len() int { return len(s) }

// Filter returns the models matching query, keeping their input order. An
// empty query matches everything. With reasoningOnly set, only reasoning
// models are kept.
func Filter(models []Model, query string, reasoningOnly bool) []Model {
	query = strings.ToLower(strings.TrimSpace(query))

	var hit map[int]bool
	if query != "" {
		matches := fuzzy.FindFrom(query, source(models))
		hit = make(map[int]bool, len(matches))
		for _, m := range matches {
			hit[m.Index] = true
		}
	}

	out := make([]Model, 0, len(models))
	for i, m := range models {
		if hit != nil && !hit[i] {
			continue
		}
		if reasoningOnly && !m.Reasoning() {
			continue
		}
		out = append(out, m)
	}

	return out
}

// Find returns the model with the given id.
func Find(models []Model, id string) (Model, bool) {
	i := slices.IndexFunc(models, func(m Model) bool { return m.ID == id })
	if i < 0 {
		return Model{}, false
	}
	return models[i], true
}
