package catalog_test

import (
	"testing"

	"github.com/germanamz/studio/pkg/catalog"
	"github.com/stretchr/testify/assert"
)

func ids(models []catalog.Model) []string {
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = m.ID
	}
	return out
}

var sample = []catalog.Model{
	{ID: "openai/gpt-4o", Name: "OpenAI: GPT-4o"},
	{ID: "deepseek/deepseek-r1", Name: "DeepSeek: R1"},
	{ID: "anthropic/claude-3.5-sonnet", Name: "Anthropic: Claude 3.5 Sonnet"},
	{ID: "openai/o1-mini", Name: "OpenAI: o1-mini"},
	{ID: "google/gemini-flash-thinking", Name: "Google: Gemini Flash Thinking"},
	{ID: "meta/llama-3", Name: "Meta: Llama 3"},
}

func TestSort_FavoritesFirstThenName(t *testing.T) {
	got := catalog.Sort(sample, []string{"meta/llama-3", "deepseek/deepseek-r1"})

	assert.Equal(t, []string{
		"deepseek/deepseek-r1",
		"meta/llama-3",
		"anthropic/claude-3.5-sonnet",
		"google/gemini-flash-thinking",
		"openai/gpt-4o",
		"openai/o1-mini",
	}, ids(got))
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	before := ids(sample)
	catalog.Sort(sample, nil)
	assert.Equal(t, before, ids(sample))
}

func TestSort_CaseInsensitive(t *testing.T) {
	got := catalog.Sort([]catalog.Model{
		{ID: "b", Name: "beta"},
		{ID: "a", Name: "Alpha"},
	}, nil)
	assert.Equal(t, []string{"a", "b"}, ids(got))
}

func TestFilter_EmptyQuery(t *testing.T) {
	assert.Equal(t, ids(sample), ids(catalog.Filter(sample, "  ", false)))
}

func TestFilter_SubstringOnNameAndID(t *testing.T) {
	assert.Equal(t, []string{"anthropic/claude-3.5-sonnet"}, ids(catalog.Filter(sample, "sonnet", false)))
	assert.Equal(t, []string{"meta/llama-3"}, ids(catalog.Filter(sample, "META", false)))
}

func TestFilter_KeepsInputOrder(t *testing.T) {
	got := catalog.Filter(sample, "mini", false)
	assert.Equal(t, []string{"openai/o1-mini", "google/gemini-flash-thinking"}, ids(got))
}

func TestFilter_Reasoning(t *testing.T) {
	got := catalog.Filter(sample, "", true)
	assert.Equal(t, []string{
		"deepseek/deepseek-r1",
		"openai/o1-mini",
		"google/gemini-flash-thinking",
	}, ids(got))
}

func TestFilter_NoMatch(t *testing.T) {
	got := catalog.Filter(sample, "zzzz", false)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFind(t *testing.T) {
	m, ok := catalog.Find(sample, "meta/llama-3")
	assert.True(t, ok)
	assert.Equal(t, "Meta: Llama 3", m.Label())

	_, ok = catalog.Find(sample, "nope")
	assert.False(t, ok)
}

func TestLabel_FallsBackToID(t *testing.T) {
	assert.Equal(t, "x/y", catalog.Model{ID: "x/y"}.Label())
}
