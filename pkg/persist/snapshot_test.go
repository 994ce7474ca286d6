package persist_test

import (
	"encoding/json"
	"testing"

	"github.com/germanamz/studio/pkg/chats/message"
	"github.com/germanamz/studio/pkg/chats/role"
	"github.com/germanamz/studio/pkg/params"
	"github.com/germanamz/studio/pkg/persist"
	"github.com/germanamz/studio/pkg/selection"
	"github.com/germanamz/studio/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromState_ExactKeys(t *testing.T) {
	s := store.New()
	s.SetAPIKey("sk")
	s.AddMessage(message.New(role.User, "secret conversation"))

	data, err := persist.FromState(s.Snapshot()).Encode()
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"apiKey", "params", "mode", "favorites", "selectedModels"}, keys)
	assert.NotContains(t, string(data), "secret conversation")
	assert.JSONEq(t, `[]`, string(m["selectedModels"]))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := persist.Snapshot{
		APIKey:         "sk-1",
		Params:         params.Defaults(),
		Mode:           selection.Versus,
		Favorites:      []string{"f1", "f2"},
		SelectedModels: []string{"a", "b"},
	}

	data, err := in.Encode()
	require.NoError(t, err)

	out, fix, err := persist.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.True(t, fix.Empty())
}

func TestDecode_Lenient(t *testing.T) {
	out, fix, err := persist.Decode([]byte(`{
		"apiKey": "k",
		"params": {"temperature": 1.3, "top_k": 5000},
		"mode": "freestyle",
		"favorites": ["x", "x", ""],
		"selectedModels": ["a", "b", "c"]
	}`))
	require.NoError(t, err)

	assert.Equal(t, selection.Chat, out.Mode)
	assert.Equal(t, []string{"a"}, out.SelectedModels)
	assert.Equal(t, []string{"x"}, out.Favorites)
	assert.InDelta(t, 1.3, out.Params.Temperature, 1e-9)
	assert.Equal(t, 0, out.Params.TopK)
	assert.Equal(t, 4096, out.Params.MaxTokens)
	assert.Equal(t, "freestyle", fix.UnknownMode)
	assert.Equal(t, []params.Key{params.TopK}, fix.SkippedParams)
}

func TestDecode_Envelope(t *testing.T) {
	out, _, err := persist.Decode([]byte(`{"state":{"apiKey":"k","mode":"roundtable","selectedModels":["a","b","c","d"]},"version":0}`))
	require.NoError(t, err)

	assert.Equal(t, "k", out.APIKey)
	assert.Equal(t, selection.Roundtable, out.Mode)
	assert.Equal(t, []string{"a", "b", "c"}, out.SelectedModels)
	assert.Equal(t, params.Defaults(), out.Params)
}

func TestDecode_Empty(t *testing.T) {
	out, _, err := persist.Decode([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, persist.Default(), out)
}

func TestDecode_Garbage(t *testing.T) {
	_, _, err := persist.Decode([]byte("{nope"))
	require.Error(t, err)
}

func TestSettings_RestoresIntoStore(t *testing.T) {
	snap := persist.Snapshot{
		APIKey:         "k",
		Params:         params.Defaults(),
		Mode:           selection.Versus,
		Favorites:      []string{"f"},
		SelectedModels: []string{"a", "b"},
	}

	s := store.New()
	s.Restore(snap.Settings())

	assert.Equal(t, snap, persist.FromState(s.Snapshot()))
}
