package params

import (
	"fmt"
	"strconv"
)

// Patch is a partial update of a Params value. Nil fields are left alone.
type Patch struct {
	Temperature       *float64 `json:"temperature,omitempty"`
	MaxTokens         *float64 `json:"max_tokens,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	TopK              *float64 `json:"top_k,omitempty"`
	FrequencyPenalty  *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty   *float64 `json:"presence_penalty,omitempty"`
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty"`
}

// Set returns a Patch that changes only k.
func Set(k Key, v float64) (Patch, error) {
	var p Patch
	ptr := p.field(k)
	if ptr == nil {
		return Patch{}, fmt.Errorf("%w: %q", ErrUnknownKey, k)
	}
	*ptr = &v
	return p, nil
}

// ParseSet builds a single-key Patch from textual input such as a slash
// command argument.
func ParseSet(key, value string) (Patch, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Patch{}, fmt.Errorf("params: %s: %w", key, err)
	}
	return Set(Key(key), v)
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	for _, k := range Keys {
		if _, ok := p.get(k); ok {
			return false
		}
	}
	return true
}

func (p Patch) get(k Key) (float64, bool) {
	ptr := p.field(k)
	if ptr == nil || *ptr == nil {
		return 0, false
	}
	return **ptr, true
}

func (p *Patch) field(k Key) **float64 {
	switch k {
	case Temperature:
		return &p.Temperature
	case MaxTokens:
		return &p.MaxTokens
	case TopP:
		return &p.TopP
	case TopK:
		return &p.TopK
	case FrequencyPenalty:
		return &p.FrequencyPenalty
	case PresencePenalty:
		return &p.PresencePenalty
	case RepetitionPenalty:
		return &p.RepetitionPenalty
	}
	return nil
}
