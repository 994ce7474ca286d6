// Package params defines the generation parameters sent with every
// completion request, together with their valid ranges and step sizes.
// Steps only describe how interactive controls move a value; stored values
// are kept exactly as given.
package params

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned when a parameter value falls outside its range.
var ErrOutOfRange = errors.New("params: value out of range")

// ErrUnknownKey is returned when a parameter name is not recognized.
var ErrUnknownKey = errors.New("params: unknown parameter")

// Key names a generation parameter. The values match the JSON field names
// of the completion request body.
type Key string

const (
	Temperature       Key = "temperature"
	MaxTokens         Key = "max_tokens"
	TopP              Key = "top_p"
	TopK              Key = "top_k"
	FrequencyPenalty  Key = "frequency_penalty"
	PresencePenalty   Key = "presence_penalty"
	RepetitionPenalty Key = "repetition_penalty"
)

// Keys lists every parameter in display order.
var Keys = []Key{Temperature, MaxTokens, TopP, TopK, FrequencyPenalty, PresencePenalty, RepetitionPenalty}

// Range is the inclusive interval and granularity of a parameter.
type Range struct {
	Min  float64
	Max  float64
	Step float64
}

var ranges = map[Key]Range{
	Temperature:       {Min: 0, Max: 2, Step: 0.1},
	MaxTokens:         {Min: 0, Max: 8000, Step: 100},
	TopP:              {Min: 0, Max: 2, Step: 0.1},
	TopK:              {Min: 0, Max: 100, Step: 1},
	FrequencyPenalty:  {Min: -2, Max: 2, Step: 0.1},
	PresencePenalty:   {Min: -2, Max: 2, Step: 0.1},
	RepetitionPenalty: {Min: -2, Max: 2, Step: 0.1},
}

// RangeOf returns the range of k.
func RangeOf(k Key) (Range, bool) {
	r, ok := ranges[k]
	return r, ok
}

// Snap rounds v to the nearest step, measured from Min.
func (r Range) Snap(v float64) float64 {
	if r.Step <= 0 {
		return v
	}
	steps := math.Round((v - r.Min) / r.Step)
	// Round again to drop binary noise such as 0.30000000000000004.
	return math.Round((r.Min+steps*r.Step)*1e6) / 1e6
}

// Nudge moves v by n steps, snapping to the step grid and clamping to the
// range. It is how sliders and "/set <param> +" move a value.
func (r Range) Nudge(v float64, n int) float64 {
	return math.Max(r.Min, math.Min(r.Max, r.Snap(v+float64(n)*r.Step)))
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Params is the full parameter set. Its JSON encoding is spread into the
// completion request body as-is.
type Params struct {
	Temperature       float64 `json:"temperature"`
	MaxTokens         int     `json:"max_tokens"`
	TopP              float64 `json:"top_p"`
	TopK              int     `json:"top_k"`
	FrequencyPenalty  float64 `json:"frequency_penalty"`
	PresencePenalty   float64 `json:"presence_penalty"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
}

// Defaults returns the parameter set used before the user changes anything.
func Defaults() Params {
	return Params{
		Temperature:       0.7,
		MaxTokens:         4096,
		TopP:              1,
		TopK:              0,
		FrequencyPenalty:  0,
		PresencePenalty:   0,
		RepetitionPenalty: 1,
	}
}

// Get returns the value of k as a float.
func (p Params) Get(k Key) (float64, error) {
	switch k {
	case Temperature:
		return p.Temperature, nil
	case MaxTokens:
		return float64(p.MaxTokens), nil
	case TopP:
		return p.TopP, nil
	case TopK:
		return float64(p.TopK), nil
	case FrequencyPenalty:
		return p.FrequencyPenalty, nil
	case PresencePenalty:
		return p.PresencePenalty, nil
	case RepetitionPenalty:
		return p.RepetitionPenalty, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, k)
}

// Validate checks every field against its range.
func (p Params) Validate() error {
	for _, k := range Keys {
		v, _ := p.Get(k)
		if r := ranges[k]; !r.Contains(v) {
			return fmt.Errorf("%w: %s=%g not in [%g, %g]", ErrOutOfRange, k, v, r.Min, r.Max)
		}
	}
	return nil
}

// Merge applies patch on top of p. Only the fields present in the patch
// change. Values are checked against their range but otherwise stored as
// given; if any value is out of range p is returned unchanged with an error.
func (p Params) Merge(patch Patch) (Params, error) {
	next := p
	for _, k := range Keys {
		v, ok := patch.get(k)
		if !ok {
			continue
		}

		r := ranges[k]
		if !r.Contains(v) {
			return p, fmt.Errorf("%w: %s=%g not in [%g, %g]", ErrOutOfRange, k, v, r.Min, r.Max)
		}

		next.set(k, v)
	}
	return next, nil
}

func (p *Params) set(k Key, v float64) {
	switch k {
	case Temperature:
		p.Temperature = v
	case MaxTokens:
		p.MaxTokens = int(math.Round(v))
	case TopP:
		p.TopP = v
	case TopK:
		p.TopK = int(math.Round(v))
	case FrequencyPenalty:
		p.FrequencyPenalty = v
	case PresencePenalty:
		p.PresencePenalty = v
	case RepetitionPenalty:
		p.RepetitionPenalty = v
	}
}

// MergeLenient is Merge for untrusted input: out-of-range fields are skipped
// instead of failing the whole patch. It returns the skipped keys.
func (p Params) MergeLenient(patch Patch) (Params, []Key) {
	var skipped []Key
	for _, k := range Keys {
		v, ok := patch.get(k)
		if !ok {
			continue
		}

		r := ranges[k]
		if !r.Contains(v) {
			skipped = append(skipped, k)
			continue
		}

		p.set(k, v)
	}
	return p, skipped
}
