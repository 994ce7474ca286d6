package selection

import (
	"errors"
	"fmt"
)

// ErrUnknownMode is returned when a mode string is not recognized.
var ErrUnknownMode = errors.New("selection: unknown mode")

// Mode is the interaction pattern of a conversation.
type Mode string

const (
	Chat       Mode = "chat"
	Versus     Mode = "versus"
	Roundtable Mode = "roundtable"
)

// Modes lists every mode in display order.
var Modes = []Mode{Chat, Versus, Roundtable}

// Limit returns the maximum number of models that may be selected in m.
// Unknown modes are treated like chat.
func (m Mode) Limit() int {
	switch m {
	case Versus, Roundtable:
		return 3
	default:
		return 1
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case Chat, Versus, Roundtable:
		return true
	}
	return false
}

func (m Mode) String() string { return string(m) }

// ParseMode converts s into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}
