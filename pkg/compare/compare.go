// Package compare contrasts replies of different models to the same prompt.
package compare

import (
	"errors"
	"fmt"
	"strings"

	"github.com/germanamz/studio/pkg/chats/message"
	"github.com/germanamz/studio/pkg/chats/role"
	"github.com/pmezard/go-difflib/difflib"
)

// ErrNoPair is returned when there are not two replies to compare.
var ErrNoPair = errors.New("compare: need replies from two models")

// Reply is one model's answer.
type Reply struct {
	Model   string
	Content string
}

// FromMessage converts an assistant message into a Reply.
func FromMessage(m message.Message) Reply {
	return Reply{Model: m.ModelName, Content: m.Content}
}

// Diff returns a unified diff from a to b labelled with the model names.
// Equal replies produce an empty string.
func Diff(a, b Reply, context int) (string, error) {
	if context < 0 {
		context = 0
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(ensureNewline(a.Content)),
		B:        difflib.SplitLines(ensureNewline(b.Content)),
		FromFile: a.Model,
		ToFile:   b.Model,
		Context:  context,
	}

	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("compare: diff: %w", err)
	}

	return out, nil
}

// Similarity returns a word-level similarity ratio in [0, 1].
func Similarity(a, b Reply) float64 {
	m := difflib.NewMatcher(strings.Fields(a.Content), strings.Fields(b.Content))
	return m.Ratio()
}

// LatestPair finds the two most recent replies from different models after
// the last user message, oldest first.
func LatestPair(msgs []message.Message) (Reply, Reply, error) {
	start := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == role.User {
			start = i + 1
			break
		}
	}

	var later *message.Message
	for i := len(msgs) - 1; i >= start; i-- {
		m := msgs[i]
		if m.Role != role.Assistant {
			continue
		}
		if later == nil {
			later = &msgs[i]
			continue
		}
		if m.ModelName != later.ModelName {
			return FromMessage(m), FromMessage(*later), nil
		}
	}

	return Reply{}, Reply{}, ErrNoPair
}

// difflib.SplitLines leaves a final line without its newline, which
// renders as a glued "-a+b" pair when only the last line differs.
func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
