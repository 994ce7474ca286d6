package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/germanamz/studio/pkg/chats/message"
	"github.com/germanamz/studio/pkg/chats/role"
)

// liveLines caps how much of each streaming reply stays on screen.
const liveLines = 8

// chatViewModel shows the replies that are still streaming. Finished turns
// are printed to the terminal scrollback via tea.Println and are not part of
// this view.
type chatViewModel struct {
	order      []string // models in selection order
	live       map[string]*strings.Builder
	processing bool
	spinnerIdx int
	width      int
	height     int
}

func newChatView() chatViewModel {
	return chatViewModel{live: make(map[string]*strings.Builder)}
}

func (m *chatViewModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

// begin prepares one live block per model.
func (m *chatViewModel) begin(models []string) {
	m.order = append([]string(nil), models...)
	m.live = make(map[string]*strings.Builder, len(models))
	for _, id := range models {
		m.live[id] = &strings.Builder{}
	}
	m.processing = true
}

// addDelta appends streamed content to the model's block. Content for a
// model not announced by begin opens a new block.
func (m *chatViewModel) addDelta(model, delta string) {
	b, ok := m.live[model]
	if !ok {
		b = &strings.Builder{}
		m.live[model] = b
		m.order = append(m.order, model)
	}
	b.WriteString(delta)
}

// content returns what has streamed so far for model.
func (m chatViewModel) content(model string) string {
	if b, ok := m.live[model]; ok {
		return b.String()
	}
	return ""
}

// finish ends the live view and prints the turn's replies to scrollback.
// The replies are the assistant messages after the last user message.
func (m *chatViewModel) finish(msgs []message.Message) tea.Cmd {
	m.processing = false
	m.order = nil
	m.live = make(map[string]*strings.Builder)

	replies := lastTurn(msgs)
	if len(replies) == 0 {
		return nil
	}

	parts := make([]string, 0, len(replies))
	for _, r := range replies {
		parts = append(parts, renderReply(r.ModelName, r.Content))
	}
	return tea.Println("\n" + strings.Join(parts, "\n\n"))
}

func (m *chatViewModel) advanceSpinner() { m.spinnerIdx++ }

// View renders the live blocks, each showing the tail of its reply.
func (m chatViewModel) View() string {
	if !m.processing {
		return ""
	}

	var sb strings.Builder
	frame := spinnerStyle.Render(spinnerFrames[m.spinnerIdx%len(spinnerFrames)])
	width := max(m.width-2, 10)

	for _, model := range m.order {
		text := m.content(model)

		fmt.Fprintf(&sb, "%s %s\n", frame, replyPrefixStyle.Render(truncate(model, width-2)))
		if text == "" {
			sb.WriteString(dimStyle.Render("  waiting...") + "\n")
			continue
		}
		for line := range strings.SplitSeq(tail(text, width-2, liveLines), "\n") {
			sb.WriteString("  " + liveTextStyle.Render(line) + "\n")
		}
	}

	return sb.String()
}

// lastTurn returns the assistant messages after the last user message.
func lastTurn(msgs []message.Message) []message.Message {
	start := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == role.User {
			start = i + 1
			break
		}
	}

	var out []message.Message
	for _, m := range msgs[start:] {
		if m.Role == role.Assistant {
			out = append(out, m)
		}
	}
	return out
}
