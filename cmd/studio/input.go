package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/germanamz/studio/pkg/selection"
	"github.com/germanamz/studio/pkg/studio"
	"github.com/mattn/go-runewidth"
)

const (
	promptMinHeight = 1
	promptMaxHeight = 5
	historyLimit    = 50
)

var (
	promptBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("2"))
	idleBorder   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
)

// slashCommands are the names offered by Tab completion.
var slashCommands = []string{"/clear", "/diff", "/exit", "/fav", "/help", "/mode", "/models", "/params", "/quit", "/set"}

// inputModel is the prompt box. Its placeholder names the models a prompt
// will go to, Tab completes slash commands and Ctrl+P / Ctrl+N walk back
// through earlier prompts.
type inputModel struct {
	textarea textarea.Model
	enabled  bool
	width    int

	history []string
	recall  int // index into history while browsing, len(history) otherwise
	draft   string
	hint    string
}

func newInput() inputModel {
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.SetHeight(promptMinHeight)
	ta.CharLimit = 0
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Prompt = lipgloss.NewStyle()
	ta.BlurredStyle.Prompt = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	m := inputModel{textarea: ta}
	m.setContext(studio.View{Mode: selection.Chat})
	return m
}

// setContext points the placeholder at the current mode and selection.
func (m *inputModel) setContext(v studio.View) {
	m.textarea.Placeholder = placeholderFor(v)
}

func placeholderFor(v studio.View) string {
	switch len(v.Selected) {
	case 0:
		return "Pick a model with Ctrl+O or /models (/help for commands)"
	case 1:
		return fmt.Sprintf("Ask %s...", v.Selected[0])
	}
	return fmt.Sprintf("Ask %d models (%s)...", len(v.Selected), v.Mode)
}

func (m inputModel) Update(msg tea.Msg) (inputModel, tea.Cmd) {
	if !m.enabled {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case keyMsg.Type == tea.KeyEnter && !keyMsg.Alt:
			return m.submit()
		case keyMsg.Type == tea.KeyTab:
			m.complete()
			return m, nil
		case keyMsg.Type == tea.KeyCtrlP:
			m.browse(-1)
			return m, nil
		case keyMsg.Type == tea.KeyCtrlN:
			m.browse(1)
			return m, nil
		}
		m.hint = ""
	}

	// Grow first so the textarea does not scroll its viewport while
	// handling the key, then shrink to the content.
	m.textarea.SetHeight(promptMaxHeight)

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	m.fit()

	return m, cmd
}

func (m inputModel) submit() (inputModel, tea.Cmd) {
	text := strings.TrimSpace(m.textarea.Value())
	if text == "" {
		return m, nil
	}

	if len(m.history) == 0 || m.history[len(m.history)-1] != text {
		m.history = append(m.history, text)
		if len(m.history) > historyLimit {
			m.history = m.history[len(m.history)-historyLimit:]
		}
	}
	m.recall = len(m.history)
	m.draft, m.hint = "", ""

	m.textarea.Reset()
	m.textarea.SetHeight(promptMinHeight)
	return m, func() tea.Msg { return inputSubmitMsg{text: text} }
}

// complete extends a partial slash command. A unique match is completed
// with a trailing space; several matches are listed in the hint line.
func (m *inputModel) complete() {
	text := m.textarea.Value()
	if !strings.HasPrefix(text, "/") || strings.ContainsAny(text, " \n") {
		return
	}

	var matches []string
	for _, c := range slashCommands {
		if strings.HasPrefix(c, text) {
			matches = append(matches, c)
		}
	}

	switch len(matches) {
	case 0:
		m.hint = "no such command"
	case 1:
		m.textarea.SetValue(matches[0] + " ")
		m.hint = ""
	default:
		m.textarea.SetValue(commonPrefix(matches))
		m.hint = strings.Join(matches, "  ")
	}
}

func commonPrefix(words []string) string {
	prefix := slices.Min(words)
	last := slices.Max(words)
	i := 0
	for i < len(prefix) && i < len(last) && prefix[i] == last[i] {
		i++
	}
	return prefix[:i]
}

// browse moves through the prompt history; dir is -1 for older and 1 for
// newer. Moving past the newest entry restores the unsent draft.
func (m *inputModel) browse(dir int) {
	if len(m.history) == 0 {
		return
	}
	if m.recall == len(m.history) {
		m.draft = m.textarea.Value()
	}

	next := min(max(m.recall+dir, 0), len(m.history))
	if next == m.recall {
		return
	}
	m.recall = next

	if next == len(m.history) {
		m.textarea.SetValue(m.draft)
	} else {
		m.textarea.SetValue(m.history[next])
	}
	m.fit()
}

func (m *inputModel) fit() {
	m.textarea.SetHeight(min(max(m.visualLineCount(), promptMinHeight), promptMaxHeight))
}

func (m inputModel) View() string {
	border := promptBorder
	if !m.enabled {
		border = idleBorder
	}

	innerWidth := max(m.width-4, 10)
	m.textarea.SetWidth(innerWidth)

	box := border.Width(innerWidth).Render(m.textarea.View())
	if m.hint == "" {
		return box
	}
	return box + "\n" + dimStyle.Render(truncate(m.hint, max(m.width, 10)))
}

func (m *inputModel) setWidth(w int) {
	m.width = w
	m.textarea.SetWidth(max(w-4, 10))
}

// viewHeight is the height of the box including its border and hint line.
func (m inputModel) viewHeight() int {
	h := min(max(m.visualLineCount(), promptMinHeight), promptMaxHeight) + 2
	if m.hint != "" {
		h++
	}
	return h
}

// visualLineCount counts the lines the text occupies, including soft wraps
// at the textarea width.
func (m inputModel) visualLineCount() int {
	text := m.textarea.Value()
	if text == "" {
		return 1
	}

	wrapWidth := max(m.textarea.Width(), 1)

	total := 0
	for line := range strings.SplitSeq(text, "\n") {
		w := runewidth.StringWidth(line)
		if w == 0 {
			total++
			continue
		}
		total += (w-1)/wrapWidth + 1
	}

	return total
}

func (m *inputModel) enable() tea.Cmd {
	m.enabled = true
	return m.textarea.Focus()
}

func (m *inputModel) disable() {
	m.enabled = false
	m.textarea.Blur()
}
