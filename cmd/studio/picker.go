package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/germanamz/studio/pkg/catalog"
)

const pickerRows = 12

// pickerAction is what a key press in the picker asks the app to do.
type pickerAction int

const (
	pickerNone pickerAction = iota
	pickerToggle
	pickerFavorite
	pickerClose
)

// pickerModel is the model browser: a fuzzy query over the catalog with
// favorites listed first and an optional reasoning-only filter.
type pickerModel struct {
	query     textinput.Model
	models    []catalog.Model // sorted, unfiltered
	visible   []catalog.Model
	selected  []string
	favorites []string
	reasoning bool
	loading   bool
	cursor    int
	offset    int
	width     int
}

func newPicker() pickerModel {
	ti := textinput.New()
	ti.Placeholder = "search models"
	ti.Prompt = "> "
	ti.CharLimit = 100

	return pickerModel{query: ti, loading: true}
}

func (p *pickerModel) open(selected, favorites []string) tea.Cmd {
	p.selected = selected
	p.favorites = favorites
	p.cursor = 0
	p.offset = 0
	p.query.SetValue("")
	return p.query.Focus()
}

func (p *pickerModel) setModels(models []catalog.Model) {
	p.loading = false
	p.models = catalog.Sort(models, p.favorites)
	p.refilter()
}

// setSettings refreshes the selection and favorites after a store change,
// keeping the cursor on the same model.
func (p *pickerModel) setSettings(selected, favorites []string) {
	p.selected = selected
	if slices.Equal(p.favorites, favorites) {
		return
	}

	current, hasCurrent := p.current()
	p.favorites = favorites
	p.models = catalog.Sort(p.models, favorites)
	p.refilter()

	if hasCurrent {
		for i, m := range p.visible {
			if m.ID == current.ID {
				p.cursor = i
				p.scroll()
				break
			}
		}
	}
}

func (p *pickerModel) refilter() {
	p.visible = catalog.Filter(p.models, p.query.Value(), p.reasoning)
	p.cursor = min(p.cursor, max(len(p.visible)-1, 0))
	p.scroll()
}

func (p *pickerModel) scroll() {
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+pickerRows {
		p.offset = p.cursor - pickerRows + 1
	}
}

func (p pickerModel) current() (catalog.Model, bool) {
	if p.cursor < 0 || p.cursor >= len(p.visible) {
		return catalog.Model{}, false
	}
	return p.visible[p.cursor], true
}

// handleKey updates the picker and reports what the app should do with the
// model under the cursor.
func (p *pickerModel) handleKey(msg tea.KeyMsg) (pickerAction, tea.Cmd) {
	switch msg.String() {
	case "esc":
		p.query.Blur()
		return pickerClose, nil
	case "up", "ctrl+p":
		if p.cursor > 0 {
			p.cursor--
			p.scroll()
		}
		return pickerNone, nil
	case "down", "ctrl+n":
		if p.cursor < len(p.visible)-1 {
			p.cursor++
			p.scroll()
		}
		return pickerNone, nil
	case "enter", "tab":
		return pickerToggle, nil
	case "ctrl+f":
		return pickerFavorite, nil
	case "ctrl+r":
		p.reasoning = !p.reasoning
		p.refilter()
		return pickerNone, nil
	}

	prev := p.query.Value()
	var cmd tea.Cmd
	p.query, cmd = p.query.Update(msg)
	if p.query.Value() != prev {
		p.cursor = 0
		p.offset = 0
		p.refilter()
	}
	return pickerNone, cmd
}

func (p pickerModel) View() string {
	var sb strings.Builder
	width := max(p.width-6, 20)

	filter := "all models"
	if p.reasoning {
		filter = "reasoning only"
	}
	fmt.Fprintf(&sb, "%s  %s\n", p.query.View(), dimStyle.Render(fmt.Sprintf("[%s · %d/%d]", filter, len(p.visible), len(p.models))))

	switch {
	case p.loading:
		sb.WriteString(dimStyle.Render("loading models...") + "\n")
	case len(p.visible) == 0:
		sb.WriteString(dimStyle.Render("no models found") + "\n")
	}

	end := min(p.offset+pickerRows, len(p.visible))
	for i := p.offset; i < end; i++ {
		sb.WriteString(p.row(i, width) + "\n")
	}

	sb.WriteString(dimStyle.Render("enter select · ctrl+f favorite · ctrl+r reasoning · esc close"))

	return pickerBorderStyle.Width(width + 2).Render(sb.String())
}

func (p pickerModel) row(i, width int) string {
	m := p.visible[i]

	cursor := "  "
	if i == p.cursor {
		cursor = pickerCursorStyle.Render("> ")
	}

	check := "[ ]"
	if slices.Contains(p.selected, m.ID) {
		check = pickerSelectedStyle.Render("[x]")
	}

	star := " "
	if slices.Contains(p.favorites, m.ID) {
		star = favoriteStyle.Render("*")
	}

	label := truncate(m.Label(), width/2)
	id := dimStyle.Render(truncate(m.ID, max(width-width/2-10, 8)))

	return fmt.Sprintf("%s%s %s %s  %s", cursor, check, star, label, id)
}
