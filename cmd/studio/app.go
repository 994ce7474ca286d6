package main

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/germanamz/studio/pkg/store"
	"github.com/germanamz/studio/pkg/studio"
)

// appState represents the application state machine.
type appState int

const (
	stateIdle appState = iota
	stateProcessing
	statePicking
)

// initDrainMsg fires after a short delay so that stale terminal responses
// (e.g. OSC 11 background-color replies) are discarded before focusing input.
type initDrainMsg struct{}

// appModel is the root bubbletea model.
type appModel struct {
	ctx          context.Context
	st           *studio.Studio
	program      *tea.Program
	chatView     chatViewModel
	inputBox     inputModel
	picker       pickerModel
	status       statusBarModel
	state        appState
	busy         bool // a send is running, possibly behind the picker
	cancelBridge context.CancelFunc
	width        int
	height       int
	sendStart    time.Time
}

func newAppModel(ctx context.Context, st *studio.Studio) appModel {
	m := appModel{
		ctx:      ctx,
		st:       st,
		chatView: newChatView(),
		inputBox: newInput(),
		picker:   newPicker(),
		state:    stateIdle,
	}
	m.refreshView()
	return m
}

// refreshView re-reads the studio summary shown by the status bar and the
// input placeholder.
func (m *appModel) refreshView() {
	m.status.view = m.st.View()
	m.inputBox.setContext(m.status.view)
}

func (m appModel) Init() tea.Cmd {
	// Delay focusing the input so that stale terminal escape-sequence
	// responses are drained first.
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return initDrainMsg{}
	})
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case initDrainMsg:
		cmd := m.inputBox.enable()
		return m, cmd

	case programReadyMsg:
		m.program = msg.program
		m.cancelBridge = startBridge(m.ctx, msg.program, m.st.Store())
		return m, nil

	case inputSubmitMsg:
		return m.handleSubmit(msg)

	case deltaMsg:
		m.chatView.addDelta(msg.model, msg.delta)
		return m, nil

	case sendCompleteMsg:
		m.busy = false
		if m.state == stateProcessing {
			m.state = stateIdle
		}
		m.status.elapsed = 0
		m.refreshView()

		if msg.err != nil {
			m.chatView.finish(nil)
			return m, tea.Println(renderError(msg.err))
		}
		return m, m.chatView.finish(m.st.Store().Messages())

	case cancelledMsg:
		if msg.running {
			return m, tea.Println(dimStyle.Render("cancelled"))
		}
		return m, nil

	case storeEventMsg:
		m.refreshView()
		s := m.st.Store().Settings()
		m.picker.setSettings(s.Selected, s.Favorites)
		if msg.event.Kind == store.EventChatCleared {
			m.chatView.finish(nil)
		}
		return m, nil

	case modelsLoadedMsg:
		m.picker.setModels(msg.models)
		return m, nil

	case tickMsg:
		if m.busy {
			m.chatView.advanceSpinner()
			m.status.elapsed = time.Since(m.sendStart)
			return m, tickCmd()
		}
		return m, nil
	}

	if m.state == statePicking {
		var cmd tea.Cmd
		m.picker.query, cmd = m.picker.query.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.inputBox, cmd = m.inputBox.Update(msg)
	return m, cmd
}

func (m appModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var parts []string

	if live := m.chatView.View(); live != "" {
		parts = append(parts, live)
	}

	if m.state == statePicking {
		parts = append(parts, m.picker.View())
	} else {
		parts = append(parts, m.inputBox.View())
	}

	parts = append(parts, m.status.View())

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *appModel) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	initMarkdownRenderer(m.width - 4)
	m.inputBox.setWidth(m.width)
	m.picker.width = m.width
	m.status.width = m.width

	chatHeight := max(m.height-m.inputBox.viewHeight()-1, 4)
	m.chatView.setSize(m.width, chatHeight)

	return m, nil
}

func (m *appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+C always quits.
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.state == statePicking {
		return m.handlePickerKey(msg)
	}

	switch msg.Type {
	case tea.KeyEsc:
		if m.busy {
			return m, m.cancelCmd()
		}
		return m, nil
	case tea.KeyCtrlO:
		return m, m.openPicker()
	}

	var cmd tea.Cmd
	m.inputBox, cmd = m.inputBox.Update(msg)
	return m, cmd
}

func (m *appModel) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action, cmd := m.picker.handleKey(msg)

	switch action {
	case pickerClose:
		m.state = stateIdle
		if m.busy {
			m.state = stateProcessing
		}
		return m, m.inputBox.enable()

	case pickerToggle:
		if model, ok := m.picker.current(); ok {
			m.st.Store().ToggleModel(model.ID)
		}

	case pickerFavorite:
		if model, ok := m.picker.current(); ok {
			m.st.Store().ToggleFavorite(model.ID)
		}
	}

	return m, cmd
}

// openPicker shows the model picker and loads the model list in the
// background.
func (m *appModel) openPicker() tea.Cmd {
	s := m.st.Store().Settings()
	m.state = statePicking
	m.inputBox.disable()
	focus := m.picker.open(s.Selected, s.Favorites)

	st, ctx := m.st, m.ctx
	load := func() tea.Msg {
		return modelsLoadedMsg{models: st.Models(ctx)}
	}

	return tea.Batch(focus, load)
}

// cancelCmd cancels the running send off the event loop: Studio.Cancel
// waits for in-flight deliveries, which may themselves be waiting on
// program.Send.
func (m *appModel) cancelCmd() tea.Cmd {
	st := m.st
	return func() tea.Msg {
		return cancelledMsg{running: st.Cancel()}
	}
}

func (m *appModel) handleSubmit(msg inputSubmitMsg) (tea.Model, tea.Cmd) {
	text := msg.text

	if text[0] == '/' {
		res, err := execCommand(m.st, text)
		if err != nil {
			return m, tea.Println(renderError(err))
		}

		switch {
		case res.quit:
			return m, tea.Quit
		case res.openPicker:
			return m, m.openPicker()
		}

		m.refreshView()
		if res.output == "" {
			return m, nil
		}
		return m, tea.Println(res.output)
	}

	if m.busy {
		return m, tea.Println(renderError(studio.ErrBusy))
	}

	st := m.st
	s := st.Store().Settings()
	if len(s.Selected) == 0 {
		return m, tea.Println(renderError(errors.New("no model selected (use /models or ctrl+o)")))
	}
	if st.APIKey() == "" {
		return m, tea.Println(renderError(errors.New("no API key (run 'studio key' or set OPENROUTER_API_KEY)")))
	}

	m.busy = true
	m.state = stateProcessing
	m.sendStart = time.Now()
	m.chatView.begin(s.Selected)

	p, ctx, start := m.program, m.ctx, m.sendStart
	sendCmd := func() tea.Msg {
		err := st.Send(ctx, text, func(model, delta string) {
			if p != nil {
				p.Send(deltaMsg{model: model, delta: delta})
			}
		})
		return sendCompleteMsg{err: err, duration: time.Since(start)}
	}

	return m, tea.Batch(tea.Println("\n"+renderUserMessage(text)), sendCmd, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
