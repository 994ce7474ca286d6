package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/germanamz/studio/pkg/catalog"
	"github.com/germanamz/studio/pkg/store"
)

// deltaMsg carries streamed content for one model.
type deltaMsg struct {
	model string
	delta string
}

// storeEventMsg forwards a store event from the bridge goroutine.
type storeEventMsg struct {
	event store.Event
}

// inputSubmitMsg carries the text the user submitted from the input box.
type inputSubmitMsg struct {
	text string
}

// sendCompleteMsg is returned by the tea.Cmd that calls Studio.Send.
type sendCompleteMsg struct {
	err      error
	duration time.Duration
}

// cancelledMsg reports the outcome of a cancel request.
type cancelledMsg struct {
	running bool
}

// modelsLoadedMsg delivers the model list for the picker.
type modelsLoadedMsg struct {
	models []catalog.Model
}

// programReadyMsg passes the *tea.Program to the model so it can start the bridge.
type programReadyMsg struct {
	program *tea.Program
}

// tickMsg drives the spinner while a send is running.
type tickMsg time.Time
