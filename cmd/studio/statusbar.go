package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/germanamz/studio/pkg/studio"
)

// statusBarModel shows the mode, the selected models, a few parameters and
// the elapsed time of a running send.
type statusBarModel struct {
	view    studio.View
	elapsed time.Duration
	width   int
}

func (m statusBarModel) View() string {
	models := "no model selected"
	if len(m.view.Selected) > 0 {
		models = strings.Join(m.view.Selected, ", ")
	}

	key := "key: set"
	if !m.view.HasKey {
		key = "key: missing (studio key)"
	}

	right := fmt.Sprintf(" · temp %.1f · max %d · %s", m.view.Params.Temperature, m.view.Params.MaxTokens, key)
	if m.elapsed > 0 {
		right += " · " + fmtDuration(m.elapsed)
	}

	left := " " + modeStyle.Render(string(m.view.Mode)) + " "
	budget := max(m.width-len(string(m.view.Mode))-2-len([]rune(right)), 10)

	return left + statusStyle.Render(truncate(models, budget)+right)
}
