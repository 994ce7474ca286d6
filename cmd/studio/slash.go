package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/germanamz/studio/pkg/compare"
	"github.com/germanamz/studio/pkg/params"
	"github.com/germanamz/studio/pkg/selection"
	"github.com/germanamz/studio/pkg/studio"
)

// errUnknownCommand is returned for slash commands that do not exist.
var errUnknownCommand = errors.New("unknown command (try /help)")

// commandResult is the outcome of a slash command.
type commandResult struct {
	output     string // printed to scrollback when non-empty
	quit       bool
	openPicker bool
}

// execCommand runs a slash command against st. Commands that need the UI,
// such as opening the model picker, are reported through the result.
func execCommand(st *studio.Studio, line string) (commandResult, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return commandResult{}, errUnknownCommand
	}
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/exit":
		return commandResult{quit: true}, nil

	case "/help":
		return commandResult{output: helpText()}, nil

	case "/models":
		return commandResult{openPicker: true}, nil

	case "/mode":
		return cmdMode(st, args)

	case "/fav":
		if len(args) != 1 {
			return commandResult{}, errors.New("usage: /fav <model id>")
		}
		favs := st.Store().ToggleFavorite(args[0])
		state := "removed from"
		if slices.Contains(favs, args[0]) {
			state = "added to"
		}
		return commandResult{output: fmt.Sprintf("%s %s favorites", args[0], state)}, nil

	case "/set":
		return cmdSet(st, args)

	case "/params":
		return commandResult{output: paramsText(st.Store().Settings().Params)}, nil

	case "/diff":
		return cmdDiff(st)

	case "/clear":
		st.Store().ClearChat()
		return commandResult{output: "chat cleared"}, nil
	}

	return commandResult{}, fmt.Errorf("%s: %w", name, errUnknownCommand)
}

// cmdSet changes one parameter. A value of "+" or "-" moves it one step.
func cmdSet(st *studio.Studio, args []string) (commandResult, error) {
	if len(args) != 2 {
		return commandResult{}, errors.New("usage: /set <param> <value|+|->")
	}
	key := params.Key(args[0])

	var (
		patch params.Patch
		err   error
	)
	switch args[1] {
	case "+", "-":
		r, ok := params.RangeOf(key)
		if !ok {
			return commandResult{}, fmt.Errorf("%w: %q", params.ErrUnknownKey, key)
		}
		cur, _ := st.Store().Settings().Params.Get(key)
		n := 1
		if args[1] == "-" {
			n = -1
		}
		patch, err = params.Set(key, r.Nudge(cur, n))
	default:
		patch, err = params.ParseSet(args[0], args[1])
	}
	if err != nil {
		return commandResult{}, err
	}

	p, err := st.Store().UpdateParams(patch)
	if err != nil {
		return commandResult{}, err
	}
	v, _ := p.Get(key)
	return commandResult{output: fmt.Sprintf("%s = %s", key, fmtParam(v))}, nil
}

// cmdMode switches to the named mode, or to the next one without argument.
func cmdMode(st *studio.Studio, args []string) (commandResult, error) {
	current := st.Store().Settings().Mode

	var next selection.Mode
	switch len(args) {
	case 0:
		i := slices.Index(selection.Modes, current)
		next = selection.Modes[(i+1)%len(selection.Modes)]
	case 1:
		m, err := selection.ParseMode(args[0])
		if err != nil {
			return commandResult{}, err
		}
		next = m
	default:
		return commandResult{}, errors.New("usage: /mode [chat|versus|roundtable]")
	}

	if err := st.Store().SetMode(next); err != nil {
		return commandResult{}, err
	}

	out := fmt.Sprintf("mode: %s (up to %d models)", next, next.Limit())
	if sel := st.Store().Settings().Selected; len(sel) > 0 {
		out += "\nselected: " + strings.Join(sel, ", ")
	}
	return commandResult{output: out}, nil
}

func cmdDiff(st *studio.Studio) (commandResult, error) {
	a, b, err := compare.LatestPair(st.Store().Messages())
	if err != nil {
		return commandResult{}, err
	}

	diff, err := st.LatestDiff()
	if err != nil {
		return commandResult{}, err
	}
	if diff == "" {
		return commandResult{output: fmt.Sprintf("%s and %s gave identical replies", a.Model, b.Model)}, nil
	}

	header := fmt.Sprintf("%s vs %s · %.0f%% similar", a.Model, b.Model, compare.Similarity(a, b)*100)
	return commandResult{output: header + "\n" + renderDiff(diff)}, nil
}

func paramsText(p params.Params) string {
	var sb strings.Builder
	for i, k := range params.Keys {
		v, _ := p.Get(k)
		r, _ := params.RangeOf(k)
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%-19s %-6s [%s..%s] step %s", k, fmtParam(v), fmtParam(r.Min), fmtParam(r.Max), fmtParam(r.Step))
	}
	return sb.String()
}

func fmtParam(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func helpText() string {
	return dimStyle.Render("Commands:\n" +
		"  /mode [name]          Switch mode (chat, versus, roundtable); cycles without a name\n" +
		"  /models               Open the model picker\n" +
		"  /fav <id>             Toggle a favorite model\n" +
		"  /set <param> <value>  Change a generation parameter (+ or - moves one step)\n" +
		"  /params               Show the generation parameters\n" +
		"  /diff                 Diff the two latest replies from different models\n" +
		"  /clear                Clear the conversation\n" +
		"  /help                 Show this help message\n" +
		"  /quit                 Exit\n\n" +
		"Shortcuts:\n" +
		"  Enter                 Send\n" +
		"  Alt+Enter             New line\n" +
		"  Escape                Cancel the running send / close the picker\n" +
		"  Tab                   Complete a slash command\n" +
		"  Ctrl+P / Ctrl+N       Previous / next prompt\n" +
		"  Ctrl+O                Open the model picker\n" +
		"  Ctrl+C                Exit")
}
