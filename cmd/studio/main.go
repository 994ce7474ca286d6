package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Handle subcommands before flag parsing.
	if len(os.Args) > 1 {
		var err error
		handled := true

		switch os.Args[1] {
		case "init":
			err = runInit(os.Args[2:])
		case "key":
			err = runKey(os.Args[2:])
		case "models":
			err = runModels(os.Args[2:])
		case "serve":
			err = runServe(os.Args[2:])
		case "mcp":
			err = runMCP(os.Args[2:])
		default:
			handled = false
		}

		if handled {
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: studio [flags]\n       studio <command> [flags]\n\nFlags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n"+
			"  init    Create a .studio directory with a config file\n"+
			"  key     Store the OpenRouter API key\n"+
			"  models  List available models\n"+
			"  serve   Serve the web API\n"+
			"  mcp     Serve studio tools over MCP on stdio\n")
	}

	var o options
	o.register(flag.CommandLine)
	flag.Parse()

	if err := runTUI(o); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(o options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, closeLog, err := o.open(true)
	if err != nil {
		return err
	}
	defer closeLog()
	defer func() { _ = st.Close() }()

	p := tea.NewProgram(newAppModel(ctx, st), tea.WithContext(ctx))

	// Send the program reference so the model can start the bridge.
	go func() {
		p.Send(programReadyMsg{program: p})
	}()

	final, err := p.Run()
	stopBridge(final)
	return err
}

// stopBridge stops the store watcher once the program has exited. The
// program may hand back the model by value or by pointer.
func stopBridge(final tea.Model) {
	var cancel context.CancelFunc
	switch m := final.(type) {
	case appModel:
		cancel = m.cancelBridge
	case *appModel:
		cancel = m.cancelBridge
	}
	if cancel != nil {
		cancel()
	}
}
