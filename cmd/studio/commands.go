package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/germanamz/studio/pkg/studio"
	"github.com/germanamz/studio/pkg/tools/mcpserver"
	"github.com/germanamz/studio/pkg/web"
	"golang.org/x/term"
)

const mcpInstructions = "Tools to drive a multi-model chat studio on OpenRouter. " +
	"Pick models with toggle_model, choose a mode with set_mode, then call send."

func runKey(args []string) error {
	fs := flag.NewFlagSet("key", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: studio key [flags]\n\nStore the OpenRouter API key in the local state file.\nAn empty key removes it.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	var o options
	o.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := readKey()
	if err != nil {
		return err
	}

	st, closeLog, err := o.open(false)
	if err != nil {
		return err
	}
	defer closeLog()

	st.Store().SetAPIKey(key)
	if err := st.Close(); err != nil {
		return err
	}

	if key == "" {
		fmt.Println("API key removed")
	} else {
		fmt.Printf("API key stored (%s)\n", studio.MaskKey(key))
	}
	return nil
}

// readKey reads the key without echo when stdin is a terminal, or the first
// line of stdin otherwise.
func readKey() (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int

	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "OpenRouter API key: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runModels(args []string) error {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: studio models [flags]\n\nList the models OpenRouter offers, favorites first.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	var o options
	o.register(fs)
	query := fs.String("q", "", "fuzzy search on name and id")
	reasoning := fs.Bool("reasoning", false, "only reasoning models")
	refresh := fs.Bool("refresh", false, "fetch the list even when a cached copy exists")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, closeLog, err := o.open(false)
	if err != nil {
		return err
	}
	defer closeLog()
	defer func() { _ = st.Close() }()

	if *refresh {
		st.RefreshModels(ctx)
	}

	models := st.SearchModels(ctx, *query, *reasoning)
	if len(models) == 0 {
		fmt.Println("no models found")
		return nil
	}

	favs := st.Store().Settings().Favorites
	w := bufio.NewWriter(os.Stdout)
	for _, m := range models {
		star := " "
		if slices.Contains(favs, m.ID) {
			star = "*"
		}
		fmt.Fprintf(w, "%s %-50s %s\n", star, m.ID, m.Label())
	}
	return w.Flush()
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: studio serve [flags]\n\nServe the JSON and websocket API.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	var o options
	o.register(fs)
	listen := fs.String("listen", "", "listen address (overrides the config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, closeLog, err := o.open(false)
	if err != nil {
		return err
	}
	defer closeLog()
	defer func() { _ = st.Close() }()

	addr := st.Config().Listen
	if *listen != "" {
		addr = *listen
	}

	return web.New(st, nil).ListenAndServe(ctx, addr)
}

func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: studio mcp [flags]\n\nServe studio tools over the Model Context Protocol on stdio.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	var o options
	o.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Stdout carries the protocol, so logs go to the file.
	st, closeLog, err := o.open(true)
	if err != nil {
		return err
	}
	defer closeLog()
	defer func() { _ = st.Close() }()

	srv := mcpserver.New("studio", version, mcpInstructions)
	srv.RegisterToolBox(st.Tools())

	return srv.ServeStdio(ctx)
}
