// Package main provides an interactive CLI that emits lifecycle events into a
// registry built from a relay config file.
//
//	relaydemo -config relay.yaml
//
// Type "help" at the prompt for the command list.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/rickchristie/relay/config"
	"github.com/rickchristie/relay/observers/stream"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rl, err := readline.New(color.New(color.FgCyan).Sprint("relay> "))
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	st, err := build(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.close(shutdownCtx); err != nil {
			fmt.Fprintln(os.Stderr, color.YellowString("shutdown: %v", err))
		}
	}()

	if st.stream != nil {
		tokens, unsubscribe := st.stream.Subscribe()
		defer unsubscribe()
		go printTokens(out, tokens)
	}

	fmt.Fprintln(out, color.New(color.Bold, color.FgYellow).Sprint("relay demo"))
	fmt.Fprintln(out, color.New(color.Faint).Sprint(`Type "help" for commands, "quit" to leave.`))
	if cfg.Metrics.Addr != "" {
		fmt.Fprintln(out, color.New(color.Faint).Sprintf("Metrics at http://%s/metrics", cfg.Metrics.Addr))
	}

	sess := newSession(st, out, cfg.Verbose)
	for {
		if ctx.Err() != nil {
			fmt.Fprintln(out, color.GreenString("Goodbye!"))
			return nil
		}

		input, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Fprintln(out, color.GreenString("Goodbye!"))
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		err = sess.exec(ctx, input)
		switch {
		case errors.Is(err, errQuit):
			fmt.Fprintln(out, color.GreenString("Goodbye!"))
			return nil
		case err != nil:
			fmt.Fprintln(out, color.RedString("error: %v", err))
		}
	}
}

// printTokens echoes streamed fragments until the subscription closes.
func printTokens(w io.Writer, chunks <-chan stream.Chunk) {
	faint := color.New(color.Faint)
	for chunk := range chunks {
		fmt.Fprintln(w, faint.Sprintf("[stream %s] %q", shortID(chunk.Run.ID.String()), chunk.Token))
	}
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
