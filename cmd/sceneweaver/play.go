package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nathoo/sceneweaver/cli"
	"github.com/nathoo/sceneweaver/engine"
	"github.com/nathoo/sceneweaver/loader"
	"github.com/nathoo/sceneweaver/session"
	"github.com/nathoo/sceneweaver/tui"
)

type playOptions struct {
	plain   bool
	trace   bool
	script  string
	start   string
	backend string
	logFile string
}

func playCmd() *cobra.Command {
	opts := &playOptions{}
	cmd := &cobra.Command{
		Use:   "play <game_directory>",
		Short: "Play a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "use the line-oriented interface")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "print stage directions")
	cmd.Flags().StringVar(&opts.script, "script", "", "play input lines from a file (implies --plain)")
	cmd.Flags().StringVar(&opts.start, "start", "", "start at this scene instead of the game's start scene")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "save backend: memory, file, sqlite or postgres")
	cmd.Flags().StringVar(&opts.logFile, "log", "", "write engine logs to this file")
	return cmd
}

func runPlay(cmd *cobra.Command, gameDir string, opts *playOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if opts.start != "" {
		cfg.Start = opts.start
	}
	if opts.backend != "" {
		cfg.Backend = opts.backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	b, err := loader.Load(gameDir)
	if err != nil {
		return fmt.Errorf("loading game: %w", err)
	}

	plain := opts.plain || opts.script != "" || !isTerminal()
	logger, closeLog, err := openLogger(opts.logFile, plain)
	if err != nil {
		b.Close()
		return err
	}
	defer closeLog()

	if !plain {
		return tui.Run(ctx, func(p engine.Presenter) (*session.Session, error) {
			s, err := session.New(ctx, cfg, b, p, logger)
			if err != nil {
				b.Close()
			}
			return s, err
		})
	}

	c := cli.New()
	c.Trace = opts.trace
	if opts.script != "" {
		f, err := os.Open(opts.script)
		if err != nil {
			b.Close()
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c.In = f
		c.EchoInput = true
	}

	s, err := session.New(ctx, cfg, b, c, logger)
	if err != nil {
		b.Close()
		return err
	}
	defer s.Close()

	game := b.Defs.Game
	if game.Title != "" {
		fmt.Fprintf(c.Out, "%s v%s by %s\n\n", game.Title, game.Version, game.Author)
	}
	c.Run(ctx, s)
	return nil
}

// openLogger picks where engine logs go. The TUI owns the terminal, so
// without a log file its logs are dropped.
func openLogger(path string, plain bool) (*log.Logger, func(), error) {
	if path != "" {
		f, err := tea.LogToFile(path, "sceneweaver")
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		return log.Default(), func() { f.Close() }, nil
	}
	if plain {
		return log.New(os.Stderr, "sceneweaver: ", 0), func() {}, nil
	}
	return log.New(io.Discard, "", 0), func() {}, nil
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
