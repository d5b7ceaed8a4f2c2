// Package cli provides a line-oriented host for SceneWeaver sessions: it
// renders dialogue and choices as plain text and dispatches meta-commands.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nathoo/sceneweaver/engine"
	"github.com/nathoo/sceneweaver/engine/save"
	"github.com/nathoo/sceneweaver/session"
)

// CLI handles terminal interaction with the player. It is also the
// session's presenter; create it first and hand it to session.New.
type CLI struct {
	In        io.Reader
	Out       io.Writer
	Trace     bool
	EchoInput bool // echo each input line after the prompt (for script playback)

	mu    sync.Mutex
	menus []engine.Menu
	shown bool // whether the current menus have been listed
}

// New creates a CLI on stdin and stdout.
func New() *CLI {
	return &CLI{In: os.Stdin, Out: os.Stdout}
}

// Run starts the session and loops: settle, prompt, input, dispatch. Plain
// Enter continues the dialogue, a number picks an option.
func (c *CLI) Run(ctx context.Context, s *session.Session) {
	game := s.Engine.Defs.Game
	if game.Intro != "" {
		c.printLine(game.Intro)
		c.printLine("")
	}

	s.Start(ctx)
	c.settle(ctx, s)

	scanner := bufio.NewScanner(c.In)
	for {
		if c.finished(s) {
			c.printSystem("The End.")
			return
		}
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			if c.handleMeta(ctx, s, input) {
				return // /quit
			}
			c.settle(ctx, s)
			continue
		}

		c.handleInput(s, input)
		c.settle(ctx, s)
	}
}

// handleInput advances the dialogue or activates a numbered option.
func (c *CLI) handleInput(s *session.Session, input string) {
	if input == "" || input == "." {
		if !s.Engine.Interact() {
			c.printSystem("Nothing to continue. Pick an option by number.")
		}
		return
	}

	n, err := strconv.Atoi(input)
	if err != nil {
		c.printSystem(fmt.Sprintf("Unknown input: %s. Type /help for available commands.", input))
		return
	}
	activate, ok := c.option(n)
	if !ok {
		c.printSystem(fmt.Sprintf("No option %d.", n))
		return
	}
	activate()
}

// settle waits until the session needs input, then lists open options.
func (c *CLI) settle(ctx context.Context, s *session.Session) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := s.Engine.WaitIdle(ctx); err != nil {
		c.printSystem(fmt.Sprintf("Still running: %v", err))
	}
	c.listMenus()
}

// finished reports whether nothing is left to do: no path runs and no
// scene menu is open.
func (c *CLI) finished(s *session.Session) bool {
	if s.Engine.Running() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.menus {
		if !m.Global {
			return false
		}
	}
	return true
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(ctx context.Context, s *session.Session, input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(ctx, s, arg)

	case "/load":
		c.cmdLoad(ctx, s, arg)

	case "/slots":
		c.cmdSlots(ctx, s)

	case "/delete":
		c.cmdDelete(ctx, s, arg)

	case "/vars":
		c.cmdVars(s)

	case "/history":
		c.cmdHistory(s)

	case "/help":
		c.cmdHelp()

	case "/trace":
		c.mu.Lock()
		c.Trace = !c.Trace
		on := c.Trace
		c.mu.Unlock()
		if on {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdSave(ctx context.Context, s *session.Session, slot string) {
	if slot == "" {
		slot = save.DefaultSlot
	}
	if err := s.Saves.SaveToSlot(ctx, slot); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game saved to %s.", slot))
}

func (c *CLI) cmdLoad(ctx context.Context, s *session.Session, slot string) {
	if slot == "" {
		slot = save.DefaultSlot
	}
	if err := s.Saves.LoadFromSlot(ctx, slot); err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game loaded from %s.", slot))
}

func (c *CLI) cmdSlots(ctx context.Context, s *session.Session) {
	slots, err := s.Saves.Slots(ctx)
	if err != nil {
		c.printSystem(fmt.Sprintf("Listing saves failed: %v", err))
		return
	}
	if len(slots) == 0 {
		c.printSystem("No saves.")
		return
	}
	for _, info := range slots {
		c.printLine("  " + FormatSlot(info))
	}
}

func (c *CLI) cmdDelete(ctx context.Context, s *session.Session, slot string) {
	if slot == "" {
		c.printSystem("Usage: /delete <slot>")
		return
	}
	if err := s.Saves.DeleteSlot(ctx, slot); err != nil {
		c.printSystem(fmt.Sprintf("Delete failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Deleted %s.", slot))
}

func (c *CLI) cmdVars(s *session.Session) {
	var vars map[string]any
	var scene string
	s.Engine.Exclusive(func() {
		vars = make(map[string]any, len(s.Engine.State.Variables))
		for k, v := range s.Engine.State.Variables {
			vars[k] = v
		}
		scene = s.Engine.State.CurrentScene
	})

	c.printSystem(fmt.Sprintf("Scene: %s", scene))
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		c.printSystem(fmt.Sprintf("%s = %v", k, vars[k]))
	}
}

func (c *CLI) cmdHistory(s *session.Session) {
	for _, h := range s.Engine.History() {
		c.printLine(formatLine(h.Speaker, h.Text, false))
	}
}

func (c *CLI) cmdHelp() {
	help := []string{
		"Playing:",
		"  <Enter>        Continue",
		"  <number>       Pick an option",
		"",
		"System:",
		"  /save [slot]   Save game (default: " + save.DefaultSlot + ")",
		"  /load [slot]   Load game (default: " + save.DefaultSlot + ")",
		"  /slots         List saves",
		"  /delete <slot> Delete a save",
		"  /vars          Debug: dump variables",
		"  /history       Show the dialogue so far",
		"  /trace         Toggle stage directions",
		"  /help          Show this help",
		"  /quit          Exit game",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

// FormatSlot renders one slot directory entry.
func FormatSlot(info save.SlotInfo) string {
	var b strings.Builder
	b.WriteString(info.Slot)
	if info.Timestamp > 0 {
		b.WriteString("  " + time.UnixMilli(info.Timestamp).Format("2006-01-02 15:04"))
	} else {
		b.WriteString("  (unreadable)")
	}
	if info.SceneID != "" {
		b.WriteString("  scene " + info.SceneID)
	}
	if info.MapID != "" {
		b.WriteString("  map " + info.MapID)
	}
	if info.ActorName != "" {
		b.WriteString("  as " + info.ActorName)
	}
	return b.String()
}

func formatLine(speaker, text string, alt bool) string {
	if alt {
		text = "(" + text + ")"
	}
	if speaker == "" {
		return text
	}
	return speaker + ": " + text
}

func (c *CLI) printLine(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	c.printLine("[" + text + "]")
}

func (c *CLI) printTrace(text string) {
	c.printLine("[trace] " + text)
}

func (c *CLI) tracing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Trace
}
