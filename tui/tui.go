package tui

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/sceneweaver/engine"
	"github.com/nathoo/sceneweaver/engine/choice"
	"github.com/nathoo/sceneweaver/engine/save"
	"github.com/nathoo/sceneweaver/session"
	"github.com/nathoo/sceneweaver/types"
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text    string
	kind    lineKind
	isInput bool // true for echoed player input
}

// Model is the Bubble Tea model for a SceneWeaver session.
type Model struct {
	ctx     context.Context
	session *session.Session
	title   string

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated narrative lines (unstyled, for re-wrapping)
	menus    []engine.Menu
	stage    map[string]string // on-stage actor -> position
	scene    string
	bg       string
	music    string

	width    int
	height   int
	ready    bool
	trace    bool
	ended    bool
	quitting bool
}

// idleMsg reports that every execution path is finished or waiting.
type idleMsg struct{}

// metaResultMsg carries the output of a meta-command run off the Update loop.
type metaResultMsg struct {
	lines []string
}

// New creates a TUI model for s.
func New(ctx context.Context, s *session.Session) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Enter to continue, a number to choose"
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	game := s.Engine.Defs.Game
	m := Model{
		ctx:     ctx,
		session: s,
		title:   game.Title,
		input:   ti,
		history: NewHistory(100),
		stage:   make(map[string]string),
	}
	if game.Title != "" {
		m.rawLines = append(m.rawLines, rawLine{text: game.Title, kind: kindSystem}, rawLine{})
	}
	if game.Intro != "" {
		m.rawLines = append(m.rawLines, rawLine{text: game.Intro}, rawLine{})
	}
	return m
}

// Run plays a session in the terminal. open builds the session around the
// presenter it is given.
func Run(ctx context.Context, open func(engine.Presenter) (*session.Session, error)) error {
	b := NewBridge()
	s, err := open(b)
	if err != nil {
		return err
	}
	defer s.Close()

	cancel := b.Watch(s.Engine.Events)
	defer cancel()

	p := tea.NewProgram(New(ctx, s), tea.WithAltScreen(), tea.WithMouseCellMotion())
	b.Attach(p.Send)
	defer b.Stop()

	_, err = p.Run()
	return err
}

// Init starts the story.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.start())
}

func (m Model) start() tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		s.Start(ctx)
		return waitIdle(ctx, s)
	}
}

// settle waits in the background until the session needs input.
func (m Model) settle() tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg { return waitIdle(ctx, s) }
}

func waitIdle(ctx context.Context, s *session.Session) tea.Msg {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := s.Engine.WaitIdle(ctx); err != nil {
		return metaResultMsg{lines: []string{fmt.Sprintf("[Still running: %v]", err)}}
	}
	return idleMsg{}
}

// Update handles messages (key presses, window resize, presenter output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case lineMsg:
		kind := kindNarration
		if msg.line.Speaker != "" {
			kind = kindDialogue
		}
		text := msg.line.Text
		if msg.line.Alt {
			kind = kindAlt
			text = "(" + text + ")"
		}
		if msg.line.Speaker != "" {
			text = msg.line.Speaker + ": " + text
		}
		m = m.appendLines(rawLine{text: text, kind: kind})
		if m.trace && msg.line.Voice != "" {
			m = m.appendLines(rawLine{text: "[trace] voice " + msg.line.Voice, kind: kindTrace})
		}

	case actorMsg:
		if msg.shown {
			m.stage[msg.id] = msg.position
		} else {
			delete(m.stage, msg.id)
		}
		if m.trace {
			m = m.appendLines(rawLine{text: "[trace] " + describeActor(msg), kind: kindTrace})
		}

	case backgroundMsg:
		m.bg = msg.bg.Image
		if msg.bg.Video != "" {
			m.bg = msg.bg.Video
		}
		if msg.bg.Audio != "" {
			m.music = msg.bg.Audio
		}
		if m.trace {
			m = m.appendLines(rawLine{text: "[trace] background " + m.bg, kind: kindTrace})
		}

	case audioMsg:
		if msg.loop {
			m.music = msg.ref
		}
		if m.trace {
			m = m.appendLines(rawLine{text: fmt.Sprintf("[trace] audio %s (loop %t)", msg.ref, msg.loop), kind: kindTrace})
		}

	case menuMsg:
		m.menus = append(m.menus, msg.menu)
		m.ended = false
		m = m.appendLines(m.listMenus()...)

	case clearMenusMsg:
		m.menus = dropMenus(m.menus, msg.ids)

	case sceneMsg:
		m.scene = msg.id
		m.ended = false
		if m.trace {
			m = m.appendLines(rawLine{text: "[trace] scene " + msg.id, kind: kindTrace})
		}

	case scriptErrMsg:
		m = m.appendLines(rawLine{text: "[error] " + msg.text, kind: kindError})

	case metaResultMsg:
		var lines []rawLine
		for _, l := range msg.lines {
			lines = append(lines, rawLine{text: l, kind: classifyLine(l)})
		}
		m = m.appendLines(lines...)

	case idleMsg:
		if !m.ended && m.finished() {
			m.ended = true
			m = m.appendLines(rawLine{}, rawLine{text: "[The End.]", kind: kindSystem})
		}
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line. Plain Enter continues
// the dialogue, a number picks an option.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input != "" {
		m.history.Push(input)
		m.history.ResetCursor()
	}

	if strings.HasPrefix(input, "/") {
		m = m.appendLines(rawLine{text: "> " + input, isInput: true})
		cmd, quit := m.handleMeta(input)
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, cmd
	}

	if input == "" || input == "." {
		if !m.session.Engine.Interact() {
			m = m.appendLines(rawLine{text: "[Nothing to continue. Pick an option by number.]", kind: kindSystem})
			return m, nil
		}
		return m, m.settle()
	}

	m = m.appendLines(rawLine{text: "> " + input, isInput: true})
	n, err := strconv.Atoi(input)
	if err != nil {
		m = m.appendLines(rawLine{text: fmt.Sprintf("[Unknown input: %s. Type /help for available commands.]", input), kind: kindSystem})
		return m, nil
	}
	activate, ok := m.option(n)
	if !ok {
		m = m.appendLines(rawLine{text: fmt.Sprintf("[No option %d.]", n), kind: kindSystem})
		return m, nil
	}
	activate()
	return m, m.settle()
}

// finished reports whether nothing is left to do: no path runs and no
// scene menu is open.
func (m Model) finished() bool {
	if m.session.Engine.Running() {
		return false
	}
	for _, menu := range m.menus {
		if !menu.Global {
			return false
		}
	}
	return true
}

// appendLines adds lines to the narrative and refreshes the viewport.
func (m Model) appendLines(lines ...rawLine) Model {
	m.rawLines = append(m.rawLines, lines...)
	m.refreshViewport()
	return m
}

// listMenus numbers the open options across all menus.
func (m Model) listMenus() []rawLine {
	var lines []rawLine
	n := 1
	for _, menu := range m.menus {
		tag := ""
		if menu.Global {
			tag = " [menu]"
		} else if menu.Group.Class != types.ClassDefault {
			tag = " [" + choice.ClassName(menu.Group.Class) + "]"
		}
		for _, opt := range menu.Group.Options {
			lines = append(lines, rawLine{text: fmt.Sprintf("  %d. %s%s", n, opt.Label, tag), kind: kindChoice})
			n++
		}
	}
	return lines
}

// option returns the activation of the n-th listed option.
func (m Model) option(n int) (func(), bool) {
	i := 1
	for _, menu := range m.menus {
		for idx := range menu.Group.Options {
			if i == n {
				activate, index := menu.Activate, idx
				return func() { activate(index) }, true
			}
			i++
		}
	}
	return nil, false
}

func dropMenus(menus []engine.Menu, ids []int) []engine.Menu {
	drop := make(map[int]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var kept []engine.Menu
	for _, menu := range menus {
		if !drop[menu.ID] {
			kept = append(kept, menu)
		}
	}
	return kept
}

func describeActor(msg actorMsg) string {
	if !msg.shown {
		return "hide " + msg.id
	}
	where := ""
	if msg.position != "" {
		where = " at " + msg.position
	}
	return fmt.Sprintf("show %s%s: %s", msg.id, where, strings.Join(msg.frames, ", "))
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)
		if rl.isInput {
			styled = append(styled, stylePlayerInput.Render(wrapped))
		} else {
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wLen := len(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Commands that touch the session run
// as tea.Cmds; the returned flag asks to quit.
func (m *Model) handleMeta(input string) (tea.Cmd, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	s, ctx := m.session, m.ctx
	switch cmd {
	case "/quit", "/exit":
		return nil, true

	case "/save":
		return func() tea.Msg { return metaResultMsg{lines: cmdSave(ctx, s, arg)} }, false

	case "/load":
		return tea.Sequence(
			func() tea.Msg { return metaResultMsg{lines: cmdLoad(ctx, s, arg)} },
			m.settle(),
		), false

	case "/slots":
		return func() tea.Msg { return metaResultMsg{lines: cmdSlots(ctx, s)} }, false

	case "/delete":
		return func() tea.Msg { return metaResultMsg{lines: cmdDelete(ctx, s, arg)} }, false

	case "/vars":
		return func() tea.Msg { return metaResultMsg{lines: cmdVars(s)} }, false

	case "/help":
		*m = m.appendLines(linesOf(cmdHelp())...)
		return nil, false

	case "/trace":
		m.trace = !m.trace
		text := "[Trace output disabled.]"
		if m.trace {
			text = "[Trace output enabled.]"
		}
		*m = m.appendLines(rawLine{text: text, kind: kindSystem})
		return nil, false

	default:
		*m = m.appendLines(rawLine{
			text: fmt.Sprintf("[Unknown command: %s. Type /help for available commands.]", cmd),
			kind: kindSystem,
		})
		return nil, false
	}
}

func linesOf(texts []string) []rawLine {
	lines := make([]rawLine, len(texts))
	for i, t := range texts {
		lines[i] = rawLine{text: t, kind: kindSystem}
	}
	return lines
}

func cmdSave(ctx context.Context, s *session.Session, slot string) []string {
	if slot == "" {
		slot = save.DefaultSlot
	}
	if err := s.Saves.SaveToSlot(ctx, slot); err != nil {
		return []string{fmt.Sprintf("[Save failed: %v]", err)}
	}
	return []string{fmt.Sprintf("[Game saved to %s.]", slot)}
}

func cmdLoad(ctx context.Context, s *session.Session, slot string) []string {
	if slot == "" {
		slot = save.DefaultSlot
	}
	if err := s.Saves.LoadFromSlot(ctx, slot); err != nil {
		return []string{fmt.Sprintf("[Load failed: %v]", err)}
	}
	return []string{fmt.Sprintf("[Game loaded from %s.]", slot)}
}

func cmdSlots(ctx context.Context, s *session.Session) []string {
	slots, err := s.Saves.Slots(ctx)
	if err != nil {
		return []string{fmt.Sprintf("[Listing saves failed: %v]", err)}
	}
	if len(slots) == 0 {
		return []string{"[No saves.]"}
	}
	var out []string
	for _, info := range slots {
		line := "  " + info.Slot
		if info.Timestamp > 0 {
			line += "  " + time.UnixMilli(info.Timestamp).Format("2006-01-02 15:04")
		}
		if info.SceneID != "" {
			line += "  scene " + info.SceneID
		}
		out = append(out, line)
	}
	return out
}

func cmdDelete(ctx context.Context, s *session.Session, slot string) []string {
	if slot == "" {
		return []string{"[Usage: /delete <slot>]"}
	}
	if err := s.Saves.DeleteSlot(ctx, slot); err != nil {
		return []string{fmt.Sprintf("[Delete failed: %v]", err)}
	}
	return []string{fmt.Sprintf("[Deleted %s.]", slot)}
}

func cmdVars(s *session.Session) []string {
	var out []string
	s.Engine.Exclusive(func() {
		st := s.Engine.State
		out = append(out, fmt.Sprintf("[Scene: %s]", st.CurrentScene))
		names := make([]string, 0, len(st.Variables))
		for k := range st.Variables {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			out = append(out, fmt.Sprintf("[%s = %v]", k, st.Variables[k]))
		}
	})
	return out
}

func cmdHelp() []string {
	return []string{
		"Playing:",
		"  Enter          Continue",
		"  <number>       Pick an option",
		"",
		"System:",
		"  /save [slot]   Save game (default: " + save.DefaultSlot + ")",
		"  /load [slot]   Load game (default: " + save.DefaultSlot + ")",
		"  /slots         List saves",
		"  /delete <slot> Delete a save",
		"  /vars          Debug: dump variables",
		"  /trace         Toggle stage directions",
		"  /help          Show this help",
		"  /quit          Exit game",
		"",
		"Navigation: PgUp/PgDn to scroll, Up/Down for input history",
	}
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
