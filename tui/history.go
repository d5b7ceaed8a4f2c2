// Package tui provides a Bubble Tea terminal UI for SceneWeaver sessions.
package tui

import "strconv"

// History keeps the commands typed at the prompt for Up/Down recall.
// Option numbers are not kept: they only mean something while the menu
// they picked from is open.
type History struct {
	entries []string
	max     int
	cursor  int // -1 = not navigating, 0..len-1 = position in entries
}

// NewHistory creates a history holding at most max commands.
func NewHistory(max int) *History {
	return &History{
		entries: make([]string, 0, max),
		max:     max,
		cursor:  -1,
	}
}

// Push records input. Blank input, option numbers and repeats of the last
// entry are skipped.
func (h *History) Push(input string) {
	if input == "" || input == "." {
		return
	}
	if _, err := strconv.Atoi(input); err == nil {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == input {
		return
	}
	h.entries = append(h.entries, input)
	if len(h.entries) > h.max {
		h.entries = h.entries[1:]
	}
}

// Len returns the number of recorded commands.
func (h *History) Len() int { return len(h.entries) }

// Prev steps back to the previous (older) command.
// Returns ("", false) if history is empty.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	switch {
	case h.cursor == -1:
		h.cursor = len(h.entries) - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next steps forward. It returns ("", false) once past the newest command,
// which puts the prompt back to fresh input.
func (h *History) Next() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	h.cursor++
	if h.cursor >= len(h.entries) {
		h.cursor = -1
		return "", false
	}
	return h.entries[h.cursor], true
}

// ResetCursor leaves navigation.
func (h *History) ResetCursor() {
	h.cursor = -1
}
