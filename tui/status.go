package tui

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// displayName derives a readable name from an asset reference or id.
// "bg/castle_gates.png" -> "Castle Gates".
func displayName(ref string) string {
	base := path.Base(ref)
	base = strings.TrimSuffix(base, path.Ext(base))
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// renderStatusBar produces a full-width inverted status line showing the
// title, scene, background and who is on stage, plus a hint when the
// story waits for Enter.
func (m Model) renderStatusBar() string {
	left := " " + m.title
	if m.scene != "" {
		left += " | " + displayName(m.scene)
	}
	if m.bg != "" {
		left += " @ " + displayName(m.bg)
	}

	var right string
	if len(m.stage) > 0 {
		ids := make([]string, 0, len(m.stage))
		for id := range m.stage {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		candidate := fmt.Sprintf("On stage: %s ", strings.Join(ids, ", "))
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		} else {
			right = fmt.Sprintf("On stage: %d ", len(ids))
		}
	}
	if m.session.Engine.Awaiting() {
		right += styleContinue.Render("[Enter]") + " "
	} else if m.ended {
		right += "The End "
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
