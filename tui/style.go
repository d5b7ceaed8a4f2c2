package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleNarration = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleSpeaker = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")).
			Bold(true)

	styleDialogue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleAlt = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Italic(true)

	styleChoice = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	styleContinue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")).
			Bold(true)
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarration lineKind = iota
	kindDialogue
	kindAlt
	kindChoice
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of system output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[error]"):
		return kindError
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	default:
		return kindNarration
	}
}

// renderLineKind applies the style for a given lineKind. Dialogue lines
// carry their speaker before the first ": ".
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindDialogue:
		if speaker, text, ok := strings.Cut(line, ": "); ok {
			return styleSpeaker.Render(speaker+":") + " " + styleDialogue.Render(text)
		}
		return styleDialogue.Render(line)
	case kindAlt:
		return styleAlt.Render(line)
	case kindChoice:
		return styleChoice.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleNarration.Render(line)
	}
}
