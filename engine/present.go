package engine

import "github.com/nathoo/sceneweaver/engine/choice"

// Line is one rendered line of dialogue.
type Line struct {
	Speaker string
	Text    string
	Voice   string // resolved voice clip, empty when none
	Alt     bool
}

// Background describes a background change.
type Background struct {
	Image string
	Video string
	Audio string // replaces the playing ambient track when set
	Loop  bool
}

// Menu is one rendered option group. Activate selects the option at the
// given index of Group.Options; it may be called from any goroutine and is
// a no-op once the menu has been cleared.
type Menu struct {
	ID       int
	Global   bool
	Group    choice.Group
	Activate func(index int)
}

// Presenter renders session output. The engine calls it from execution
// paths while holding the execution token, so implementations must not
// block and must not call back into the engine synchronously except through
// Menu.Activate.
type Presenter interface {
	// RenderLine shows a line. The returned channel, when non-nil, is
	// closed once the voice clip finishes.
	RenderLine(l Line) <-chan struct{}
	PresentActor(id string, frames []string, position string)
	DismissActor(id string)
	// ChangeBackground swaps the background. For a non-looping video the
	// returned channel, when non-nil, is closed at the end of playback.
	ChangeBackground(bg Background) <-chan struct{}
	PlayAudio(ref string, loop bool)
	RenderChoices(m Menu)
	ClearChoices(ids []int)
}

// NopPresenter discards all output. Embed it to implement only part of
// Presenter.
type NopPresenter struct{}

func (NopPresenter) RenderLine(Line) <-chan struct{}             { return nil }
func (NopPresenter) PresentActor(string, []string, string)       {}
func (NopPresenter) DismissActor(string)                         {}
func (NopPresenter) ChangeBackground(Background) <-chan struct{} { return nil }
func (NopPresenter) PlayAudio(string, bool)                      {}
func (NopPresenter) RenderChoices(Menu)                          {}
func (NopPresenter) ClearChoices([]int)                          {}
