package cli

import (
	"fmt"
	"strings"

	"github.com/nathoo/sceneweaver/engine"
	"github.com/nathoo/sceneweaver/engine/choice"
	"github.com/nathoo/sceneweaver/types"
)

var _ engine.Presenter = (*CLI)(nil)

// RenderLine prints a line. There is no voice playback, so it never
// reports one.
func (c *CLI) RenderLine(l engine.Line) <-chan struct{} {
	c.printLine(formatLine(l.Speaker, l.Text, l.Alt))
	if c.tracing() && l.Voice != "" {
		c.printTrace("voice " + l.Voice)
	}
	return nil
}

func (c *CLI) PresentActor(id string, frames []string, position string) {
	if !c.tracing() {
		return
	}
	where := ""
	if position != "" {
		where = " at " + position
	}
	c.printTrace(fmt.Sprintf("show %s%s: %s", id, where, strings.Join(frames, ", ")))
}

func (c *CLI) DismissActor(id string) {
	if c.tracing() {
		c.printTrace("hide " + id)
	}
}

func (c *CLI) ChangeBackground(bg engine.Background) <-chan struct{} {
	if c.tracing() {
		ref := bg.Image
		if bg.Video != "" {
			ref = bg.Video
		}
		c.printTrace("background " + ref)
	}
	return nil
}

func (c *CLI) PlayAudio(ref string, loop bool) {
	if c.tracing() {
		c.printTrace(fmt.Sprintf("audio %s (loop %t)", ref, loop))
	}
}

// RenderChoices records a menu. Menus are listed once the session settles.
func (c *CLI) RenderChoices(m engine.Menu) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.menus = append(c.menus, m)
	c.shown = false
}

func (c *CLI) ClearChoices(ids []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	drop := make(map[int]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := c.menus[:0]
	for _, m := range c.menus {
		if !drop[m.ID] {
			kept = append(kept, m)
		}
	}
	c.menus = kept
	c.shown = false
}

// listMenus prints the open options, numbered across all menus, unless
// they were already listed.
func (c *CLI) listMenus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shown || len(c.menus) == 0 {
		return
	}
	c.shown = true

	n := 1
	for _, m := range c.menus {
		tag := ""
		if m.Global {
			tag = " [menu]"
		} else if m.Group.Class != types.ClassDefault {
			tag = " [" + choice.ClassName(m.Group.Class) + "]"
		}
		for _, opt := range m.Group.Options {
			fmt.Fprintf(c.Out, "  %d. %s%s\n", n, opt.Label, tag)
			n++
		}
	}
}

// option returns the activation of the n-th listed option.
func (c *CLI) option(n int) (func(), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := 1
	for _, m := range c.menus {
		for idx := range m.Group.Options {
			if i == n {
				activate, index := m.Activate, idx
				return func() { activate(index) }, true
			}
			i++
		}
	}
	return nil, false
}
