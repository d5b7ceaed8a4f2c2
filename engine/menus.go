package engine

import (
	"context"
	"sort"

	"github.com/nathoo/sceneweaver/engine/choice"
	"github.com/nathoo/sceneweaver/engine/events"
	"github.com/nathoo/sceneweaver/types"
)

// openMenu is a rendered option group. A blocking menu carries the waiter
// of the path that rendered it.
type openMenu struct {
	global bool
	waiter *waiter
}

func (e *Engine) openMenuID(global bool, w *waiter) int {
	e.inMu.Lock()
	defer e.inMu.Unlock()
	e.nextMenu++
	e.menus[e.nextMenu] = &openMenu{global: global, waiter: w}
	return e.nextMenu
}

func (e *Engine) menuOpen(id int) bool {
	e.inMu.Lock()
	defer e.inMu.Unlock()
	_, ok := e.menus[id]
	return ok
}

// closeMenus forgets the given menus, releases their waiters and tells the
// presenter.
func (e *Engine) closeMenus(ids []int) {
	if len(ids) == 0 {
		return
	}
	e.inMu.Lock()
	for _, id := range ids {
		if m, ok := e.menus[id]; ok {
			if m.waiter != nil {
				e.resolveLocked(m.waiter, -1)
			}
			delete(e.menus, id)
		}
	}
	e.inMu.Unlock()
	e.presenter.ClearChoices(ids)
}

// clearMenus removes every scene menu. Global menus stay.
func (e *Engine) clearMenus() {
	e.closeMenus(e.menuIDs(func(m *openMenu) bool { return !m.global }))
}

func (e *Engine) menuIDs(match func(*openMenu) bool) []int {
	e.inMu.Lock()
	defer e.inMu.Unlock()
	var ids []int
	for id, m := range e.menus {
		if match(m) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

func (e *Engine) localize(opts []types.ChoiceOption) []types.ChoiceOption {
	out := make([]types.ChoiceOption, len(opts))
	for i, opt := range opts {
		opt.Label = e.translate(opt.Label)
		out[i] = opt
	}
	return out
}

// runChoice renders the visible options. Non-blocking groups stay on screen
// and run their actions on detached paths. When a Default group exists the
// path waits for it and runs the chosen action inline before moving on.
func (e *Engine) runChoice(ctx context.Context, p *path, opts []types.ChoiceOption, scene string, depth int) {
	groups := choice.Resolve(e.localize(opts), e.env())
	if len(groups) == 0 {
		return
	}

	var (
		ids      []int
		blocking *choice.Group
	)
	for i := range groups {
		g := groups[i]
		if g.Blocking() {
			blocking = &g
			continue
		}
		id := e.openMenuID(false, nil)
		ids = append(ids, id)
		e.presenter.RenderChoices(Menu{ID: id, Group: g, Activate: e.activator(id, g, false)})
	}
	if blocking == nil {
		return
	}

	w := e.newWaiter(waitChoice)
	id := e.openMenuID(false, w)
	ids = append(ids, id)
	n := len(blocking.Options)
	e.presenter.RenderChoices(Menu{
		ID:    id,
		Group: *blocking,
		Activate: func(i int) {
			if i >= 0 && i < n {
				e.resolve(w, i)
			}
		},
	})

	i := e.await(ctx, w, nil)
	if i < 0 || e.stale(p) {
		return
	}
	e.closeMenus(ids)

	opt := blocking.Options[i]
	e.sleep(ctx, e.opts.TransitionDelay)
	e.emit(events.ChoiceMade, map[string]any{"scene": scene, "label": opt.Label})
	e.executeBlock(ctx, p, opt.Action, scene, depth+1, 0)
}

// activator returns the activation callback of a non-blocking menu. Each
// activation runs the option's action on its own path. Global options also
// raise the jump request so that whatever block the scene path is running
// gives way at its next boundary. The request is dropped once its path
// finishes with no other path left to honour it.
func (e *Engine) activator(menuID int, g choice.Group, global bool) func(int) {
	return func(i int) {
		if i < 0 || i >= len(g.Options) || !e.menuOpen(menuID) {
			return
		}
		opt := g.Options[i]
		e.spawn(e.baseCtx, func(ctx context.Context, p *path) {
			e.sleep(ctx, e.opts.TransitionDelay)
			if e.stale(p) {
				return
			}
			if global {
				e.State.JumpRequested = true
				e.jumpOwner = p
			}
			e.emit(events.ChoiceMade, map[string]any{"scene": e.State.CurrentScene, "label": opt.Label, "global": global})
			e.executeBlock(ctx, p, opt.Action, e.State.CurrentScene, 1, 0)
			if e.jumpOwner == p && e.pathCount() == 1 {
				e.State.JumpRequested = false
				e.jumpOwner = nil
			}
		})
	}
}

// SetGlobalMenu replaces the persistent menu. Its options are available
// regardless of the running scene and survive scene changes.
func (e *Engine) SetGlobalMenu(opts []types.ChoiceOption) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closeMenus(e.menuIDs(func(m *openMenu) bool { return m.global }))
	for _, g := range choice.Resolve(e.localize(opts), e.env()) {
		id := e.openMenuID(true, nil)
		e.presenter.RenderChoices(Menu{ID: id, Global: true, Group: g, Activate: e.activator(id, g, true)})
	}
}
