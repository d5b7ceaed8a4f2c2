package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/nathoo/sceneweaver/engine/assets"
	"github.com/nathoo/sceneweaver/engine/condition"
	"github.com/nathoo/sceneweaver/engine/events"
	"github.com/nathoo/sceneweaver/engine/state"
	"github.com/nathoo/sceneweaver/types"
)

// TimeVar is the variable refreshed with the current hour before every
// command, so that scripts can branch on it like any other variable.
const TimeVar = "g_time"

type flow int

const (
	flowNext flow = iota
	flowAbort
)

// executeBlock runs cmds on path p. offset is the index of cmds[0] within
// its scene and only matters at depth 0, where the cursor is tracked.
//
// Before each command the path stops if it no longer belongs to the current
// scene generation. A pending jump request set by another path aborts this
// block only; enclosing blocks continue.
func (e *Engine) executeBlock(ctx context.Context, p *path, cmds []types.Command, scene string, depth, offset int) {
	for i, cmd := range cmds {
		if ctx.Err() != nil || e.stale(p) {
			return
		}
		if e.State.JumpRequested && e.yields(p) {
			e.State.JumpRequested = false
			e.jumpOwner = nil
			return
		}
		if depth == 0 {
			if i > 0 {
				p.resumed = false
			}
			e.State.Cursor = offset + i
			e.State.LineRecorded = false
		}
		state.SetVar(e.State, TimeVar, e.State.Time.Hour)

		if e.step(ctx, p, cmd, scene, depth) == flowAbort {
			return
		}
	}
	if depth == 0 && !e.stale(p) {
		e.State.Cursor = offset + len(cmds)
		e.State.LineRecorded = false
	}
}

func (e *Engine) stale(p *path) bool {
	return p.epoch != e.epoch.Load()
}

// yields reports whether p gives way to the pending jump request. Only paths
// created before the one that raised it do.
func (e *Engine) yields(p *path) bool {
	return e.jumpOwner == nil || p.seq < e.jumpOwner.seq
}

// step dispatches one command. A failing or panicking command is logged and
// skipped.
func (e *Engine) step(ctx context.Context, p *path, raw types.Command, scene string, depth int) (f flow) {
	defer func() {
		if r := recover(); r != nil {
			e.logf("scene %q: %T: recovered: %v", scene, raw, r)
			e.emit(events.ScriptError, map[string]any{"scene": scene, "error": fmt.Sprint(r)})
			f = flowNext
		}
	}()

	cmd, err := e.resolveDeferred(ctx, raw)
	if err != nil {
		e.logf("scene %q: deferred command: %v", scene, err)
		e.emit(events.ScriptError, map[string]any{"scene": scene, "error": err.Error()})
		return flowNext
	}
	if cmd == nil || e.stale(p) {
		return flowNext
	}

	switch c := cmd.(type) {
	case types.Say:
		e.say(ctx, p, c)
	case types.ShowActor:
		e.showActor(ctx, c)
	case types.HideActor:
		e.presenter.DismissActor(c.ID)
		state.HideActor(e.State, c.ID)
		e.sleep(ctx, e.opts.TransitionDelay)
	case types.SetBackground:
		e.setBackground(ctx, p, c)
	case types.PlayAudio:
		e.presenter.PlayAudio(c.Ref, c.Loop)
	case types.Jump:
		return e.jump(ctx, scene, c.Target)
	case types.Choice:
		e.runChoice(ctx, p, c.Options, scene, depth)
	case types.SetVar:
		state.SetVar(e.State, c.Name, c.Value)
		e.varChanged(c.Name)
	case types.AddVar:
		state.AddVar(e.State, c.Name, c.Delta)
		e.varChanged(c.Name)
	case types.SubVar:
		state.AddVar(e.State, c.Name, -c.Delta)
		e.varChanged(c.Name)
	case types.If:
		if condition.Evaluate(c.Cond, e.env()) {
			e.executeBlock(ctx, p, c.Then, scene, depth+1, 0)
		} else {
			e.executeBlock(ctx, p, c.Else, scene, depth+1, 0)
		}
	case types.Wait:
		e.sleep(ctx, time.Duration(c.Duration)*time.Millisecond)
	case types.Block:
		e.executeBlock(ctx, p, c.Commands, scene, depth+1, 0)
	default:
		e.logf("scene %q: unknown command %T", scene, cmd)
	}
	return flowNext
}

// resolveDeferred runs deferred producers until a concrete command (or
// nothing) comes out.
func (e *Engine) resolveDeferred(ctx context.Context, cmd types.Command) (types.Command, error) {
	for {
		d, ok := cmd.(types.Deferred)
		if !ok {
			return cmd, nil
		}
		if d.Produce == nil {
			return nil, nil
		}
		next, err := d.Produce(e.scope(ctx))
		if err != nil {
			return nil, err
		}
		cmd = next
	}
}

func (e *Engine) varChanged(name string) {
	v, _ := state.GetVar(e.State, name)
	e.emit(events.VarChanged, map[string]any{"name": name, "value": v})
}

// say renders a line and holds it for at least MinDwell and until the
// player interacts or the voice clip ends.
func (e *Engine) say(ctx context.Context, p *path, c types.Say) {
	text := e.translate(c.Text)
	if p.resumed {
		p.resumed = false
	} else {
		state.PushHistory(e.State, c.Speaker, text)
	}
	if p.scene {
		e.State.LineRecorded = true
	}

	dwell := time.Now().Add(e.opts.MinDwell)

	w := e.newWaiter(waitInteraction)
	voiceDone := e.presenter.RenderLine(Line{Speaker: c.Speaker, Text: text, Voice: c.Audio, Alt: c.Alt})
	e.emit(events.LineRendered, map[string]any{"speaker": c.Speaker, "text": text})

	if e.await(ctx, w, voiceDone) < 0 && e.stale(p) {
		return
	}
	e.sleep(ctx, time.Until(dwell))
}

func (e *Engine) showActor(ctx context.Context, c types.ShowActor) {
	var frames []string
	if len(c.Frames) > 0 {
		frames = e.assets.Frames(c.Frames)
	} else if img, ok := e.assets.Image(c.Image); ok {
		frames = []string{img}
	}
	if len(frames) == 0 {
		e.logf("show actor %q: no image found", c.ID)
		return
	}

	e.presenter.DismissActor(c.ID)
	e.presenter.PresentActor(c.ID, frames, c.Position)
	state.ShowActor(e.State, c.ID)
	e.sleep(ctx, e.opts.TransitionDelay)
}

// setBackground hides every actor and swaps the background. A video
// background holds until the player interacts; a non-looping one first
// plays out (bounded by VideoTimeout).
func (e *Engine) setBackground(ctx context.Context, p *path, c types.SetBackground) {
	for _, id := range state.VisibleActorIDs(e.State) {
		e.presenter.DismissActor(id)
		state.HideActor(e.State, id)
	}

	bg := Background{Audio: c.Audio, Loop: c.Loop}
	if c.Video != "" {
		if v, ok := e.assets.Video(c.Video); ok {
			bg.Video = v
		} else {
			e.logf("background video %q: not found", c.Video)
		}
	} else if v, ok := e.assets.VideoTwin(c.Image); ok {
		bg.Video = v
	}

	if bg.Video == "" && c.Image != "" {
		ref := c.Image
		if c.TimeAware {
			ref = assets.WithTimeSuffix(ref, e.State.Time.Hour)
		}
		if img, ok := e.assets.Image(ref); ok {
			bg.Image = img
		} else {
			e.logf("background %q: not found", ref)
		}
	}
	if bg.Video == "" && bg.Image == "" && bg.Audio == "" {
		return
	}

	mediaDone := e.presenter.ChangeBackground(bg)

	if bg.Video != "" && !c.Loop {
		e.waitMedia(ctx, mediaDone, e.opts.VideoTimeout)
		if e.stale(p) {
			return
		}
	}
	e.sleep(ctx, e.opts.TransitionDelay)
	if bg.Video != "" && !e.stale(p) {
		e.await(ctx, e.newWaiter(waitInteraction), nil)
	}
}

// jump moves the session to target and aborts the current block. Enclosing
// blocks stop as well because the scene generation changes.
func (e *Engine) jump(ctx context.Context, from, target string) flow {
	e.clearMenus()
	if !e.requestScene(target, 0) {
		return flowAbort
	}
	e.emit(events.Jumped, map[string]any{"from": from, "to": target})
	e.autosave(ctx, "")
	return flowAbort
}
