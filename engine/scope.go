package engine

import (
	"context"

	"github.com/nathoo/sceneweaver/engine/condition"
	"github.com/nathoo/sceneweaver/engine/events"
	"github.com/nathoo/sceneweaver/engine/state"
	"github.com/nathoo/sceneweaver/types"
)

// scope is the session view handed to deferred commands. It is only used
// while the execution token is held.
type scope struct {
	e   *Engine
	ctx context.Context
}

var _ types.Scope = scope{}

func (e *Engine) scope(ctx context.Context) types.Scope {
	return scope{e: e, ctx: ctx}
}

func (s scope) Var(name string) (any, bool) { return state.GetVar(s.e.State, name) }

func (s scope) Hour() int { return s.e.State.Time.Hour }

func (s scope) Eval(c types.Condition) bool { return condition.Evaluate(c, s.e.env()) }

func (s scope) Roll(sides int) int {
	v := s.e.RNG.Roll(sides)
	s.e.State.RNGPosition = s.e.RNG.Position()
	return v
}

func (s scope) Pick(weights []int) int {
	v := s.e.RNG.WeightedSelect(weights)
	s.e.State.RNGPosition = s.e.RNG.Position()
	return v
}

func (s scope) QuickSave(slot string) bool { return s.e.autosave(s.ctx, slot) }

// QuickLoad restores slot from inside a running scene. The current path
// gives way and re-enters the restored scene once it unwinds.
func (s scope) QuickLoad(slot string) bool {
	e := s.e
	if e.saver == nil || !e.saver.Autoload(s.ctx, slot) {
		return false
	}
	e.relaunch()
	e.emit(events.Loaded, map[string]any{"scene": e.State.CurrentScene, "slot": slot})
	return true
}
