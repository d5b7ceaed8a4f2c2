package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/sceneweaver/engine/state"
	"github.com/nathoo/sceneweaver/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Known comparison operators.
var validOps = map[string]bool{
	"==": true, "!=": true,
	">": true, "<": true, ">=": true, "<=": true,
}

// validate checks the compiled defs for referential integrity. Warnings
// alone do not fail validation; they are returned for the host to log.
func validate(defs *state.Defs) ([]string, error) {
	ve := &ValidationError{}

	if defs.Game.Title == "" {
		ve.warnf("Game.title is empty")
	}

	if defs.Game.Start == "" {
		ve.errorf("Game.start is required")
	} else if _, ok := defs.Scenes[defs.Game.Start]; !ok {
		ve.errorf("start scene %q not found in defined scenes", defs.Game.Start)
	}

	for id, cmds := range defs.Scenes {
		validateCommands(cmds, "scene "+quote(id), defs, ve)
	}
	validateOptions(defs.GlobalMenu, "global menu", defs, ve)
	validateWorld(defs, ve)

	if len(ve.Errors) > 0 {
		return ve.Warnings, ve
	}
	return ve.Warnings, nil
}

func quote(s string) string { return fmt.Sprintf("%q", s) }

func validateCommands(cmds []types.Command, where string, defs *state.Defs, ve *ValidationError) {
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case types.Jump:
			if _, ok := defs.Scenes[c.Target]; !ok {
				ve.errorf("%s jumps to undefined scene %q", where, c.Target)
			}
		case types.Say:
			if c.Text == "" {
				ve.warnf("%s has an empty line", where)
			}
		case types.ShowActor:
			if c.ID == "" {
				ve.errorf("%s shows an actor without an id", where)
			}
			if c.Image == "" && len(c.Frames) == 0 {
				ve.errorf("%s shows %q without an image", where, c.ID)
			}
		case types.HideActor:
			if c.ID == "" {
				ve.errorf("%s hides an actor without an id", where)
			}
		case types.SetVar:
			validateVarName(c.Name, where, ve)
		case types.AddVar:
			validateVarName(c.Name, where, ve)
		case types.SubVar:
			validateVarName(c.Name, where, ve)
		case types.If:
			validateCondition(c.Cond, where, ve)
			validateCommands(c.Then, where, defs, ve)
			validateCommands(c.Else, where, defs, ve)
		case types.Block:
			validateCommands(c.Commands, where, defs, ve)
		case types.Choice:
			if len(c.Options) == 0 {
				ve.errorf("%s has a choice with no options", where)
			}
			validateOptions(c.Options, where, defs, ve)
		case types.Wait:
			if c.Duration < 0 {
				ve.errorf("%s waits a negative duration", where)
			}
		}
	}
}

func validateOptions(opts []types.ChoiceOption, where string, defs *state.Defs, ve *ValidationError) {
	for _, opt := range opts {
		if opt.Label == "" {
			ve.errorf("%s has an option without a label", where)
		}
		validateCondition(opt.Visible, where, ve)
		validateCommands(opt.Action, where, defs, ve)
	}
}

func validateVarName(name, where string, ve *ValidationError) {
	if name == "" {
		ve.errorf("%s assigns a variable without a name", where)
	}
}

func validateCondition(c types.Condition, where string, ve *ValidationError) {
	switch c := c.(type) {
	case types.Var:
		if c.Name == "" {
			ve.errorf("%s tests a variable without a name", where)
		}
		if !validOps[c.Op] {
			ve.errorf("%s uses unknown operator %q", where, c.Op)
		}
	case types.TimeOfDay:
		if !validOps[c.Op] {
			ve.errorf("%s uses unknown operator %q", where, c.Op)
		}
		if c.Hour < 0 || c.Hour > 23 {
			ve.errorf("%s tests hour %d outside 0..23", where, c.Hour)
		}
	case types.And:
		for _, inner := range c.Conds {
			validateCondition(inner, where, ve)
		}
	case types.Or:
		for _, inner := range c.Conds {
			validateCondition(inner, where, ve)
		}
	case types.Not:
		validateCondition(c.Cond, where, ve)
	}
}

func validateWorld(defs *state.Defs, ve *ValidationError) {
	actors := map[string]bool{}
	players := 0
	for _, a := range defs.Actors {
		if actors[a.Name] {
			ve.errorf("actor %q declared twice", a.Name)
		}
		actors[a.Name] = true
		if a.Player {
			players++
		}
	}
	if players > 1 {
		ve.errorf("%d actors are marked as player, at most one is allowed", players)
	}

	maps := map[string]bool{}
	placed := map[string]string{}
	for _, m := range defs.Maps {
		if maps[m.ID] {
			ve.errorf("map %q declared twice", m.ID)
		}
		maps[m.ID] = true
		for _, npc := range m.NPCs {
			if !actors[npc] {
				ve.errorf("map %q places undeclared actor %q", m.ID, npc)
			}
			if other, ok := placed[npc]; ok {
				ve.warnf("actor %q is placed on both %q and %q", npc, other, m.ID)
			}
			placed[npc] = m.ID
		}
	}
}
