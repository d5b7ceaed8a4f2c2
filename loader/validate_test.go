package loader

import (
	"errors"
	"testing"

	"github.com/nathoo/sceneweaver/engine/state"
	"github.com/nathoo/sceneweaver/types"
)

// validDefs returns a minimal valid Defs for testing.
func validDefs() *state.Defs {
	return &state.Defs{
		Game: types.GameDef{
			Title: "Test",
			Start: "hall",
		},
		Scenes: map[string][]types.Command{
			"hall": {types.Say{Text: "A hall."}},
		},
	}
}

// validationErrors runs validate and returns the *ValidationError, failing
// the test if validation passed.
func validationErrors(t *testing.T, defs *state.Defs) *ValidationError {
	t.Helper()
	_, err := validate(defs)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	return ve
}

func TestValidate_ValidDefs(t *testing.T) {
	warnings, err := validate(validDefs())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

func TestValidate_MissingStartScene(t *testing.T) {
	defs := validDefs()
	defs.Game.Start = "nonexistent"
	assertContains(t, validationErrors(t, defs).Errors, `start scene "nonexistent"`)
}

func TestValidate_NoStart(t *testing.T) {
	defs := validDefs()
	defs.Game.Start = ""
	assertContains(t, validationErrors(t, defs).Errors, "Game.start is required")
}

func TestValidate_EmptyTitleWarns(t *testing.T) {
	defs := validDefs()
	defs.Game.Title = ""

	warnings, err := validate(defs)
	if err != nil {
		t.Fatalf("an empty title should only warn: %v", err)
	}
	assertContains(t, warnings, "Game.title is empty")
}

func TestValidate_Commands(t *testing.T) {
	tests := []struct {
		name string
		cmds []types.Command
		want string
	}{
		{"undefined jump", []types.Command{types.Jump{Target: "void"}}, `undefined scene "void"`},
		{"nested jump", []types.Command{types.If{
			Cond: types.Literal(true),
			Else: []types.Command{types.Block{Commands: []types.Command{types.Jump{Target: "deep"}}}},
		}}, `undefined scene "deep"`},
		{"show without id", []types.Command{types.ShowActor{Image: "x"}}, "without an id"},
		{"show without image", []types.Command{types.ShowActor{ID: "dana"}}, `shows "dana" without an image`},
		{"hide without id", []types.Command{types.HideActor{}}, "hides an actor without an id"},
		{"unnamed var", []types.Command{types.AddVar{Delta: 1}}, "variable without a name"},
		{"empty choice", []types.Command{types.Choice{}}, "choice with no options"},
		{"unlabeled option", []types.Command{types.Choice{Options: []types.ChoiceOption{{}}}}, "option without a label"},
		{"option jump", []types.Command{types.Choice{Options: []types.ChoiceOption{
			{Label: "Go", Action: []types.Command{types.Jump{Target: "gone"}}},
		}}}, `undefined scene "gone"`},
		{"negative wait", []types.Command{types.Wait{Duration: -5}}, "negative duration"},
		{"bad operator", []types.Command{types.If{Cond: types.Var{Name: "x", Op: "=~"}}}, `unknown operator "=~"`},
		{"bad hour", []types.Command{types.If{Cond: types.Not{Cond: types.TimeOfDay{Op: "==", Hour: 24}}}}, "hour 24"},
		{"nested condition", []types.Command{types.If{Cond: types.Or{Conds: []types.Condition{
			types.And{Conds: []types.Condition{types.Var{Op: "=="}}},
		}}}}, "variable without a name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs := validDefs()
			defs.Scenes["hall"] = tt.cmds
			assertContains(t, validationErrors(t, defs).Errors, tt.want)
		})
	}
}

func TestValidate_EmptyLineWarns(t *testing.T) {
	defs := validDefs()
	defs.Scenes["hall"] = []types.Command{types.Say{Speaker: "Dana"}}

	warnings, err := validate(defs)
	if err != nil {
		t.Fatalf("an empty line should only warn: %v", err)
	}
	assertContains(t, warnings, "empty line")
}

func TestValidate_GlobalMenu(t *testing.T) {
	defs := validDefs()
	defs.GlobalMenu = []types.ChoiceOption{
		{Label: "Map", Class: types.ClassFloating, Action: []types.Command{types.Jump{Target: "atlas"}}},
	}
	assertContains(t, validationErrors(t, defs).Errors, `global menu jumps to undefined scene "atlas"`)
}

func TestValidate_World(t *testing.T) {
	tests := []struct {
		name   string
		actors []types.ActorDef
		maps   []types.MapDef
		want   string
	}{
		{
			name:   "duplicate actor",
			actors: []types.ActorDef{{Name: "Dana"}, {Name: "Dana"}},
			want:   `actor "Dana" declared twice`,
		},
		{
			name:   "two players",
			actors: []types.ActorDef{{Name: "Dana", Player: true}, {Name: "Alexandra", Player: true}},
			want:   "at most one",
		},
		{
			name: "duplicate map",
			maps: []types.MapDef{{ID: "town"}, {ID: "town"}},
			want: `map "town" declared twice`,
		},
		{
			name: "undeclared npc",
			maps: []types.MapDef{{ID: "town", NPCs: []string{"Ghost"}}},
			want: `undeclared actor "Ghost"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs := validDefs()
			defs.Actors = tt.actors
			defs.Maps = tt.maps
			assertContains(t, validationErrors(t, defs).Errors, tt.want)
		})
	}
}

func TestValidate_NPCOnTwoMapsWarns(t *testing.T) {
	defs := validDefs()
	defs.Actors = []types.ActorDef{{Name: "Dana", Player: true}, {Name: "Alexandra"}}
	defs.Maps = []types.MapDef{
		{ID: "town", NPCs: []string{"Alexandra"}},
		{ID: "forest", NPCs: []string{"Alexandra"}},
	}

	warnings, err := validate(defs)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	assertContains(t, warnings, `"Alexandra" is placed on both "town" and "forest"`)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	defs := validDefs()
	defs.Game.Start = "missing"
	defs.Scenes["hall"] = []types.Command{types.Jump{Target: "void"}, types.Wait{Duration: -1}}

	ve := validationErrors(t, defs)
	if len(ve.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(ve.Errors), ve.Errors)
	}
}
