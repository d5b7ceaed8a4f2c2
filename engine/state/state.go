// Package state manages the mutable narrative state: variables, dialogue
// history, visible actors and the in-game clock.
package state

import (
	"sort"
	"strconv"

	"github.com/nathoo/sceneweaver/types"
)

// Defs holds the immutable script definitions loaded from Lua.
type Defs struct {
	Game         types.GameDef
	Scenes       map[string][]types.Command
	GlobalMenu   []types.ChoiceOption
	Actors       []types.ActorDef
	Maps         []types.MapDef
	Translations map[string]string
}

// DefaultHour is the clock reading of a fresh session.
const DefaultHour = 8

// NewState creates a fresh narrative state.
func NewState() *types.ExecutionState {
	return &types.ExecutionState{
		Variables:     map[string]any{},
		History:       []types.HistoryEntry{},
		VisibleActors: map[string]bool{},
		Time:          types.TimeState{Hour: DefaultHour},
	}
}

// Normalize converts integer kinds to float64 so that variables read back
// from a save compare identically to ones set at runtime.
func Normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

// ToFloat interprets v as a number. Booleans count as 0 and 1 and numeric
// strings are parsed. The second result reports whether v was numeric.
func ToFloat(v any) (float64, bool) {
	switch n := Normalize(v).(type) {
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case nil:
		return 0, true
	default:
		return 0, false
	}
}

// GetVar returns a variable and whether it is set.
func GetVar(s *types.ExecutionState, name string) (any, bool) {
	v, ok := s.Variables[name]
	return v, ok
}

// SetVar assigns a variable.
func SetVar(s *types.ExecutionState, name string, v any) {
	s.Variables[name] = Normalize(v)
}

// AddVar adds delta to a variable and returns the new value. A missing or
// non-numeric variable counts as 0.
func AddVar(s *types.ExecutionState, name string, delta float64) float64 {
	cur, _ := ToFloat(s.Variables[name])
	cur += delta
	s.Variables[name] = cur
	return cur
}

// CopyVars returns a shallow copy of the variable map.
func CopyVars(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = Normalize(v)
	}
	return out
}

// PushHistory appends a dialogue line.
func PushHistory(s *types.ExecutionState, speaker, text string) {
	s.History = append(s.History, types.HistoryEntry{Speaker: speaker, Text: text})
}

// ShowActor marks an actor visible.
func ShowActor(s *types.ExecutionState, id string) {
	s.VisibleActors[id] = true
}

// HideActor marks an actor hidden.
func HideActor(s *types.ExecutionState, id string) {
	delete(s.VisibleActors, id)
}

// VisibleActorIDs returns the visible actor IDs in sorted order.
func VisibleActorIDs(s *types.ExecutionState) []string {
	ids := make([]string, 0, len(s.VisibleActors))
	for id := range s.VisibleActors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AdvanceTime moves the clock forward, wrapping at midnight.
func AdvanceTime(s *types.ExecutionState, minutes int) {
	total := s.Time.Hour*60 + s.Time.Minute + minutes
	total %= 24 * 60
	if total < 0 {
		total += 24 * 60
	}
	s.Time.Hour = total / 60
	s.Time.Minute = total % 60
}

// SceneIDs returns the defined scene IDs in sorted order.
func SceneIDs(defs *Defs) []string {
	ids := make([]string, 0, len(defs.Scenes))
	for id := range defs.Scenes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
