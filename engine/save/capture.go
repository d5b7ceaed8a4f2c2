package save

import (
	"github.com/nathoo/sceneweaver/actor"
	"github.com/nathoo/sceneweaver/engine/state"
	"github.com/nathoo/sceneweaver/types"
	"github.com/nathoo/sceneweaver/world"
)

// CaptureNarrative copies the interpreter state. Collections are copied so
// the result does not alias the live session.
func CaptureNarrative(s *types.ExecutionState, defs *state.Defs) Narrative {
	history := make([]types.HistoryEntry, len(s.History))
	copy(history, s.History)

	n := Narrative{
		Variables:    state.CopyVars(s.Variables),
		History:      history,
		CurrentScene: s.CurrentScene,
		Cursor:       s.Cursor,
		LineRecorded: s.LineRecorded,
		ActiveActors: state.VisibleActorIDs(s),
		Time:         s.Time,
		Active:       s.Active,
		RNGSeed:      s.RNGSeed,
		RNGPosition:  s.RNGPosition,
	}
	if defs != nil {
		n.DefinedScenes = state.SceneIDs(defs)
	}
	return n
}

// CaptureWorld records the player, the roster, the camera and every map's
// NPCs.
func CaptureWorld(w *world.World) *WorldState {
	ws := &WorldState{
		Actors:     []SerializedActor{},
		CurrentMap: w.CurrentMap(),
		Camera:     w.Camera(),
		NPCsByMap:  map[string][]SerializedActor{},
	}
	if p := w.Player(); p != nil {
		sa := SerializeActor(p)
		ws.Player = &sa
		ws.PlayerPosition = &world.Point{X: p.Base().X, Y: p.Base().Y}
	}
	for _, a := range w.Actors() {
		ws.Actors = append(ws.Actors, SerializeActor(a))
	}
	for id, npcs := range w.NPCsByMap() {
		for _, a := range npcs {
			ws.NPCsByMap[id] = append(ws.NPCsByMap[id], SerializeActor(a))
		}
	}
	return ws
}

// SerializeActor flattens an actor into its record.
func SerializeActor(a actor.Actor) SerializedActor {
	c := a.Base()
	tag := a.TypeTag()
	if tag == "" {
		tag = actor.BaseTag
	}

	abilities := make([]SerializedAbility, 0, len(c.Abilities))
	for _, ab := range c.Abilities {
		abilities = append(abilities, SerializeAbility(ab))
	}
	stats := make(map[string]int, len(c.Stats))
	for k, v := range c.Stats {
		stats[k] = v
	}

	return SerializedActor{
		TypeTag:    tag,
		InitProps:  c.Props(),
		Position:   world.Point{X: c.X, Y: c.Y},
		Facing:     c.Facing,
		AnimState:  c.AnimState,
		Inventory:  actor.CloneItems(c.Inventory),
		Abilities:  abilities,
		Stats:      stats,
		Level:      c.Level,
		Experience: c.Experience,
		IsNPC:      c.IsNPC,
		Custom:     actor.CloneMap(c.Custom),
	}
}

// SerializeAbility flattens an ability into its record.
func SerializeAbility(ab actor.Ability) SerializedAbility {
	info := ab.Info()
	tag := ab.TypeTag()
	if tag == "" {
		tag = actor.BaseAbilityTag
	}
	return SerializedAbility{
		TypeTag:     tag,
		InitProps:   info.Props(),
		Name:        info.Name,
		Description: info.Description,
		Icon:        info.Icon,
		Targets:     info.Targets,
		ManaCost:    info.ManaCost,
		Level:       info.Level,
		Cooldown:    info.Cooldown,
		Remaining:   info.Remaining,
	}
}
