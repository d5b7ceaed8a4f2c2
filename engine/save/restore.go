package save

import (
	"context"
	"log"

	"github.com/nathoo/sceneweaver/actor"
	"github.com/nathoo/sceneweaver/engine/state"
	"github.com/nathoo/sceneweaver/types"
	"github.com/nathoo/sceneweaver/world"
)

// ApplyNarrative overwrites s with n field by field. The jump request is
// cleared; a restored session never carries a pending abort.
func ApplyNarrative(s *types.ExecutionState, n Narrative) {
	s.Variables = state.CopyVars(n.Variables)
	s.History = make([]types.HistoryEntry, len(n.History))
	copy(s.History, n.History)
	s.CurrentScene = n.CurrentScene
	s.Cursor = n.Cursor
	s.LineRecorded = n.LineRecorded
	s.JumpRequested = false
	s.VisibleActors = make(map[string]bool, len(n.ActiveActors))
	for _, id := range n.ActiveActors {
		s.VisibleActors[id] = true
	}
	s.Time = n.Time
	s.Active = n.Active
	s.RNGSeed = n.RNGSeed
	s.RNGPosition = n.RNGPosition
}

// MergeActor applies the dynamic state of rec onto a live actor. Abilities
// are rebuilt through the ability registry.
func MergeActor(ctx context.Context, dst actor.Actor, rec SerializedActor, regs *actor.Registries) {
	c := dst.Base()
	c.IsNPC = rec.IsNPC
	c.X, c.Y = rec.Position.X, rec.Position.Y
	if rec.Facing != "" {
		c.Facing = rec.Facing
	}
	if rec.AnimState != "" {
		c.AnimState = rec.AnimState
	}
	c.Inventory = actor.CloneItems(rec.Inventory)
	if rec.Stats != nil {
		c.Stats = make(map[string]int, len(rec.Stats))
		for k, v := range rec.Stats {
			c.Stats[k] = v
		}
	}
	if rec.Level > 0 {
		c.Level = rec.Level
	}
	c.Experience = rec.Experience
	c.Custom = actor.CloneMap(rec.Custom)

	c.Abilities = nil
	for _, ra := range rec.Abilities {
		c.Abilities = append(c.Abilities, RestoreAbility(ctx, ra, regs))
	}
}

// RestoreAbility rebuilds an ability from its record.
func RestoreAbility(ctx context.Context, rec SerializedAbility, regs *actor.Registries) actor.Ability {
	props := rec.InitProps
	if props.Name == "" {
		props.Name = rec.Name
	}
	ab := regs.Abilities.Instantiate(ctx, actor.AbilityRecord{
		TypeTag: rec.TypeTag,
		Name:    props.Name,
		Props:   props,
		State:   rec,
	}, regs.Env())

	info := ab.Info()
	if rec.Name != "" {
		info.Name = rec.Name
	}
	info.Description = rec.Description
	info.Icon = rec.Icon
	info.Targets = rec.Targets
	info.ManaCost = rec.ManaCost
	if rec.Level > 0 {
		info.Level = rec.Level
	}
	info.Cooldown = rec.Cooldown
	info.Remaining = rec.Remaining
	return ab
}

// InstantiateActor rebuilds an actor from its record through the actor
// registry and merges its dynamic state. A singleton is merged as well,
// after its restore handler if it has one.
func InstantiateActor(ctx context.Context, rec SerializedActor, regs *actor.Registries) actor.Actor {
	a := regs.Actors.Instantiate(ctx, actor.ActorRecord{
		TypeTag: rec.TypeTag,
		Name:    rec.InitProps.Name,
		Props:   rec.InitProps,
		State:   rec,
	}, regs.Env())
	MergeActor(ctx, a, rec, regs)
	return a
}

// resolveActor finds the actor named in rec in w, merging rec onto it, or
// instantiates and registers a new one.
func resolveActor(ctx context.Context, w *world.World, rec SerializedActor, regs *actor.Registries) actor.Actor {
	if a, ok := w.Find(rec.InitProps.Name); ok {
		MergeActor(ctx, a, rec, regs)
		return a
	}
	a := InstantiateActor(ctx, rec, regs)
	w.Register(a)
	return a
}

// RestoreWorld applies ws onto w: the player first, then the roster, then
// the map and camera, then each map's NPCs.
func RestoreWorld(ctx context.Context, w *world.World, ws *WorldState, regs *actor.Registries, logger *log.Logger) {
	if ws.Player != nil {
		w.SetPlayer(resolveActor(ctx, w, *ws.Player, regs))
	}
	for _, rec := range ws.Actors {
		resolveActor(ctx, w, rec, regs)
	}

	if ws.CurrentMap != "" {
		if err := w.GoToMap(ws.CurrentMap, ws.PlayerPosition); err != nil {
			logger.Printf("restore world: %v", err)
		}
	}
	w.SetCamera(ws.Camera)

	for mapID, npcs := range ws.NPCsByMap {
		m, ok := w.Map(mapID)
		if !ok {
			logger.Printf("restore world: npcs for unknown map %q", mapID)
			continue
		}
		for _, rec := range npcs {
			if existing := findNPC(m, rec.InitProps.Name); existing != nil {
				MergeActor(ctx, existing, rec, regs)
				continue
			}
			if err := w.AddNPC(mapID, resolveActor(ctx, w, rec, regs)); err != nil {
				logger.Printf("restore world: %v", err)
			}
		}
	}
}

func findNPC(m *world.Map, name string) actor.Actor {
	for _, a := range m.NPCs {
		if a.Base().Name == name {
			return a
		}
	}
	return nil
}
