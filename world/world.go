// Package world is a minimal in-memory stand-in for the tile world: maps
// with spawn points and resident NPCs, the roster of known actors, the
// selected player and the camera. Movement and collision live elsewhere.
package world

import (
	"fmt"
	"sort"

	"github.com/nathoo/sceneweaver/actor"
)

// Point is a tile position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Camera is the viewport over the current map.
type Camera struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Zoom limits applied on map change.
const (
	MinZoom = 1.2
	MaxZoom = 10
)

// Map is a named area.
type Map struct {
	ID    string
	Spawn Point
	NPCs  []actor.Actor
}

// World holds the actors and maps of a session.
type World struct {
	actors     []actor.Actor
	maps       map[string]*Map
	player     actor.Actor
	currentMap string
	camera     Camera
}

// New creates an empty world.
func New() *World {
	return &World{
		maps:   map[string]*Map{},
		camera: Camera{Zoom: MinZoom},
	}
}

// AddMap defines a map and returns it.
func (w *World) AddMap(id string, spawn Point) *Map {
	m := &Map{ID: id, Spawn: spawn}
	w.maps[id] = m
	return m
}

// Map returns a map by ID.
func (w *World) Map(id string) (*Map, bool) {
	m, ok := w.maps[id]
	return m, ok
}

// MapIDs returns the defined map IDs in sorted order.
func (w *World) MapIDs() []string {
	ids := make([]string, 0, len(w.maps))
	for id := range w.maps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Register adds an actor to the roster unless one with the same name is
// already known. It reports whether the actor was added.
func (w *World) Register(a actor.Actor) bool {
	if _, ok := w.Find(a.Base().Name); ok {
		return false
	}
	w.actors = append(w.actors, a)
	return true
}

// Find looks an actor up by name.
func (w *World) Find(name string) (actor.Actor, bool) {
	for _, a := range w.actors {
		if a.Base().Name == name {
			return a, true
		}
	}
	return nil, false
}

// Actors returns the roster in registration order.
func (w *World) Actors() []actor.Actor {
	out := make([]actor.Actor, len(w.actors))
	copy(out, w.actors)
	return out
}

// Player returns the selected player actor, or nil.
func (w *World) Player() actor.Actor { return w.player }

// SetPlayer selects the player actor and registers it.
func (w *World) SetPlayer(a actor.Actor) {
	w.player = a
	if a != nil {
		w.Register(a)
	}
}

// CurrentMap returns the current map ID, or "".
func (w *World) CurrentMap() string { return w.currentMap }

// GoToMap moves the player to a map, at pos when given or at the map's
// spawn point otherwise, and centers the camera on them.
func (w *World) GoToMap(id string, pos *Point) error {
	m, ok := w.maps[id]
	if !ok {
		return fmt.Errorf("map %q not found", id)
	}
	w.currentMap = id

	target := m.Spawn
	if pos != nil {
		target = *pos
	}
	if w.player != nil {
		c := w.player.Base()
		c.X, c.Y = target.X, target.Y
	}
	w.camera.X, w.camera.Y = target.X, target.Y
	w.camera.Zoom = min(max(w.camera.Zoom, MinZoom), MaxZoom)
	return nil
}

// Camera returns the camera state.
func (w *World) Camera() Camera { return w.camera }

// SetCamera replaces the camera state.
func (w *World) SetCamera(c Camera) { w.camera = c }

// AddNPC places an actor on a map and registers it.
func (w *World) AddNPC(mapID string, a actor.Actor) error {
	m, ok := w.maps[mapID]
	if !ok {
		return fmt.Errorf("map %q not found", mapID)
	}
	a.Base().IsNPC = true
	m.NPCs = append(m.NPCs, a)
	w.Register(a)
	return nil
}

// NPCsByMap returns the NPCs of every map that has any.
func (w *World) NPCsByMap() map[string][]actor.Actor {
	out := map[string][]actor.Actor{}
	for id, m := range w.maps {
		if len(m.NPCs) > 0 {
			npcs := make([]actor.Actor, len(m.NPCs))
			copy(npcs, m.NPCs)
			out[id] = npcs
		}
	}
	return out
}
