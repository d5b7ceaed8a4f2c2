// Package save implements session snapshots: capturing the narrative and
// the world into a JSON document, restoring them, and storing documents in
// named slots.
package save

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nathoo/sceneweaver/actor"
	"github.com/nathoo/sceneweaver/types"
	"github.com/nathoo/sceneweaver/world"
)

// FormatVersion is written into every snapshot.
const FormatVersion = "1"

// ErrSlotNotFound is returned by stores for a slot that holds no snapshot.
var ErrSlotNotFound = errors.New("save slot not found")

// Snapshot is the persisted form of a session.
type Snapshot struct {
	Timestamp int64       `json:"timestamp"` // unix milliseconds
	Version   string      `json:"version"`
	Game      string      `json:"game,omitempty"`
	Narrative Narrative   `json:"narrative"`
	World     *WorldState `json:"world,omitempty"`
}

// Narrative is the persisted interpreter state.
type Narrative struct {
	Variables     map[string]any       `json:"variables"`
	History       []types.HistoryEntry `json:"history"`
	CurrentScene  string               `json:"currentSceneId"`
	Cursor        int                  `json:"commandCursor"`
	LineRecorded  bool                 `json:"lineRecorded,omitempty"`
	ActiveActors  []string             `json:"activeActorIds"`
	Time          types.TimeState      `json:"timeState"`
	DefinedScenes []string             `json:"definedSceneIds"`
	Active        bool                 `json:"active"`
	RNGSeed       int64                `json:"rngSeed"`
	RNGPosition   int64                `json:"rngPosition"`
}

// WorldState is the persisted world.
type WorldState struct {
	Player         *SerializedActor             `json:"player"`
	Actors         []SerializedActor            `json:"actors"`
	CurrentMap     string                       `json:"currentMapId"`
	PlayerPosition *world.Point                 `json:"playerPosition,omitempty"`
	Camera         world.Camera                 `json:"camera"`
	NPCsByMap      map[string][]SerializedActor `json:"npcsByMap"`
}

// SerializedActor is the record of one actor: its type tag, the props that
// rebuild it and its dynamic state.
type SerializedActor struct {
	TypeTag    string              `json:"typeTag"`
	InitProps  actor.Props         `json:"initProps"`
	Position   world.Point         `json:"position"`
	Facing     string              `json:"facing"`
	AnimState  string              `json:"animState"`
	Inventory  []actor.Item        `json:"inventory"`
	Abilities  []SerializedAbility `json:"abilities"`
	Stats      map[string]int      `json:"stats"`
	Level      int                 `json:"level"`
	Experience int                 `json:"experience"`
	IsNPC      bool                `json:"isNPC"`
	Custom     map[string]any      `json:"customProps"`
}

// SerializedAbility is the record of one learned ability.
type SerializedAbility struct {
	TypeTag     string             `json:"typeTag"`
	InitProps   actor.AbilityProps `json:"initProps"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Icon        string             `json:"icon"`
	Targets     int                `json:"targetCount"`
	ManaCost    int                `json:"manaCost"`
	Level       int                `json:"level"`
	Cooldown    int                `json:"cooldown"`
	Remaining   int                `json:"currentCooldown"`
}

// Encode serializes a snapshot to JSON bytes.
func Encode(s *Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Decode deserializes JSON bytes into a snapshot.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	// Ensure collections are never nil after load.
	n := &s.Narrative
	if n.Variables == nil {
		n.Variables = map[string]any{}
	}
	if n.History == nil {
		n.History = []types.HistoryEntry{}
	}
	if n.ActiveActors == nil {
		n.ActiveActors = []string{}
	}
	if n.DefinedScenes == nil {
		n.DefinedScenes = []string{}
	}
	if w := s.World; w != nil {
		if w.NPCsByMap == nil {
			w.NPCsByMap = map[string][]SerializedActor{}
		}
		if w.Player != nil {
			normalizeActor(w.Player)
		}
		for i := range w.Actors {
			normalizeActor(&w.Actors[i])
		}
		for _, npcs := range w.NPCsByMap {
			for i := range npcs {
				normalizeActor(&npcs[i])
			}
		}
	}
	return &s, nil
}

func normalizeActor(a *SerializedActor) {
	if a.Inventory == nil {
		a.Inventory = []actor.Item{}
	}
	if a.Stats == nil {
		a.Stats = map[string]int{}
	}
	if a.Custom == nil {
		a.Custom = map[string]any{}
	}
}
