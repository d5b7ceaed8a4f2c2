package mcp

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nathoo/sceneweaver/engine/condition"
	"github.com/nathoo/sceneweaver/engine/save"
	"github.com/nathoo/sceneweaver/types"
)

type ListSlotsInput struct{}

type InspectSlotInput struct {
	Slot    string `json:"slot" jsonschema:"save slot name"`
	History int    `json:"history,omitempty" jsonschema:"number of most recent dialogue lines to include"`
}

type EvaluateConditionInput struct {
	Slot     string `json:"slot" jsonschema:"save slot name"`
	Variable string `json:"variable,omitempty" jsonschema:"variable to compare; leave empty to compare the hour"`
	Op       string `json:"op" jsonschema:"one of ==, !=, >, <, >=, <="`
	Value    string `json:"value,omitempty" jsonschema:"value to compare the variable against"`
	Hour     int    `json:"hour,omitempty" jsonschema:"hour to compare the in-game clock against"`
}

type ListScenesInput struct{}

type SlotOutput struct {
	Slot      string `json:"slot"`
	Timestamp int64  `json:"timestamp"`
	Scene     string `json:"scene,omitempty"`
	Map       string `json:"map,omitempty"`
	Actor     string `json:"actor,omitempty"`
	Readable  bool   `json:"readable"`
}

type ListSlotsOutput struct {
	Slots []SlotOutput `json:"slots"`
}

type LineOutput struct {
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
}

type ActorOutput struct {
	Name  string         `json:"name"`
	Type  string         `json:"type"`
	Level int            `json:"level"`
	Stats map[string]int `json:"stats,omitempty"`
	Items []string       `json:"items,omitempty"`
}

type InspectSlotOutput struct {
	Slot         string         `json:"slot"`
	Timestamp    int64          `json:"timestamp"`
	Version      string         `json:"version"`
	Game         string         `json:"game,omitempty"`
	Scene        string         `json:"scene"`
	Cursor       int            `json:"cursor"`
	Active       bool           `json:"active"`
	Hour         int            `json:"hour"`
	Minute       int            `json:"minute"`
	Variables    map[string]any `json:"variables"`
	ActiveActors []string       `json:"active_actors"`
	History      []LineOutput   `json:"history"`
	Map          string         `json:"map,omitempty"`
	Player       *ActorOutput   `json:"player,omitempty"`
	Actors       []ActorOutput  `json:"actors,omitempty"`
}

type EvaluateConditionOutput struct {
	Result  bool `json:"result"`
	Current any  `json:"current"`
}

type SceneOutput struct {
	ID       string `json:"id"`
	Commands int    `json:"commands"`
}

type ListScenesOutput struct {
	Title  string        `json:"title,omitempty"`
	Start  string        `json:"start,omitempty"`
	Scenes []SceneOutput `json:"scenes"`
}

var validOps = map[string]bool{"==": true, "!=": true, ">": true, "<": true, ">=": true, "<=": true}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_slots",
		Description: "List save slots, newest first",
	}, s.handleListSlots)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "inspect_slot",
		Description: "Show the narrative and world state stored in a save slot",
	}, s.handleInspectSlot)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "evaluate_condition",
		Description: "Evaluate a variable or time-of-day condition against a save slot",
	}, s.handleEvaluateCondition)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_scenes",
		Description: "List the scenes defined by the loaded script",
	}, s.handleListScenes)
}

func (s *Server) handleListSlots(ctx context.Context, req *sdk.CallToolRequest, input ListSlotsInput) (*sdk.CallToolResult, ListSlotsOutput, error) {
	infos, err := save.ListSlots(ctx, s.store)
	if err != nil {
		return nil, ListSlotsOutput{}, err
	}

	output := make([]SlotOutput, 0, len(infos))
	for _, info := range infos {
		output = append(output, SlotOutput{
			Slot:      info.Slot,
			Timestamp: info.Timestamp,
			Scene:     info.SceneID,
			Map:       info.MapID,
			Actor:     info.ActorName,
			Readable:  info.Timestamp > 0,
		})
	}
	return nil, ListSlotsOutput{Slots: output}, nil
}

func (s *Server) handleInspectSlot(ctx context.Context, req *sdk.CallToolRequest, input InspectSlotInput) (*sdk.CallToolResult, InspectSlotOutput, error) {
	snap, err := s.read(ctx, input.Slot)
	if err != nil {
		return nil, InspectSlotOutput{}, err
	}
	return nil, inspectOutputFromSnapshot(input.Slot, snap, input.History), nil
}

func (s *Server) handleEvaluateCondition(ctx context.Context, req *sdk.CallToolRequest, input EvaluateConditionInput) (*sdk.CallToolResult, EvaluateConditionOutput, error) {
	if !validOps[input.Op] {
		return nil, EvaluateConditionOutput{}, fmt.Errorf("unknown operator %q", input.Op)
	}
	snap, err := s.read(ctx, input.Slot)
	if err != nil {
		return nil, EvaluateConditionOutput{}, err
	}

	n := snap.Narrative
	env := condition.MapEnv{Vars: n.Variables, HourNow: n.Time.Hour}
	if input.Variable == "" {
		c := types.TimeOfDay{Op: input.Op, Hour: input.Hour}
		return nil, EvaluateConditionOutput{Result: condition.Evaluate(c, env), Current: n.Time.Hour}, nil
	}

	c := types.Var{Name: input.Variable, Op: input.Op, Value: parseValue(input.Value)}
	current, _ := env.Var(input.Variable)
	return nil, EvaluateConditionOutput{Result: condition.Evaluate(c, env), Current: current}, nil
}

func (s *Server) handleListScenes(ctx context.Context, req *sdk.CallToolRequest, input ListScenesInput) (*sdk.CallToolResult, ListScenesOutput, error) {
	if s.defs == nil {
		return nil, ListScenesOutput{Scenes: []SceneOutput{}}, nil
	}

	out := ListScenesOutput{
		Title:  s.defs.Game.Title,
		Start:  s.defs.Game.Start,
		Scenes: make([]SceneOutput, 0, len(s.defs.Scenes)),
	}
	for id, cmds := range s.defs.Scenes {
		out.Scenes = append(out.Scenes, SceneOutput{ID: id, Commands: len(cmds)})
	}
	sort.Slice(out.Scenes, func(i, j int) bool { return out.Scenes[i].ID < out.Scenes[j].ID })
	return nil, out, nil
}

func (s *Server) read(ctx context.Context, slot string) (*save.Snapshot, error) {
	if slot == "" {
		return nil, fmt.Errorf("slot is required")
	}
	data, err := s.store.Get(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("loading slot %q: %w", slot, err)
	}
	snap, err := save.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("loading slot %q: %w", slot, err)
	}
	return snap, nil
}

// parseValue reads a comparison operand the way scripts write them:
// numbers and booleans are typed, anything else is a string.
func parseValue(v string) any {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

func inspectOutputFromSnapshot(slot string, snap *save.Snapshot, history int) InspectSlotOutput {
	n := snap.Narrative
	out := InspectSlotOutput{
		Slot:         slot,
		Timestamp:    snap.Timestamp,
		Version:      snap.Version,
		Game:         snap.Game,
		Scene:        n.CurrentScene,
		Cursor:       n.Cursor,
		Active:       n.Active,
		Hour:         n.Time.Hour,
		Minute:       n.Time.Minute,
		Variables:    n.Variables,
		ActiveActors: n.ActiveActors,
		History:      []LineOutput{},
	}

	lines := n.History
	if history > 0 && len(lines) > history {
		lines = lines[len(lines)-history:]
	}
	for _, h := range lines {
		out.History = append(out.History, LineOutput{Speaker: h.Speaker, Text: h.Text})
	}

	if w := snap.World; w != nil {
		out.Map = w.CurrentMap
		if w.Player != nil {
			p := actorOutputFromRecord(*w.Player)
			out.Player = &p
		}
		for _, a := range w.Actors {
			out.Actors = append(out.Actors, actorOutputFromRecord(a))
		}
	}
	return out
}

func actorOutputFromRecord(rec save.SerializedActor) ActorOutput {
	out := ActorOutput{
		Name:  rec.InitProps.Name,
		Type:  rec.TypeTag,
		Level: rec.Level,
		Stats: rec.Stats,
	}
	for _, it := range rec.Inventory {
		out.Items = append(out.Items, it.Name)
	}
	return out
}
