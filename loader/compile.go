// Package loader loads Lua scene scripts into Go command trees. Everything
// except Defer thunks is compiled up front; thunks keep a handle on the VM
// and run when the interpreter reaches them.
package loader

import (
	"fmt"

	"github.com/nathoo/sceneweaver/engine/choice"
	"github.com/nathoo/sceneweaver/engine/state"
	"github.com/nathoo/sceneweaver/types"
	lua "github.com/yuin/gopher-lua"
)

// rawScene holds a scene's command list before compilation.
type rawScene struct {
	id    string
	table *lua.LTable
}

// rawActor holds an actor declaration before compilation.
type rawActor struct {
	name  string
	table *lua.LTable
}

// rawMap holds a map declaration before compilation.
type rawMap struct {
	id    string
	table *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// toGoValue converts a Lua value to a Go value recursively.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LNilType:
		return nil
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Sequential integer keys starting at 1 make an array.
		maxN := val.MaxN()
		if maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

// toLuaValue converts a Go value to a Lua value.
func toLuaValue(L *lua.LState, v any) lua.LValue {
	switch val := state.Normalize(v).(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(toLuaValue(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, toLuaValue(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

// stringList returns the string elements of an array table.
func stringList(tbl *lua.LTable) []string {
	if tbl == nil {
		return nil
	}
	var out []string
	for i := 1; i <= tbl.MaxN(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// tableToAnyMap converts the string-keyed fields of a Lua table to a
// map[string]any, skipping the named keys.
func tableToAnyMap(tbl *lua.LTable, skip ...string) map[string]any {
	if tbl == nil {
		return nil
	}
	skipped := map[string]bool{}
	for _, k := range skip {
		skipped[k] = true
	}
	m := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok && !skipped[string(ks)] {
			m[string(ks)] = toGoValue(v)
		}
	})
	return m
}

// compile converts all collected Lua data into a Defs struct. b is the
// bundle Defer thunks run against.
func compile(coll *collector, b *Bundle) (*state.Defs, error) {
	defs := &state.Defs{
		Scenes: map[string][]types.Command{},
	}

	if coll.game == nil {
		return nil, fmt.Errorf("no Game{} definition found")
	}
	defs.Game = compileGame(coll.game)

	for _, raw := range coll.scenes {
		if _, dup := defs.Scenes[raw.id]; dup {
			return nil, fmt.Errorf("scene %q defined twice", raw.id)
		}
		cmds, err := compileCommands(raw.table, b)
		if err != nil {
			return nil, fmt.Errorf("compiling scene %s: %w", raw.id, err)
		}
		defs.Scenes[raw.id] = cmds
	}

	if coll.globalMenu != nil {
		opts, err := compileOptions(coll.globalMenu, b)
		if err != nil {
			return nil, fmt.Errorf("compiling global menu: %w", err)
		}
		defs.GlobalMenu = opts
	}

	for _, raw := range coll.actors {
		defs.Actors = append(defs.Actors, compileActor(raw))
	}
	for _, raw := range coll.maps {
		defs.Maps = append(defs.Maps, compileMap(raw))
	}

	return defs, nil
}

func compileGame(tbl *lua.LTable) types.GameDef {
	return types.GameDef{
		Title:   getString(tbl, "title"),
		Author:  getString(tbl, "author"),
		Version: getString(tbl, "version"),
		Start:   getString(tbl, "start"),
		Intro:   getString(tbl, "intro"),
	}
}

func compileActor(raw rawActor) types.ActorDef {
	return types.ActorDef{
		Name:   raw.name,
		Type:   getString(raw.table, "type"),
		Player: getBool(raw.table, "player", false),
		Props:  tableToAnyMap(raw.table, "type", "player"),
	}
}

func compileMap(raw rawMap) types.MapDef {
	m := types.MapDef{
		ID:   raw.id,
		NPCs: stringList(getTable(raw.table, "npcs")),
	}
	if spawn := getTable(raw.table, "spawn"); spawn != nil {
		m.SpawnX = getNumber(spawn, "x")
		m.SpawnY = getNumber(spawn, "y")
	}
	return m
}

// compileCommands compiles the array part of tbl.
func compileCommands(tbl *lua.LTable, b *Bundle) ([]types.Command, error) {
	if tbl == nil {
		return nil, nil
	}
	var cmds []types.Command
	for i := 1; i <= tbl.MaxN(); i++ {
		v := tbl.RawGetInt(i)
		if v == lua.LNil {
			continue
		}
		cmd, err := compileCommand(v, b)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

// compileCommand compiles one command table. A plain list of commands
// compiles to a Block.
func compileCommand(v lua.LValue, b *Bundle) (types.Command, error) {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("expected a command, got %s", v.Type())
	}

	switch kind := getString(tbl, "type"); kind {
	case "say":
		return types.Say{
			Speaker: getString(tbl, "speaker"),
			Text:    getString(tbl, "text"),
			Audio:   getString(tbl, "voice"),
			Alt:     getBool(tbl, "alt", false),
		}, nil

	case "show":
		return types.ShowActor{
			ID:       getString(tbl, "id"),
			Image:    getString(tbl, "image"),
			Frames:   stringList(getTable(tbl, "frames")),
			Position: getString(tbl, "position"),
		}, nil

	case "hide":
		return types.HideActor{ID: getString(tbl, "id")}, nil

	case "background":
		return types.SetBackground{
			Image:     getString(tbl, "image"),
			Video:     getString(tbl, "video"),
			Audio:     getString(tbl, "audio"),
			TimeAware: getBool(tbl, "time_aware", false),
			Loop:      getBool(tbl, "loop", true),
		}, nil

	case "audio":
		return types.PlayAudio{Ref: getString(tbl, "ref"), Loop: getBool(tbl, "loop", false)}, nil

	case "jump":
		return types.Jump{Target: getString(tbl, "target")}, nil

	case "choice":
		opts, err := compileOptions(getTable(tbl, "options"), b)
		if err != nil {
			return nil, err
		}
		return types.Choice{Options: opts}, nil

	case "set":
		return types.SetVar{Name: getString(tbl, "name"), Value: toGoValue(tbl.RawGetString("value"))}, nil

	case "add":
		return types.AddVar{Name: getString(tbl, "name"), Delta: getNumber(tbl, "delta")}, nil

	case "sub":
		return types.SubVar{Name: getString(tbl, "name"), Delta: getNumber(tbl, "delta")}, nil

	case "if":
		cond, err := compileCondition(tbl.RawGetString("cond"))
		if err != nil {
			return nil, err
		}
		then, err := compileCommands(getTable(tbl, "then"), b)
		if err != nil {
			return nil, fmt.Errorf("then: %w", err)
		}
		var els []types.Command
		if elseTbl := getTable(tbl, "else"); elseTbl != nil {
			if els, err = compileCommands(elseTbl, b); err != nil {
				return nil, fmt.Errorf("else: %w", err)
			}
		}
		return types.If{Cond: cond, Then: then, Else: els}, nil

	case "wait":
		return types.Wait{Duration: getInt(tbl, "ms")}, nil

	case "block":
		cmds, err := compileCommands(getTable(tbl, "commands"), b)
		if err != nil {
			return nil, err
		}
		return types.Block{Commands: cmds}, nil

	case "defer":
		fn, ok := tbl.RawGetString("fn").(*lua.LFunction)
		if !ok {
			return nil, fmt.Errorf("defer needs a function")
		}
		return types.Deferred{Produce: b.thunk(fn)}, nil

	case "":
		cmds, err := compileCommands(tbl, b)
		if err != nil {
			return nil, err
		}
		return types.Block{Commands: cmds}, nil

	default:
		return nil, fmt.Errorf("unknown command type %q", kind)
	}
}

// compileOptions compiles a list of Option tables.
func compileOptions(tbl *lua.LTable, b *Bundle) ([]types.ChoiceOption, error) {
	if tbl == nil {
		return nil, nil
	}
	var opts []types.ChoiceOption
	for i := 1; i <= tbl.MaxN(); i++ {
		optTbl, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok || getString(optTbl, "type") != "option" {
			return nil, fmt.Errorf("choice entry %d is not an Option", i)
		}
		opt, err := compileOption(optTbl, b)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", getString(optTbl, "label"), err)
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

func compileOption(tbl *lua.LTable, b *Bundle) (types.ChoiceOption, error) {
	opt := types.ChoiceOption{
		Label: getString(tbl, "label"),
		Class: choice.ParseClass(getString(tbl, "class")),
		Icon:  getString(tbl, "icon"),
	}

	action, err := compileCommands(tbl, b)
	if err != nil {
		return opt, err
	}
	opt.Action = action

	if v := tbl.RawGetString("visible"); v != lua.LNil {
		if opt.Visible, err = compileCondition(v); err != nil {
			return opt, fmt.Errorf("visible: %w", err)
		}
	}

	if layout := getTable(tbl, "layout"); layout != nil {
		opt.Layout = &types.Layout{
			X:      getNumber(layout, "x"),
			Y:      getNumber(layout, "y"),
			Width:  getNumber(layout, "width"),
			Height: getNumber(layout, "height"),
		}
	}
	return opt, nil
}

// compileCondition compiles a condition table. nil means always true and
// Lua booleans become literals.
func compileCondition(v lua.LValue) (types.Condition, error) {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return types.Literal(bool(val)), nil
	case *lua.LTable:
		return compileConditionTable(val)
	default:
		return nil, fmt.Errorf("expected a condition, got %s", v.Type())
	}
}

func compileConditionTable(tbl *lua.LTable) (types.Condition, error) {
	switch kind := getString(tbl, "type"); kind {
	case "var":
		return types.Var{
			Name:  getString(tbl, "name"),
			Op:    getString(tbl, "op"),
			Value: toGoValue(tbl.RawGetString("value")),
		}, nil

	case "time":
		return types.TimeOfDay{Op: getString(tbl, "op"), Hour: getInt(tbl, "hour")}, nil

	case "and", "or":
		var conds []types.Condition
		if list := getTable(tbl, "conds"); list != nil {
			for i := 1; i <= list.MaxN(); i++ {
				c, err := compileCondition(list.RawGetInt(i))
				if err != nil {
					return nil, err
				}
				conds = append(conds, c)
			}
		}
		if kind == "and" {
			return types.And{Conds: conds}, nil
		}
		return types.Or{Conds: conds}, nil

	case "not":
		inner, err := compileCondition(tbl.RawGetString("inner"))
		if err != nil {
			return nil, err
		}
		return types.Not{Cond: inner}, nil

	default:
		return nil, fmt.Errorf("unknown condition type %q", kind)
	}
}
