package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerConditionHelpers(L)
	registerCommandHelpers(L)
}

// newTagged returns a table whose "type" field names what it builds.
func newTagged(L *lua.LState, kind string) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("type", lua.LString(kind))
	return tbl
}

// varargs collects the arguments from index from onwards into an array
// table.
func varargs(L *lua.LState, from int) *lua.LTable {
	arr := L.NewTable()
	for i := from; i <= L.GetTop(); i++ {
		arr.Append(L.Get(i))
	}
	return arr
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", start = "intro", ... }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	// Scene "id" { cmd, cmd, ... } is curried: Scene("id") returns a
	// function that takes the command list.
	L.SetGlobal("Scene", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.scenes = append(coll.scenes, rawScene{id: id, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))

	// Actor "name" { type = "Dana", player = true, stats = {...} }
	L.SetGlobal("Actor", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.actors = append(coll.actors, rawActor{name: name, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))

	// Map "id" { spawn = { x = 1, y = 2 }, npcs = { "name", ... } }
	L.SetGlobal("Map", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.maps = append(coll.maps, rawMap{id: id, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))

	// GlobalMenu { Option {...}, ... }
	L.SetGlobal("GlobalMenu", L.NewFunction(func(L *lua.LState) int {
		coll.globalMenu = L.CheckTable(1)
		return 0
	}))
}

func registerConditionHelpers(L *lua.LState) {
	// Var("name") tests name == true, Var("name", v) tests name == v and
	// Var("name", op, v) compares with op.
	L.SetGlobal("Var", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "var")
		tbl.RawSetString("name", lua.LString(L.CheckString(1)))
		switch L.GetTop() {
		case 1:
			tbl.RawSetString("op", lua.LString("=="))
			tbl.RawSetString("value", lua.LTrue)
		case 2:
			tbl.RawSetString("op", lua.LString("=="))
			tbl.RawSetString("value", L.Get(2))
		default:
			tbl.RawSetString("op", lua.LString(L.CheckString(2)))
			tbl.RawSetString("value", L.Get(3))
		}
		L.Push(tbl)
		return 1
	}))

	// Time(hour) tests hour == h; Time(op, hour) compares with op.
	L.SetGlobal("Time", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "time")
		if L.GetTop() == 1 {
			tbl.RawSetString("op", lua.LString("=="))
			tbl.RawSetString("hour", L.CheckNumber(1))
		} else {
			tbl.RawSetString("op", lua.LString(L.CheckString(1)))
			tbl.RawSetString("hour", L.CheckNumber(2))
		}
		L.Push(tbl)
		return 1
	}))

	// And(c1, c2, ...)
	L.SetGlobal("And", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "and")
		tbl.RawSetString("conds", varargs(L, 1))
		L.Push(tbl)
		return 1
	}))

	// Or(c1, c2, ...)
	L.SetGlobal("Or", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "or")
		tbl.RawSetString("conds", varargs(L, 1))
		L.Push(tbl)
		return 1
	}))

	// Not(condition)
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "not")
		tbl.RawSetString("inner", L.Get(1))
		L.Push(tbl)
		return 1
	}))
}

func registerCommandHelpers(L *lua.LState) {
	// Say("speaker", "text", { voice = "...", alt = true })
	L.SetGlobal("Say", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "say")
		tbl.RawSetString("speaker", lua.LString(L.CheckString(1)))
		tbl.RawSetString("text", lua.LString(L.CheckString(2)))
		if opts := L.OptTable(3, nil); opts != nil {
			tbl.RawSetString("voice", opts.RawGetString("voice"))
			tbl.RawSetString("alt", opts.RawGetString("alt"))
		}
		L.Push(tbl)
		return 1
	}))

	// Narrate("text") is Say without a speaker.
	L.SetGlobal("Narrate", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "say")
		tbl.RawSetString("speaker", lua.LString(""))
		tbl.RawSetString("text", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// Show("id", { image = "...", frames = {...}, position = "left" })
	L.SetGlobal("Show", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "show")
		tbl.RawSetString("id", lua.LString(L.CheckString(1)))
		switch v := L.Get(2).(type) {
		case lua.LString:
			tbl.RawSetString("image", v)
		case *lua.LTable:
			tbl.RawSetString("image", v.RawGetString("image"))
			tbl.RawSetString("frames", v.RawGetString("frames"))
			tbl.RawSetString("position", v.RawGetString("position"))
		}
		L.Push(tbl)
		return 1
	}))

	// Hide("id")
	L.SetGlobal("Hide", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "hide")
		tbl.RawSetString("id", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// Background("ref") or Background { image = "...", video = "...",
	// audio = "...", time_aware = true, loop = false }
	L.SetGlobal("Background", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "background")
		switch v := L.CheckAny(1).(type) {
		case lua.LString:
			tbl.RawSetString("image", v)
		case *lua.LTable:
			v.ForEach(func(k, val lua.LValue) {
				if k.String() != "type" {
					tbl.RawSet(k, val)
				}
			})
		default:
			L.ArgError(1, "string or table expected")
		}
		L.Push(tbl)
		return 1
	}))

	// Audio("ref", loop)
	L.SetGlobal("Audio", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "audio")
		tbl.RawSetString("ref", lua.LString(L.CheckString(1)))
		tbl.RawSetString("loop", lua.LBool(L.OptBool(2, false)))
		L.Push(tbl)
		return 1
	}))

	// Jump("scene")
	L.SetGlobal("Jump", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "jump")
		tbl.RawSetString("target", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// Choice { Option {...}, ... }
	L.SetGlobal("Choice", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "choice")
		tbl.RawSetString("options", L.CheckTable(1))
		L.Push(tbl)
		return 1
	}))

	// Option { label = "...", class = "tab", icon = "...", visible = cond,
	// layout = { x =, y =, width =, height = }, cmd, cmd, ... }
	L.SetGlobal("Option", L.NewFunction(func(L *lua.LState) int {
		src := L.CheckTable(1)
		tbl := newTagged(L, "option")
		src.ForEach(func(k, v lua.LValue) {
			if k.String() != "type" {
				tbl.RawSet(k, v)
			}
		})
		L.Push(tbl)
		return 1
	}))

	// Set("name", value)
	L.SetGlobal("Set", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "set")
		tbl.RawSetString("name", lua.LString(L.CheckString(1)))
		tbl.RawSetString("value", L.CheckAny(2))
		L.Push(tbl)
		return 1
	}))

	// Add("name", delta)
	L.SetGlobal("Add", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "add")
		tbl.RawSetString("name", lua.LString(L.CheckString(1)))
		tbl.RawSetString("delta", L.OptNumber(2, 1))
		L.Push(tbl)
		return 1
	}))

	// Sub("name", delta)
	L.SetGlobal("Sub", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "sub")
		tbl.RawSetString("name", lua.LString(L.CheckString(1)))
		tbl.RawSetString("delta", L.OptNumber(2, 1))
		L.Push(tbl)
		return 1
	}))

	// If(cond, { then... }, { else... })
	L.SetGlobal("If", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "if")
		tbl.RawSetString("cond", L.CheckAny(1))
		tbl.RawSetString("then", L.CheckTable(2))
		if els := L.OptTable(3, nil); els != nil {
			tbl.RawSetString("else", els)
		}
		L.Push(tbl)
		return 1
	}))

	// Wait(ms)
	L.SetGlobal("Wait", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "wait")
		tbl.RawSetString("ms", L.CheckNumber(1))
		L.Push(tbl)
		return 1
	}))

	// Block { cmd, cmd, ... }
	L.SetGlobal("Block", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "block")
		tbl.RawSetString("commands", L.CheckTable(1))
		L.Push(tbl)
		return 1
	}))

	// Defer(function(scope) return Say(...) end) computes its command when
	// it is reached.
	L.SetGlobal("Defer", L.NewFunction(func(L *lua.LState) int {
		tbl := newTagged(L, "defer")
		tbl.RawSetString("fn", L.CheckFunction(1))
		L.Push(tbl)
		return 1
	}))
}
