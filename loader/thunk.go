package loader

import (
	"errors"
	"fmt"

	"github.com/nathoo/sceneweaver/types"
	lua "github.com/yuin/gopher-lua"
)

// ErrClosed is returned by Defer thunks that run after their bundle was
// closed.
var ErrClosed = errors.New("script bundle closed")

// thunk wraps a Lua function as a Deferred producer. The function receives
// a scope table and returns a command, a list of commands, or nil.
func (b *Bundle) thunk(fn *lua.LFunction) func(types.Scope) (types.Command, error) {
	return func(s types.Scope) (types.Command, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.L == nil {
			return nil, ErrClosed
		}
		L := b.L

		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, scopeTable(L, s)); err != nil {
			return nil, fmt.Errorf("running deferred function: %w", err)
		}
		ret := L.Get(-1)
		L.Pop(1)

		if ret == lua.LNil {
			return nil, nil
		}
		cmd, err := compileCommand(ret, b)
		if err != nil {
			return nil, fmt.Errorf("deferred result: %w", err)
		}
		return cmd, nil
	}
}

// scopeTable exposes s to Lua. Functions work with both scope.f(x) and
// scope:f(x) call styles.
//
//	var(name)         session variable, nil when unset
//	hour()            current in-game hour
//	roll(sides)       1..sides
//	pick({weights})   1-based index, nil when every weight is zero
//	eval(cond)        condition result
//	quick_save(slot)  slot may be omitted
//	quick_load(slot)
func scopeTable(L *lua.LState, s types.Scope) *lua.LTable {
	tbl := L.NewTable()

	// arg returns the n-th user argument, skipping the receiver of a
	// method-style call.
	arg := func(L *lua.LState, n int) lua.LValue {
		if L.Get(1) == tbl {
			n++
		}
		return L.Get(n)
	}
	optString := func(L *lua.LState, n int) string {
		if v, ok := arg(L, n).(lua.LString); ok {
			return string(v)
		}
		return ""
	}
	number := func(L *lua.LState, n int) int {
		v, ok := arg(L, n).(lua.LNumber)
		if !ok {
			L.RaiseError("number expected")
		}
		return int(v)
	}

	fns := map[string]lua.LGFunction{
		"var": func(L *lua.LState) int {
			v, _ := s.Var(optString(L, 1))
			L.Push(toLuaValue(L, v))
			return 1
		},
		"hour": func(L *lua.LState) int {
			L.Push(lua.LNumber(s.Hour()))
			return 1
		},
		"roll": func(L *lua.LState) int {
			L.Push(lua.LNumber(s.Roll(number(L, 1))))
			return 1
		},
		"pick": func(L *lua.LState) int {
			list, ok := arg(L, 1).(*lua.LTable)
			if !ok {
				L.RaiseError("table of weights expected")
			}
			var weights []int
			for i := 1; i <= list.MaxN(); i++ {
				n, _ := list.RawGetInt(i).(lua.LNumber)
				weights = append(weights, int(n))
			}
			idx := s.Pick(weights)
			if idx < 0 {
				L.Push(lua.LNil)
			} else {
				L.Push(lua.LNumber(idx + 1))
			}
			return 1
		},
		"eval": func(L *lua.LState) int {
			c, err := compileCondition(arg(L, 1))
			if err != nil {
				L.RaiseError("%v", err)
			}
			L.Push(lua.LBool(s.Eval(c)))
			return 1
		},
		"quick_save": func(L *lua.LState) int {
			L.Push(lua.LBool(s.QuickSave(optString(L, 1))))
			return 1
		},
		"quick_load": func(L *lua.LState) int {
			L.Push(lua.LBool(s.QuickLoad(optString(L, 1))))
			return 1
		},
	}
	for name, fn := range fns {
		tbl.RawSetString(name, L.NewFunction(fn))
	}
	return tbl
}
