package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/nathoo/sceneweaver/engine/state"
	lua "github.com/yuin/gopher-lua"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	game       *lua.LTable
	scenes     []rawScene
	actors     []rawActor
	maps       []rawMap
	globalMenu *lua.LTable
}

// Bundle is loaded script content. Deferred commands call back into the Lua
// VM that defined them, so the VM lives as long as the bundle; Close it when
// the session ends.
type Bundle struct {
	Defs     *state.Defs
	Warnings []string

	mu sync.Mutex
	L  *lua.LState
}

// Close releases the Lua VM. Deferred commands fail after Close.
func (b *Bundle) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.L != nil {
		b.L.Close()
		b.L = nil
	}
}

// Load reads all .lua files from dir, compiles them into scene definitions
// and validates references.
func Load(dir string) (*Bundle, error) {
	b, err := LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", dir, err)
	}
	return b, nil
}

// LoadFS is Load over an fs.FS. Only files at the root are read.
func LoadFS(fsys fs.FS) (*Bundle, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading script directory: %w", err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found")
	}

	// game.lua first, rest alphabetical.
	luaFiles = sortedLuaFiles(luaFiles)

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)

	b := &Bundle{L: L}
	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		src, err := fs.ReadFile(fsys, f)
		if err != nil {
			L.Close()
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		fn, err := L.Load(strings.NewReader(string(src)), path.Base(f))
		if err != nil {
			L.Close()
			return nil, fmt.Errorf("parsing %s: %w", f, err)
		}
		L.Push(fn)
		if err := L.PCall(0, lua.MultRet, nil); err != nil {
			L.Close()
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	defs, err := compile(coll, b)
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("compiling scripts: %w", err)
	}
	warnings, err := validate(defs)
	if err != nil {
		L.Close()
		return nil, err
	}

	b.Defs = defs
	b.Warnings = warnings
	return b, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "print",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Dice go through scope.roll so that saves can replay them.
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
		tbl.RawSetString("random", lua.LNil)
	}
}

// sortedLuaFiles returns .lua file names with game.lua first and the rest
// sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
