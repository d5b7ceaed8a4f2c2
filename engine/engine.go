// Package engine implements the narrative interpreter: it runs scene
// scripts command by command, suspends on player input, timers and media,
// and hands everything observable to a Presenter.
//
// Execution is cooperative. Any number of execution paths may exist (the
// running scene, actions of non-blocking menus), but only the path holding
// the execution token touches session state; paths trade the token only
// while suspended.
package engine

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nathoo/sceneweaver/engine/assets"
	"github.com/nathoo/sceneweaver/engine/condition"
	"github.com/nathoo/sceneweaver/engine/events"
	"github.com/nathoo/sceneweaver/engine/state"
	"github.com/nathoo/sceneweaver/types"
)

// Options tunes timing and collaborators. Zero durations disable the
// corresponding wait.
type Options struct {
	Logger          *log.Logger
	Assets          *assets.Resolver
	TransitionDelay time.Duration
	MinDwell        time.Duration
	VideoTimeout    time.Duration
	Seed            int64
}

// DefaultOptions returns the timings used by interactive hosts.
func DefaultOptions() Options {
	return Options{
		TransitionDelay: 300 * time.Millisecond,
		MinDwell:        time.Second,
		VideoTimeout:    5 * time.Second,
	}
}

// Autosaver persists and restores the session on behalf of the engine.
// Both methods are called while the execution token is held and must not
// call back into token-acquiring engine methods. An empty slot means the
// default quick-save slot.
type Autosaver interface {
	Autosave(ctx context.Context, slot string) bool
	Autoload(ctx context.Context, slot string) bool
}

// Engine is one narrative session.
type Engine struct {
	Defs   *state.Defs
	State  *types.ExecutionState
	RNG    *RNG
	Events *events.Bus

	presenter Presenter
	assets    *assets.Resolver
	logger    *log.Logger
	opts      Options
	saver     Autosaver

	baseCtx context.Context
	cancel  context.CancelFunc

	// mu is the execution token.
	mu        sync.Mutex
	epoch     atomic.Uint64
	epochCh   chan struct{} // closed when the scene generation changes
	pending   *sceneRequest
	jumpOwner *path

	// inMu guards input and path bookkeeping. It is never held while
	// calling the presenter.
	inMu      sync.Mutex
	paths     int
	pathSeq   uint64
	awaiting  int
	waiters   []*waiter
	changedCh chan struct{}
	menus     map[int]*openMenu
	nextMenu  int
}

type sceneRequest struct {
	scene   string
	cursor  int
	resumed bool
}

// path is one execution path. epoch is the scene generation it belongs to;
// once the engine moves past it the path stops at its next boundary. seq
// orders paths by creation. scene marks the path running the current scene,
// and resumed is set while it re-enters a command whose line is already in
// the history.
type path struct {
	epoch   uint64
	seq     uint64
	scene   bool
	resumed bool
}

// New creates an engine over defs that renders through p.
func New(defs *state.Defs, p Presenter, opts Options) *Engine {
	if defs == nil {
		defs = &state.Defs{}
	}
	if defs.Scenes == nil {
		defs.Scenes = map[string][]types.Command{}
	}
	if p == nil {
		p = NopPresenter{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Assets == nil {
		opts.Assets = assets.New(nil)
	}

	s := state.NewState()
	s.RNGSeed = opts.Seed

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		Defs:      defs,
		State:     s,
		RNG:       NewRNG(opts.Seed),
		Events:    &events.Bus{},
		presenter: p,
		assets:    opts.Assets,
		logger:    opts.Logger,
		opts:      opts,
		baseCtx:   ctx,
		cancel:    cancel,
		epochCh:   make(chan struct{}),
		changedCh: make(chan struct{}),
		menus:     map[int]*openMenu{},
	}
}

// SetAutosaver wires the persistence layer used by Jump autosaves and by
// QuickSave/QuickLoad.
func (e *Engine) SetAutosaver(a Autosaver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saver = a
}

// RestoreRNG re-creates the RNG from seed and advances to position. The
// caller must hold the token (use Exclusive or an Autosaver hook).
func (e *Engine) RestoreRNG(seed, position int64) {
	e.RNG = RestoreRNG(seed, position)
	e.State.RNGSeed = seed
	e.State.RNGPosition = position
}

// DefineScene registers or replaces a scene.
func (e *Engine) DefineScene(id string, cmds []types.Command) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Defs.Scenes[id] = cmds
}

// Launch starts sceneID on a new execution path and returns a channel that
// is closed when the path ends. Starting a scene supersedes whatever was
// running. An undefined scene is logged and the path ends immediately.
func (e *Engine) Launch(ctx context.Context, sceneID string) <-chan struct{} {
	return e.spawn(ctx, func(context.Context, *path) {
		e.requestScene(sceneID, 0)
	})
}

// StartScene runs sceneID and blocks until its execution path ends.
func (e *Engine) StartScene(ctx context.Context, sceneID string) {
	<-e.Launch(ctx, sceneID)
}

// Start runs the game's start scene on a new path.
func (e *Engine) Start(ctx context.Context) <-chan struct{} {
	return e.Launch(ctx, e.Defs.Game.Start)
}

// Stop deactivates the session: running paths end at their next boundary,
// pending waits are released and scene menus are cleared.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.State.Active = false
	e.pending = nil
	e.nextEpoch()
	e.releaseAll()
	e.clearMenus()
}

// Close stops the session and cancels detached paths.
func (e *Engine) Close() {
	e.Stop()
	e.cancel()
}

// Exclusive runs fn while holding the execution token, so that fn sees a
// consistent state between suspensions.
func (e *Engine) Exclusive(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// Reload runs restore while holding the token. When restore succeeds the
// session is re-entered at the restored scene and cursor if it was active.
func (e *Engine) Reload(ctx context.Context, restore func() bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !restore() {
		return false
	}
	e.relaunch()
	if e.pending != nil && e.pathCount() == 0 {
		e.spawn(ctx, nil)
	}
	e.emit(events.Loaded, map[string]any{"scene": e.State.CurrentScene})
	return true
}

// QuickSave saves the session to slot ("" for the default slot).
func (e *Engine) QuickSave(ctx context.Context, slot string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.autosave(ctx, slot)
}

// QuickLoad restores the session from slot ("" for the default slot) and
// re-enters the saved scene.
func (e *Engine) QuickLoad(ctx context.Context, slot string) bool {
	e.mu.Lock()
	saver := e.saver
	e.mu.Unlock()
	if saver == nil {
		return false
	}
	return e.Reload(ctx, func() bool { return saver.Autoload(ctx, slot) })
}

// Evaluate evaluates a condition against the session.
func (e *Engine) Evaluate(c types.Condition) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return condition.Evaluate(c, e.env())
}

// AdvanceTime moves the in-game clock forward.
func (e *Engine) AdvanceTime(minutes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state.AdvanceTime(e.State, minutes)
}

// Var returns a session variable.
func (e *Engine) Var(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return state.GetVar(e.State, name)
}

// History returns a copy of the dialogue history.
func (e *Engine) History() []types.HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.HistoryEntry, len(e.State.History))
	copy(out, e.State.History)
	return out
}

// requestScene schedules id to run at cursor on the next path that drains.
// Everything belonging to the previous scene generation is released. It
// reports false, changing nothing, when id is not defined.
func (e *Engine) requestScene(id string, cursor int) bool {
	cmds, ok := e.Defs.Scenes[id]
	if !ok {
		e.logf("start scene %q: not defined", id)
		return false
	}
	if cursor < 0 || cursor > len(cmds) {
		cursor = 0
	}

	e.nextEpoch()
	e.State.CurrentScene = id
	e.State.Cursor = cursor
	e.State.LineRecorded = false
	e.State.Active = true
	e.State.JumpRequested = false
	e.jumpOwner = nil
	e.pending = &sceneRequest{scene: id, cursor: cursor}

	e.releaseAll()
	e.clearMenus()
	return true
}

// relaunch re-enters the current scene after a restore. A line already
// recorded at the saved cursor is shown again but not recorded twice.
func (e *Engine) relaunch() {
	if e.State.Active && e.State.CurrentScene != "" {
		resumed := e.State.LineRecorded
		if e.requestScene(e.State.CurrentScene, e.State.Cursor) {
			e.pending.resumed = resumed
			return
		}
	}
	e.pending = nil
	e.nextEpoch()
	e.releaseAll()
	e.clearMenus()
}

// nextEpoch moves to a new scene generation and wakes every path sleeping
// in the old one. The token must be held.
func (e *Engine) nextEpoch() {
	e.epoch.Add(1)
	close(e.epochCh)
	e.epochCh = make(chan struct{})
}

// spawn starts an execution path. The path is counted before spawn returns
// so that WaitIdle never misses it.
func (e *Engine) spawn(ctx context.Context, first func(context.Context, *path)) <-chan struct{} {
	done := make(chan struct{})
	p := &path{epoch: e.epoch.Load(), seq: e.beginPath()}

	go func() {
		defer close(done)
		e.mu.Lock()
		defer func() {
			e.endPath()
			e.mu.Unlock()
		}()

		if first != nil {
			e.guard("path", func() { first(ctx, p) })
		}
		e.drain(ctx, p)
	}()
	return done
}

// drain runs requested scenes until none is pending.
func (e *Engine) drain(ctx context.Context, p *path) {
	for e.pending != nil && ctx.Err() == nil {
		req := *e.pending
		e.pending = nil
		p.epoch = e.epoch.Load()
		p.scene = true
		p.resumed = req.resumed
		e.guard("scene "+req.scene, func() { e.runScene(ctx, p, req.scene, req.cursor) })
	}
}

func (e *Engine) runScene(ctx context.Context, p *path, id string, cursor int) {
	cmds := e.Defs.Scenes[id]
	e.emit(events.SceneStarted, map[string]any{"scene": id, "cursor": cursor})
	e.executeBlock(ctx, p, cmds[cursor:], id, 0, cursor)
}

// guard recovers a panic escaping fn so that one bad script never takes the
// host down.
func (e *Engine) guard(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logf("%s: recovered: %v", what, r)
			e.emit(events.ScriptError, map[string]any{"where": what, "error": r})
		}
	}()
	fn()
}

func (e *Engine) autosave(ctx context.Context, slot string) bool {
	if e.saver == nil {
		return false
	}
	ok := e.saver.Autosave(ctx, slot)
	if ok {
		e.emit(events.Saved, map[string]any{"slot": slot})
	}
	return ok
}

func (e *Engine) emit(eventType string, data map[string]any) {
	e.Events.Emit(types.Event{Type: eventType, Data: data})
}

func (e *Engine) logf(format string, args ...any) {
	e.logger.Printf(format, args...)
}

// env is the condition view of the session. The token must be held.
func (e *Engine) env() condition.Env {
	return sessionEnv{e}
}

type sessionEnv struct{ e *Engine }

func (s sessionEnv) Var(name string) (any, bool) { return state.GetVar(s.e.State, name) }

func (s sessionEnv) Hour() int { return s.e.State.Time.Hour }

func (e *Engine) translate(s string) string {
	if t, ok := e.Defs.Translations[s]; ok {
		return t
	}
	return s
}
