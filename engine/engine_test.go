package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"reflect"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/nathoo/sceneweaver/engine/assets"
	"github.com/nathoo/sceneweaver/engine/events"
	"github.com/nathoo/sceneweaver/engine/state"
	"github.com/nathoo/sceneweaver/types"
)

// recorder is a Presenter that keeps everything it is asked to show.
type recorder struct {
	mu          sync.Mutex
	lines       []Line
	shown       []string
	dismissed   []string
	backgrounds []Background
	audio       []string
	menus       map[int]Menu
	voice       chan struct{}
	media       chan struct{}
}

func newRecorder() *recorder {
	return &recorder{menus: map[int]Menu{}}
}

func (r *recorder) RenderLine(l Line) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, l)
	if l.Voice != "" {
		return r.voice
	}
	return nil
}

func (r *recorder) PresentActor(id string, frames []string, position string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, id+"="+strings.Join(frames, ","))
}

func (r *recorder) DismissActor(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dismissed = append(r.dismissed, id)
}

func (r *recorder) ChangeBackground(bg Background) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backgrounds = append(r.backgrounds, bg)
	return r.media
}

func (r *recorder) PlayAudio(ref string, loop bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio = append(r.audio, ref)
}

func (r *recorder) RenderChoices(m Menu) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.menus[m.ID] = m
}

func (r *recorder) ClearChoices(ids []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.menus, id)
	}
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, l := range r.lines {
		out = append(out, l.Speaker+": "+l.Text)
	}
	return out
}

// menu returns the only open menu of the given kind.
func (r *recorder) menu(t *testing.T, global bool) Menu {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []Menu
	for _, m := range r.menus {
		if m.Global == global {
			found = append(found, m)
		}
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly one open menu (global=%v), got %d", global, len(found))
	}
	return found[0]
}

func (r *recorder) openMenus() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.menus)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func quietOptions() Options {
	return Options{Logger: log.New(io.Discard, "", 0)}
}

func newTestEngine(scenes map[string][]types.Command) (*Engine, *recorder) {
	r := newRecorder()
	e := New(&state.Defs{Scenes: scenes}, r, quietOptions())
	return e, r
}

func idle(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.WaitIdle(ctx); err != nil {
		t.Fatalf("engine never went idle: %v", err)
	}
}

func finished(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("execution path did not finish")
	}
}

func varOf(e *Engine, name string) any {
	v, _ := e.Var(name)
	return v
}

func TestScene_SayChoiceJump(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {
			types.Say{Speaker: "A", Text: "hi"},
			types.SetVar{Name: "seen", Value: true},
			types.Choice{Options: []types.ChoiceOption{
				{Label: "Go", Action: []types.Command{types.Jump{Target: "end"}}},
			}},
		},
		"end": {
			types.Say{Speaker: "B", Text: "bye"},
		},
	})

	done := e.Launch(context.Background(), "start")
	idle(t, e)
	if got := r.texts(); !reflect.DeepEqual(got, []string{"A: hi"}) {
		t.Fatalf("expected first line only, got %v", got)
	}

	e.Interact()
	idle(t, e)
	if varOf(e, "seen") != true {
		t.Errorf("expected seen=true, got %v", varOf(e, "seen"))
	}
	m := r.menu(t, false)
	if len(m.Group.Options) != 1 || m.Group.Options[0].Label != "Go" {
		t.Fatalf("unexpected menu %+v", m.Group)
	}

	m.Activate(0)
	idle(t, e)
	if got := r.texts(); !reflect.DeepEqual(got, []string{"A: hi", "B: bye"}) {
		t.Fatalf("expected both lines, got %v", got)
	}
	if r.openMenus() != 0 {
		t.Error("expected the choice menu to be cleared")
	}

	e.Interact()
	finished(t, done)

	want := []types.HistoryEntry{{Speaker: "A", Text: "hi"}, {Speaker: "B", Text: "bye"}}
	if got := e.History(); !reflect.DeepEqual(got, want) {
		t.Errorf("history = %v, want %v", got, want)
	}
	e.Exclusive(func() {
		if e.State.CurrentScene != "end" {
			t.Errorf("expected scene end, got %q", e.State.CurrentScene)
		}
		if e.State.Cursor != 1 {
			t.Errorf("expected cursor at end of scene, got %d", e.State.Cursor)
		}
		if !e.State.Active {
			t.Error("a completed scene leaves the session active")
		}
	})
}

func TestJump_AbortsRestOfScene(t *testing.T) {
	e, _ := newTestEngine(map[string][]types.Command{
		"start": {
			types.Jump{Target: "mid"},
			types.SetVar{Name: "a", Value: 1},
		},
		"mid": {},
	})

	e.StartScene(context.Background(), "start")

	if v, ok := e.Var("a"); ok {
		t.Errorf("command after Jump ran: a=%v", v)
	}
	e.Exclusive(func() {
		if e.State.CurrentScene != "mid" {
			t.Errorf("expected scene mid, got %q", e.State.CurrentScene)
		}
	})
}

func TestJump_FromNestedBlockStopsEnclosingBlocks(t *testing.T) {
	e, _ := newTestEngine(map[string][]types.Command{
		"start": {
			types.Block{Commands: []types.Command{
				types.If{Cond: types.Literal(true), Then: []types.Command{types.Jump{Target: "mid"}}},
				types.SetVar{Name: "inner", Value: 1},
			}},
			types.SetVar{Name: "outer", Value: 1},
		},
		"mid": {types.SetVar{Name: "mid", Value: 1}},
	})

	e.StartScene(context.Background(), "start")

	if _, ok := e.Var("inner"); ok {
		t.Error("inner block continued after jump")
	}
	if _, ok := e.Var("outer"); ok {
		t.Error("outer block continued after jump")
	}
	if varOf(e, "mid") != float64(1) {
		t.Errorf("target scene did not run, mid=%v", varOf(e, "mid"))
	}
}

func TestJump_UndefinedTargetAbortsBlockOnly(t *testing.T) {
	buf := &lockedBuffer{}
	opts := quietOptions()
	opts.Logger = log.New(buf, "", 0)
	e := New(&state.Defs{Scenes: map[string][]types.Command{
		"start": {
			types.Block{Commands: []types.Command{
				types.Jump{Target: "nowhere"},
				types.SetVar{Name: "skipped", Value: 1},
			}},
			types.SetVar{Name: "after", Value: 1},
		},
	}}, nil, opts)

	e.StartScene(context.Background(), "start")

	if _, ok := e.Var("skipped"); ok {
		t.Error("block continued after failed jump")
	}
	if varOf(e, "after") != float64(1) {
		t.Error("enclosing block should continue")
	}
	if !strings.Contains(buf.String(), `"nowhere": not defined`) {
		t.Errorf("expected log about undefined scene, got %q", buf.String())
	}
}

func TestStartScene_UndefinedIsNoOp(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{})

	e.StartScene(context.Background(), "nowhere")

	e.Exclusive(func() {
		if e.State.Active {
			t.Error("session should stay inactive")
		}
		if e.State.CurrentScene != "" {
			t.Errorf("expected no current scene, got %q", e.State.CurrentScene)
		}
	})
	if len(r.texts()) != 0 {
		t.Error("nothing should be rendered")
	}
}

func TestChoice_HidesOptionsWhoseConditionFails(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {
			types.Choice{Options: []types.ChoiceOption{
				{Label: "A"},
				{Label: "B", Visible: types.Var{Name: "x", Op: ">", Value: 0}},
				{Label: "C"},
			}},
		},
	})

	done := e.Launch(context.Background(), "start")
	idle(t, e)

	m := r.menu(t, false)
	var labels []string
	for _, o := range m.Group.Options {
		labels = append(labels, o.Label)
	}
	if !reflect.DeepEqual(labels, []string{"A", "C"}) {
		t.Errorf("expected [A C], got %v", labels)
	}

	e.Stop()
	finished(t, done)
	if r.openMenus() != 0 {
		t.Error("stop should clear scene menus")
	}
}

func TestChoice_BlockingRunsActionThenContinues(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {
			types.Choice{Options: []types.ChoiceOption{
				{Label: "One", Action: []types.Command{types.SetVar{Name: "picked", Value: 1}}},
				{Label: "Two", Action: []types.Command{types.SetVar{Name: "picked", Value: 2}}},
			}},
			types.SetVar{Name: "after", Value: true},
		},
	})

	var made []string
	e.Events.Subscribe(events.ChoiceMade, func(ev types.Event) {
		made = append(made, ev.Data["label"].(string))
	})

	done := e.Launch(context.Background(), "start")
	idle(t, e)
	r.menu(t, false).Activate(1)
	finished(t, done)

	if varOf(e, "picked") != float64(2) {
		t.Errorf("expected picked=2, got %v", varOf(e, "picked"))
	}
	if varOf(e, "after") != true {
		t.Error("scene should continue after the chosen action")
	}
	if !reflect.DeepEqual(made, []string{"Two"}) {
		t.Errorf("expected ChoiceMade for Two, got %v", made)
	}
}

func TestChoice_OutOfRangeActivationIgnored(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {types.Choice{Options: []types.ChoiceOption{{Label: "Only"}}}},
	})

	done := e.Launch(context.Background(), "start")
	idle(t, e)
	m := r.menu(t, false)
	m.Activate(5)
	m.Activate(-1)
	idle(t, e)

	if !e.Running() {
		t.Fatal("an invalid activation should not release the choice")
	}
	m.Activate(0)
	finished(t, done)
}

func TestChoice_NonBlockingGroupDoesNotWait(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {
			types.Choice{Options: []types.ChoiceOption{
				{Label: "Map", Class: types.ClassTab, Action: []types.Command{types.SetVar{Name: "map", Value: 1}}},
			}},
			types.SetVar{Name: "after", Value: true},
		},
	})

	done := e.Launch(context.Background(), "start")
	finished(t, done)
	if varOf(e, "after") != true {
		t.Fatal("scene should run past a non-blocking choice")
	}

	m := r.menu(t, false)
	if m.Group.Class != types.ClassTab {
		t.Errorf("expected tab group, got %v", m.Group.Class)
	}
	m.Activate(0)
	idle(t, e)
	if varOf(e, "map") != float64(1) {
		t.Errorf("expected detached action to run, map=%v", varOf(e, "map"))
	}
	if r.openMenus() != 1 {
		t.Error("non-blocking menus stay open after activation")
	}
}

func TestGlobalMenu_AbortsOnlyTheOtherPathsBlock(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {
			types.Block{Commands: []types.Command{
				types.Say{Speaker: "n", Text: "one"},
				types.Say{Speaker: "n", Text: "two"},
			}},
			types.Say{Speaker: "n", Text: "three"},
		},
	})
	e.SetGlobalMenu([]types.ChoiceOption{
		{Label: "Journal", Action: []types.Command{types.SetVar{Name: "journal", Value: true}}},
	})

	done := e.Launch(context.Background(), "start")
	idle(t, e)

	r.menu(t, true).Activate(0)
	idle(t, e)
	if varOf(e, "journal") != true {
		t.Fatal("global action did not run")
	}

	// The in-flight line completes on the next interaction; the flag is
	// honoured at the following boundary.
	e.Interact()
	idle(t, e)
	if got := r.texts(); !reflect.DeepEqual(got, []string{"n: one", "n: three"}) {
		t.Errorf("expected the inner block to give way, got %v", got)
	}
	e.Exclusive(func() {
		if e.State.JumpRequested {
			t.Error("jump request should be consumed")
		}
	})

	e.Interact()
	finished(t, done)
	if r.openMenus() != 1 {
		t.Error("global menu should survive the scene")
	}
}

func TestGlobalMenu_FinishedActionDoesNotSwallowNextAction(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {types.Choice{Options: []types.ChoiceOption{
			{Label: "Shop", Class: types.ClassFloating, Action: []types.Command{types.SetVar{Name: "shop", Value: true}}},
		}}},
	})
	e.SetGlobalMenu([]types.ChoiceOption{
		{Label: "Journal", Action: []types.Command{types.SetVar{Name: "journal", Value: true}}},
	})

	finished(t, e.Launch(context.Background(), "start"))

	r.menu(t, true).Activate(0)
	idle(t, e)
	if varOf(e, "journal") != true {
		t.Fatal("global action did not run")
	}
	e.Exclusive(func() {
		if e.State.JumpRequested {
			t.Error("jump request outlived the global action that raised it")
		}
	})

	r.menu(t, false).Activate(0)
	idle(t, e)
	if varOf(e, "shop") != true {
		t.Error("floating action did not run")
	}
}

func TestGlobalMenu_NewerPathsIgnoreJumpRequest(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {
			types.Choice{Options: []types.ChoiceOption{
				{Label: "Shop", Class: types.ClassFloating, Action: []types.Command{types.SetVar{Name: "shop", Value: true}}},
			}},
			types.Say{Speaker: "n", Text: "hold"},
			types.Say{Speaker: "n", Text: "after"},
		},
	})
	e.SetGlobalMenu([]types.ChoiceOption{
		{Label: "Journal", Action: []types.Command{types.SetVar{Name: "journal", Value: true}}},
	})

	done := e.Launch(context.Background(), "start")
	idle(t, e)

	r.menu(t, true).Activate(0)
	idle(t, e)
	r.menu(t, false).Activate(0)
	idle(t, e)
	if varOf(e, "shop") != true {
		t.Fatal("floating action started after the global one should run")
	}

	// The scene path predates the request and still gives way.
	e.Interact()
	finished(t, done)
	if got := r.texts(); !reflect.DeepEqual(got, []string{"n: hold"}) {
		t.Errorf("expected the scene block to give way, got %v", got)
	}
}

func TestGlobalMenu_JumpReplacesScene(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {types.Say{Speaker: "n", Text: "waiting"}, types.SetVar{Name: "leaked", Value: 1}},
		"map":   {types.Say{Speaker: "n", Text: "the map"}},
	})
	e.SetGlobalMenu([]types.ChoiceOption{
		{Label: "Map", Action: []types.Command{types.Jump{Target: "map"}}},
	})

	e.Launch(context.Background(), "start")
	idle(t, e)
	r.menu(t, true).Activate(0)
	idle(t, e)

	if got := r.texts(); !reflect.DeepEqual(got, []string{"n: waiting", "n: the map"}) {
		t.Errorf("unexpected lines %v", got)
	}
	if _, ok := e.Var("leaked"); ok {
		t.Error("superseded scene kept running")
	}
	e.Stop()
	idle(t, e)
}

func TestDeferred_ResolvedWithScope(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {
			types.SetVar{Name: "n", Value: 3},
			types.Deferred{Produce: func(s types.Scope) (types.Command, error) {
				v, _ := s.Var("n")
				return types.Deferred{Produce: func(types.Scope) (types.Command, error) {
					return types.Say{Speaker: "count", Text: fmt.Sprint(v)}, nil
				}}, nil
			}},
		},
	})

	done := e.Launch(context.Background(), "start")
	idle(t, e)
	if got := r.texts(); !reflect.DeepEqual(got, []string{"count: 3"}) {
		t.Errorf("expected deferred line, got %v", got)
	}
	e.Interact()
	finished(t, done)
}

func TestDeferred_FailuresAreSkipped(t *testing.T) {
	e, _ := newTestEngine(map[string][]types.Command{
		"start": {
			types.Deferred{Produce: func(types.Scope) (types.Command, error) {
				return nil, errors.New("boom")
			}},
			types.Deferred{Produce: func(types.Scope) (types.Command, error) {
				panic("script bug")
			}},
			types.Deferred{},
			types.SetVar{Name: "survived", Value: true},
		},
	})

	var failures int
	e.Events.Subscribe(events.ScriptError, func(types.Event) { failures++ })

	e.StartScene(context.Background(), "start")

	if varOf(e, "survived") != true {
		t.Error("scene should continue past failing commands")
	}
	if failures != 2 {
		t.Errorf("expected 2 script errors, got %d", failures)
	}
}

func TestVariables_ArithmeticAndEvents(t *testing.T) {
	e, _ := newTestEngine(map[string][]types.Command{
		"start": {
			types.AddVar{Name: "gold", Delta: 5},
			types.SubVar{Name: "gold", Delta: 2},
			types.If{
				Cond: types.Var{Name: "gold", Op: "==", Value: 3},
				Then: []types.Command{types.SetVar{Name: "branch", Value: "then"}},
				Else: []types.Command{types.SetVar{Name: "branch", Value: "else"}},
			},
		},
	})

	var changes []string
	e.Events.Subscribe(events.VarChanged, func(ev types.Event) {
		changes = append(changes, fmt.Sprintf("%v=%v", ev.Data["name"], ev.Data["value"]))
	})

	e.StartScene(context.Background(), "start")

	want := []string{"gold=5", "gold=3", "branch=then"}
	if !reflect.DeepEqual(changes, want) {
		t.Errorf("changes = %v, want %v", changes, want)
	}
	if varOf(e, TimeVar) != float64(state.DefaultHour) {
		t.Errorf("expected %s to track the hour, got %v", TimeVar, varOf(e, TimeVar))
	}
}

func TestSay_CursorTracksTopLevelPosition(t *testing.T) {
	e, _ := newTestEngine(map[string][]types.Command{
		"start": {
			types.SetVar{Name: "a", Value: 1},
			types.Block{Commands: []types.Command{types.Say{Speaker: "n", Text: "inside"}}},
			types.SetVar{Name: "b", Value: 2},
		},
	})

	done := e.Launch(context.Background(), "start")
	idle(t, e)
	e.Exclusive(func() {
		if e.State.Cursor != 1 {
			t.Errorf("expected cursor 1 while inside the block, got %d", e.State.Cursor)
		}
	})
	e.Interact()
	finished(t, done)
}

func TestSay_VoiceEndReleasesLine(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {types.Say{Speaker: "n", Text: "spoken", Audio: "voice/1.ogg"}},
	})
	r.voice = make(chan struct{})

	done := e.Launch(context.Background(), "start")
	idle(t, e)
	if !e.Awaiting() {
		t.Fatal("expected the line to wait")
	}
	close(r.voice)
	finished(t, done)
}

func TestSay_Translated(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {
			types.Say{Speaker: "n", Text: "hello"},
			types.Choice{Options: []types.ChoiceOption{{Label: "yes"}}},
		},
	})
	e.Defs.Translations = map[string]string{"hello": "bonjour", "yes": "oui"}

	done := e.Launch(context.Background(), "start")
	idle(t, e)
	e.Interact()
	idle(t, e)

	if got := r.texts(); !reflect.DeepEqual(got, []string{"n: bonjour"}) {
		t.Errorf("expected translated line, got %v", got)
	}
	if got := e.History()[0].Text; got != "bonjour" {
		t.Errorf("history should keep the translated text, got %q", got)
	}
	m := r.menu(t, false)
	if m.Group.Options[0].Label != "oui" {
		t.Errorf("expected translated label, got %q", m.Group.Options[0].Label)
	}
	m.Activate(0)
	finished(t, done)
}

func TestActors_ShowHideAndBackgroundReset(t *testing.T) {
	fsys := fstest.MapFS{
		"sprites/dana.png":   {},
		"bg/park_night.webp": {},
	}
	r := newRecorder()
	opts := quietOptions()
	opts.Assets = assets.New(fsys)
	e := New(&state.Defs{Scenes: map[string][]types.Command{
		"start": {
			types.ShowActor{ID: "dana", Image: "sprites/dana", Position: "left"},
			types.ShowActor{ID: "ghost", Image: "sprites/ghost"},
			types.SetBackground{Image: "bg/park", TimeAware: true},
		},
	}}, r, opts)
	e.Exclusive(func() { e.State.Time.Hour = 22 })

	e.StartScene(context.Background(), "start")

	if !reflect.DeepEqual(r.shown, []string{"dana=sprites/dana.png"}) {
		t.Errorf("unexpected shown actors %v", r.shown)
	}
	if len(r.backgrounds) != 1 || r.backgrounds[0].Image != "bg/park_night.webp" {
		t.Fatalf("expected night background, got %+v", r.backgrounds)
	}
	if r.dismissed[len(r.dismissed)-1] != "dana" {
		t.Errorf("background change should dismiss visible actors, got %v", r.dismissed)
	}
	e.Exclusive(func() {
		if len(e.State.VisibleActors) != 0 {
			t.Errorf("expected no visible actors, got %v", e.State.VisibleActors)
		}
	})
}

func TestBackground_VideoWaitsForMediaThenInteraction(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {types.SetBackground{Video: "intro.mp4", Audio: "theme.ogg"}},
	})
	e.opts.VideoTimeout = time.Minute
	r.media = make(chan struct{})

	done := e.Launch(context.Background(), "start")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := e.WaitIdle(ctx); err == nil {
		t.Fatal("a playing video should keep the path busy")
	}

	close(r.media)
	idle(t, e)
	if !e.Awaiting() {
		t.Fatal("expected the video to wait for an interaction")
	}
	if r.backgrounds[0].Audio != "theme.ogg" {
		t.Errorf("expected ambient audio, got %+v", r.backgrounds[0])
	}
	e.Interact()
	finished(t, done)
}

func TestStop_ReleasesWaitingPath(t *testing.T) {
	e, _ := newTestEngine(map[string][]types.Command{
		"start": {types.Say{Speaker: "n", Text: "hold"}, types.SetVar{Name: "after", Value: 1}},
	})

	done := e.Launch(context.Background(), "start")
	idle(t, e)
	e.Stop()
	finished(t, done)

	if _, ok := e.Var("after"); ok {
		t.Error("stopped path should not continue")
	}
	e.Exclusive(func() {
		if e.State.Active {
			t.Error("expected inactive session")
		}
	})
}

// memorySaver keeps one snapshot of variables and position.
type memorySaver struct {
	e        *Engine
	saves    int
	scene    string
	cursor   int
	recorded bool
	vars     map[string]any
}

func (m *memorySaver) Autosave(_ context.Context, _ string) bool {
	m.saves++
	m.scene = m.e.State.CurrentScene
	m.cursor = m.e.State.Cursor
	m.recorded = m.e.State.LineRecorded
	m.vars = state.CopyVars(m.e.State.Variables)
	return true
}

func (m *memorySaver) Autoload(_ context.Context, _ string) bool {
	if m.vars == nil {
		return false
	}
	m.e.State.CurrentScene = m.scene
	m.e.State.Cursor = m.cursor
	m.e.State.LineRecorded = m.recorded
	m.e.State.Variables = state.CopyVars(m.vars)
	m.e.State.Active = true
	return true
}

func TestJump_AutosavesAndQuickLoadResumes(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {types.SetVar{Name: "x", Value: 1}, types.Jump{Target: "next"}},
		"next":  {types.Say{Speaker: "n", Text: "here"}},
	})
	saver := &memorySaver{e: e}
	e.SetAutosaver(saver)

	e.Launch(context.Background(), "start")
	idle(t, e)
	if saver.saves != 1 || saver.scene != "next" {
		t.Fatalf("expected one autosave in next, got %d in %q", saver.saves, saver.scene)
	}

	e.Exclusive(func() { state.SetVar(e.State, "x", 5) })
	if !e.QuickLoad(context.Background(), "") {
		t.Fatal("quick load failed")
	}
	idle(t, e)

	if varOf(e, "x") != float64(1) {
		t.Errorf("expected restored x=1, got %v", varOf(e, "x"))
	}
	if got := r.texts(); !reflect.DeepEqual(got, []string{"n: here", "n: here"}) {
		t.Errorf("expected the restored scene to run again, got %v", got)
	}
	if h := e.History(); len(h) != 2 {
		t.Errorf("expected the line recorded again after the jump autosave, got %v", h)
	}
	e.Stop()
	idle(t, e)
}

func TestReload_ResumesAtCursor(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"start": {
			types.Say{Speaker: "n", Text: "first"},
			types.Say{Speaker: "n", Text: "second"},
		},
	})

	ok := e.Reload(context.Background(), func() bool {
		e.State.CurrentScene = "start"
		e.State.Cursor = 1
		e.State.Active = true
		return true
	})
	if !ok {
		t.Fatal("reload failed")
	}
	idle(t, e)

	if got := r.texts(); !reflect.DeepEqual(got, []string{"n: second"}) {
		t.Errorf("expected to resume at the saved cursor, got %v", got)
	}
	e.Interact()
	idle(t, e)
	if e.Running() {
		t.Error("expected the resumed path to finish")
	}
}

func TestReload_WakesSleepingPath(t *testing.T) {
	e, r := newTestEngine(map[string][]types.Command{
		"a": {types.Wait{Duration: 1500}, types.SetVar{Name: "late", Value: 1}},
		"b": {types.Say{Speaker: "n", Text: "restored"}},
	})

	done := e.Launch(context.Background(), "a")
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	e.Reload(context.Background(), func() bool {
		e.State.CurrentScene = "b"
		e.State.Cursor = 0
		e.State.Active = true
		return true
	})
	idle(t, e)

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("restored scene started after %v, want it without waiting out the old timer", elapsed)
	}
	if got := r.texts(); !reflect.DeepEqual(got, []string{"n: restored"}) {
		t.Errorf("unexpected lines %v", got)
	}
	if _, ok := e.Var("late"); ok {
		t.Error("superseded scene continued after its wait")
	}
	e.Stop()
	finished(t, done)
}

func TestStop_WakesSleepingPath(t *testing.T) {
	e, _ := newTestEngine(map[string][]types.Command{
		"start": {types.Wait{Duration: 1500}},
	})

	done := e.Launch(context.Background(), "start")
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	e.Stop()
	finished(t, done)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("stopped path ended after %v", elapsed)
	}
}

func TestScope_RollAdvancesRNGPosition(t *testing.T) {
	var rolled int
	e, _ := newTestEngine(map[string][]types.Command{
		"start": {types.Deferred{Produce: func(s types.Scope) (types.Command, error) {
			rolled = s.Roll(6)
			return types.SetVar{Name: "roll", Value: rolled}, nil
		}}},
	})

	e.StartScene(context.Background(), "start")

	if rolled < 1 || rolled > 6 {
		t.Fatalf("roll out of range: %d", rolled)
	}
	e.Exclusive(func() {
		if e.State.RNGPosition == 0 {
			t.Error("expected RNG position to advance")
		}
	})
}
