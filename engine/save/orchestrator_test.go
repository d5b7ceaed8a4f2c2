package save

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/nathoo/sceneweaver/actor"
	"github.com/nathoo/sceneweaver/cast"
	"github.com/nathoo/sceneweaver/engine"
	"github.com/nathoo/sceneweaver/engine/state"
	"github.com/nathoo/sceneweaver/types"
	"github.com/nathoo/sceneweaver/world"
)

type lineRecorder struct {
	engine.NopPresenter
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) RenderLine(l engine.Line) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, l.Text)
	return nil
}

func (r *lineRecorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

var fixedNow = func() time.Time { return time.UnixMilli(1700000000000) }

func newSession(t *testing.T, scenes map[string][]types.Command, opts Options) (*engine.Engine, *Orchestrator, *lineRecorder) {
	t.Helper()
	r := &lineRecorder{}
	e := engine.New(&state.Defs{Scenes: scenes}, r, engine.Options{Logger: quiet, Seed: 7})
	t.Cleanup(e.Close)

	opts.Logger = quiet
	opts.Now = fixedNow
	return e, New(e, NewMemoryStore(), opts), r
}

func waitIdle(t *testing.T, e *engine.Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.WaitIdle(ctx); err != nil {
		t.Fatalf("engine never went idle: %v", err)
	}
}

func townScenes() map[string][]types.Command {
	return map[string][]types.Command{
		"start": {
			types.SetVar{Name: "gold", Value: 10},
			types.Jump{Target: "town"},
		},
		"town": {
			types.Say{Speaker: "n", Text: "first"},
			types.Say{Speaker: "n", Text: "second"},
		},
	}
}

func TestOrchestrator_JumpAutosaves(t *testing.T) {
	e, o, _ := newSession(t, townScenes(), Options{})

	e.Launch(context.Background(), "start")
	waitIdle(t, e)

	snap, err := o.Read(context.Background(), DefaultSlot)
	if err != nil {
		t.Fatalf("expected an autosave after the jump: %v", err)
	}
	if snap.Narrative.CurrentScene != "town" || snap.Narrative.Cursor != 0 {
		t.Errorf("unexpected autosave position %q@%d", snap.Narrative.CurrentScene, snap.Narrative.Cursor)
	}
	if snap.Narrative.Variables["gold"] != float64(10) {
		t.Errorf("expected gold=10 in the autosave, got %v", snap.Narrative.Variables["gold"])
	}
	if snap.Timestamp != 1700000000000 || snap.Version != FormatVersion {
		t.Errorf("unexpected header %d %q", snap.Timestamp, snap.Version)
	}
	e.Stop()
}

func TestOrchestrator_SaveThenLoadResumesScene(t *testing.T) {
	e, o, r := newSession(t, townScenes(), Options{})
	ctx := context.Background()

	e.Launch(ctx, "start")
	waitIdle(t, e)
	e.Interact()
	waitIdle(t, e)

	if err := o.SaveToSlot(ctx, "slot1"); err != nil {
		t.Fatalf("SaveToSlot failed: %v", err)
	}

	e.Exclusive(func() { state.SetVar(e.State, "gold", 99) })
	e.Interact()
	waitIdle(t, e)

	if err := o.LoadFromSlot(ctx, "slot1"); err != nil {
		t.Fatalf("LoadFromSlot failed: %v", err)
	}
	waitIdle(t, e)

	want := []string{"first", "second", "second"}
	if got := r.texts(); !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %v, want %v", got, want)
	}
	if v, _ := e.Var("gold"); v != float64(10) {
		t.Errorf("expected gold restored to 10, got %v", v)
	}
	if got := historyTexts(e); !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Errorf("history = %v, want the resumed line recorded once", got)
	}
	e.Stop()
}

func historyTexts(e *engine.Engine) []string {
	var out []string
	for _, h := range e.History() {
		out = append(out, h.Text)
	}
	return out
}

func TestOrchestrator_RestoreWhileLineShownKeepsHistory(t *testing.T) {
	e, o, r := newSession(t, townScenes(), Options{})
	ctx := context.Background()

	e.Launch(ctx, "start")
	waitIdle(t, e)

	before := e.History()
	snap := o.Capture()
	if !snap.Narrative.LineRecorded {
		t.Fatal("expected the shown line to be marked as recorded")
	}
	o.Restore(ctx, snap)
	waitIdle(t, e)

	if after := e.History(); !reflect.DeepEqual(after, before) {
		t.Errorf("history after restore = %v, want %v", after, before)
	}
	if got := r.texts(); !reflect.DeepEqual(got, []string{"first", "first"}) {
		t.Errorf("expected the line to be shown again, got %v", got)
	}

	e.Interact()
	waitIdle(t, e)
	if got := historyTexts(e); !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Errorf("history = %v, want lines after the resume recorded", got)
	}
	e.Stop()
}

func TestOrchestrator_AutosaveResumeRecordsFirstLine(t *testing.T) {
	e, o, _ := newSession(t, townScenes(), Options{})
	ctx := context.Background()

	e.Launch(ctx, "start")
	waitIdle(t, e)

	if err := o.LoadFromSlot(ctx, DefaultSlot); err != nil {
		t.Fatalf("LoadFromSlot failed: %v", err)
	}
	waitIdle(t, e)

	if got := historyTexts(e); !reflect.DeepEqual(got, []string{"first"}) {
		t.Errorf("history = %v, want [first]", got)
	}
	e.Stop()
}

func TestOrchestrator_QuickSaveSkippedInStartScene(t *testing.T) {
	var saved bool
	e, o, _ := newSession(t, map[string][]types.Command{
		"start": {
			types.Deferred{Produce: func(s types.Scope) (types.Command, error) {
				saved = s.QuickSave("")
				return nil, nil
			}},
		},
	}, Options{})

	<-e.Launch(context.Background(), "start")

	if saved {
		t.Error("expected quick save to be refused in the start scene")
	}
	slots, err := o.Slots(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots, got %v", slots)
	}
}

func TestOrchestrator_LoadFailureLeavesSessionUntouched(t *testing.T) {
	e, o, _ := newSession(t, townScenes(), Options{})
	ctx := context.Background()

	e.Launch(ctx, "start")
	waitIdle(t, e)

	if err := o.Store().Put(ctx, "broken", []byte("{oops")); err != nil {
		t.Fatal(err)
	}

	if err := o.LoadFromSlot(ctx, "missing"); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("expected ErrSlotNotFound, got %v", err)
	}
	if err := o.LoadFromSlot(ctx, "broken"); err == nil {
		t.Error("expected an error for a malformed slot")
	}

	e.Exclusive(func() {
		if e.State.CurrentScene != "town" || e.State.Cursor != 0 {
			t.Errorf("session moved to %q@%d", e.State.CurrentScene, e.State.Cursor)
		}
	})
	if v, _ := e.Var("gold"); v != float64(10) {
		t.Errorf("expected gold=10, got %v", v)
	}
	e.Stop()
}

func TestOrchestrator_RestoresWorldAndRNG(t *testing.T) {
	regs := actor.NewRegistries(quiet)
	cast.Register(regs)
	w := world.New()
	w.AddMap("town", world.Point{X: 1, Y: 1})
	dana := cast.NewDana(actor.Props{})
	w.SetPlayer(dana)
	if err := w.GoToMap("town", nil); err != nil {
		t.Fatal(err)
	}

	e, o, _ := newSession(t, nil, Options{World: w, Registries: regs})
	ctx := context.Background()

	dana.AddAffection(3)
	e.Exclusive(func() {
		e.RNG.Roll(6)
		e.RNG.Roll(6)
	})

	if err := o.SaveToSlot(ctx, "s"); err != nil {
		t.Fatalf("SaveToSlot failed: %v", err)
	}
	var next int
	e.Exclusive(func() { next = e.RNG.Roll(100) })

	dana.AddAffection(10)
	if err := o.LoadFromSlot(ctx, "s"); err != nil {
		t.Fatalf("LoadFromSlot failed: %v", err)
	}

	if w.Player() != actor.Actor(dana) {
		t.Fatal("expected the live player to be kept")
	}
	if dana.Affection() != 3 {
		t.Errorf("expected affection 3, got %d", dana.Affection())
	}
	var again int
	e.Exclusive(func() { again = e.RNG.Roll(100) })
	if again != next {
		t.Errorf("expected the RNG to resume at the saved position: %d != %d", again, next)
	}
}
