package cast

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/nathoo/sceneweaver/actor"
)

func testRegistries() *actor.Registries {
	regs := actor.NewRegistries(log.New(io.Discard, "", 0))
	Register(regs)
	return regs
}

func TestRegister_Idempotent(t *testing.T) {
	regs := testRegistries()
	Register(regs)

	want := []string{"Alexandra", "Character", "Dana"}
	got := regs.Actors.List()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func TestInstantiate_Dana(t *testing.T) {
	regs := testRegistries()
	a := regs.Actors.Instantiate(context.Background(), actor.ActorRecord{TypeTag: "Dana", Name: "Dana", Props: actor.Props{Name: "Dana"}}, regs.Env())

	d, ok := a.(*Dana)
	if !ok {
		t.Fatalf("expected *Dana, got %T", a)
	}
	d.AddAffection(3)
	if d.Affection() != 3 {
		t.Errorf("expected affection 3, got %d", d.Affection())
	}
	if regs.Actors.TagOf(a) != "Dana" {
		t.Errorf("expected tag Dana, got %q", regs.Actors.TagOf(a))
	}
}

func TestInstantiate_AlexandraUsesFactory(t *testing.T) {
	regs := testRegistries()
	a := regs.Actors.Instantiate(context.Background(), actor.ActorRecord{TypeTag: "Alexandra", Props: actor.Props{}}, regs.Env())

	alex, ok := a.(*Alexandra)
	if !ok {
		t.Fatalf("expected *Alexandra, got %T", a)
	}
	if alex.Name != "Alexandra" || alex.Stat("speed") != 3000 {
		t.Errorf("unexpected Alexandra: %+v", alex.Character)
	}
	sweep, ok := alex.Ability("Sweep")
	if !ok {
		t.Fatal("expected Sweep ability")
	}
	if sweep.TypeTag() != "Sweep" || sweep.Info().Targets != 100 {
		t.Errorf("unexpected sweep: %s %+v", sweep.TypeTag(), sweep.Info())
	}
}

func TestHeavyStrike(t *testing.T) {
	user := actor.NewCharacter(actor.Props{Name: "Dana", Stats: map[string]int{"strength": 6}})
	h := NewHeavyStrike(actor.AbilityProps{})

	if dmg, ok := h.Execute(user, nil); !ok || dmg != 12 {
		t.Errorf("expected 12 damage, got %d (ok=%v)", dmg, ok)
	}
	if h.Remaining != 2 {
		t.Errorf("expected cooldown 2, got %d", h.Remaining)
	}
}

func TestHeal_CapsAtMax(t *testing.T) {
	user := actor.NewCharacter(actor.Props{Name: "Dana"})
	user.Stats["hp"] = 25

	healed, ok := NewHeal(actor.AbilityProps{}).Execute(user, nil)
	if !ok || healed != 5 {
		t.Errorf("expected 5 healed, got %d (ok=%v)", healed, ok)
	}
	if user.Stat("hp") != 30 {
		t.Errorf("expected hp 30, got %d", user.Stat("hp"))
	}
}
