// Package cast holds the stock derived actor and ability types shipped with
// the engine, and registers them with a session's registries.
package cast

import (
	"context"

	"github.com/nathoo/sceneweaver/actor"
)

// Dana is a companion whose affection is tracked across saves.
type Dana struct {
	actor.Character
}

func (d *Dana) TypeTag() string { return "Dana" }

// Affection returns the companion's affection score.
func (d *Dana) Affection() int {
	n, _ := d.Custom["affection"].(float64)
	return int(n)
}

// AddAffection changes the affection score.
func (d *Dana) AddAffection(delta int) {
	d.Custom["affection"] = float64(d.Affection() + delta)
}

// NewDana builds Dana from init props.
func NewDana(p actor.Props) *Dana {
	if p.Name == "" {
		p.Name = "Dana"
	}
	d := &Dana{Character: *actor.NewCharacter(p)}
	d.Custom["affection"] = float64(0)
	return d
}

// Alexandra is a fast fighter who starts with a sweeping attack.
type Alexandra struct {
	actor.Character
}

func (a *Alexandra) TypeTag() string { return "Alexandra" }

// NewAlexandra builds Alexandra, drawing her starting ability from env.
func NewAlexandra(ctx context.Context, p actor.Props, env actor.Env) *Alexandra {
	if p.Name == "" {
		p.Name = "Alexandra"
	}
	if p.Stats == nil {
		p.Stats = map[string]int{"hp": 30, "maxHp": 30, "strength": 5, "speed": 3000}
	}
	a := &Alexandra{Character: *actor.NewCharacter(p)}
	if env.Abilities != nil {
		a.Learn(env.Abilities.Instantiate(ctx, actor.AbilityRecord{
			TypeTag: "Sweep",
			Name:    "Sweep",
			Props:   actor.AbilityProps{Name: "Sweep", Targets: 100},
		}, env))
	} else {
		a.Learn(NewSweep(actor.AbilityProps{Name: "Sweep", Targets: 100}))
	}
	return a
}

// HeavyStrike deals double strength damage on a long cooldown.
type HeavyStrike struct {
	actor.AbilityBase
}

func (h *HeavyStrike) TypeTag() string { return "HeavyStrike" }

// Execute deals twice the user's strength.
func (h *HeavyStrike) Execute(user, _ actor.Actor) (int, bool) {
	if !h.Ready() {
		return 0, false
	}
	h.Remaining = h.Cooldown
	return max(1, 2*user.Base().Stat("strength")), true
}

// NewHeavyStrike builds a HeavyStrike.
func NewHeavyStrike(p actor.AbilityProps) *HeavyStrike {
	if p.Name == "" {
		p.Name = "Heavy Strike"
	}
	if p.Cooldown == 0 {
		p.Cooldown = 2
	}
	if p.Description == "" {
		p.Description = "A powerful blow that deals extra damage"
	}
	return &HeavyStrike{AbilityBase: *actor.NewAbility(p)}
}

// Sweep hits every target for the user's strength.
type Sweep struct {
	actor.AbilityBase
}

func (s *Sweep) TypeTag() string { return "Sweep" }

// NewSweep builds a Sweep.
func NewSweep(p actor.AbilityProps) *Sweep {
	if p.Name == "" {
		p.Name = "Sweep"
	}
	return &Sweep{AbilityBase: *actor.NewAbility(p)}
}

// Heal restores the user's hit points up to their maximum.
type Heal struct {
	actor.AbilityBase
	Amount int
}

func (h *Heal) TypeTag() string { return "Heal" }

// Execute heals the user and returns the hit points restored.
func (h *Heal) Execute(user, _ actor.Actor) (int, bool) {
	if !h.Ready() {
		return 0, false
	}
	h.Remaining = h.Cooldown
	c := user.Base()
	before := c.Stat("hp")
	c.Stats["hp"] = min(c.Stat("maxHp"), before+h.Amount)
	return c.Stats["hp"] - before, true
}

// NewHeal builds a Heal.
func NewHeal(p actor.AbilityProps) *Heal {
	if p.Name == "" {
		p.Name = "Heal"
	}
	if p.Description == "" {
		p.Description = "Restores hit points"
	}
	return &Heal{AbilityBase: *actor.NewAbility(p), Amount: 10}
}

// Register binds the stock types into regs. Calling it more than once is
// harmless.
func Register(regs *actor.Registries) {
	regs.Actors.RegisterOnce("Dana", func(p actor.Props, _ actor.Env) (actor.Actor, error) {
		return NewDana(p), nil
	}, nil)
	regs.Actors.RegisterOnce("Alexandra", func(p actor.Props, env actor.Env) (actor.Actor, error) {
		return NewAlexandra(context.Background(), p, env), nil
	}, func(ctx context.Context, rec actor.ActorRecord, env actor.Env) (actor.Actor, error) {
		return NewAlexandra(ctx, rec.Props, env), nil
	})

	regs.Abilities.RegisterOnce("HeavyStrike", func(p actor.AbilityProps, _ actor.Env) (actor.Ability, error) {
		return NewHeavyStrike(p), nil
	}, nil)
	regs.Abilities.RegisterOnce("Sweep", func(p actor.AbilityProps, _ actor.Env) (actor.Ability, error) {
		return NewSweep(p), nil
	}, nil)
	regs.Abilities.RegisterOnce("Heal", func(p actor.AbilityProps, _ actor.Env) (actor.Ability, error) {
		return NewHeal(p), nil
	}, nil)
}
