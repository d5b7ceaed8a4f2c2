package actor

// BaseAbilityTag is the type tag of the plain ability.
const BaseAbilityTag = "Ability"

// Ability is a learned skill. Derived types embed AbilityBase and override
// TypeTag and, optionally, Execute.
type Ability interface {
	Info() *AbilityBase
	TypeTag() string
	Execute(user, target Actor) (int, bool)
}

// AbilityProps are the init props of an ability.
type AbilityProps struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Targets     int    `json:"numberTargets,omitempty"`
	ManaCost    int    `json:"manaCost,omitempty"`
	Level       int    `json:"level,omitempty"`
	Cooldown    int    `json:"cooldown,omitempty"`
}

// AbilityBase is the plain ability.
type AbilityBase struct {
	Name        string
	Description string
	Icon        string
	Targets     int
	ManaCost    int
	Level       int
	Cooldown    int
	Remaining   int // turns until usable again
}

// NewAbility builds a plain ability, filling defaults for empty props.
func NewAbility(p AbilityProps) *AbilityBase {
	a := &AbilityBase{
		Name:        p.Name,
		Description: p.Description,
		Icon:        p.Icon,
		Targets:     p.Targets,
		ManaCost:    p.ManaCost,
		Level:       p.Level,
		Cooldown:    p.Cooldown,
	}
	if a.Name == "" {
		a.Name = "Basic Attack"
	}
	if a.Description == "" {
		a.Description = "Attack"
	}
	if a.Icon == "" {
		a.Icon = "basic_attack"
	}
	if a.Targets == 0 {
		a.Targets = 1
	}
	if a.Level == 0 {
		a.Level = 1
	}
	return a
}

func (a *AbilityBase) Info() *AbilityBase { return a }

func (a *AbilityBase) TypeTag() string { return BaseAbilityTag }

// Props returns the init props that rebuild this ability.
func (a *AbilityBase) Props() AbilityProps {
	return AbilityProps{
		Name:        a.Name,
		Description: a.Description,
		Icon:        a.Icon,
		Targets:     a.Targets,
		ManaCost:    a.ManaCost,
		Level:       a.Level,
		Cooldown:    a.Cooldown,
	}
}

// Ready reports whether the ability is off cooldown.
func (a *AbilityBase) Ready() bool { return a.Remaining == 0 }

// Execute uses the ability. It returns the damage dealt, at least 1 and
// otherwise the user's strength, and false when still cooling down.
func (a *AbilityBase) Execute(user, _ Actor) (int, bool) {
	if !a.Ready() {
		return 0, false
	}
	a.Remaining = a.Cooldown
	return max(1, user.Base().Stat("strength")), true
}

// ReduceCooldown ticks the cooldown down by one turn.
func (a *AbilityBase) ReduceCooldown() {
	a.Remaining--
	if a.Remaining < 0 {
		a.Reset()
	}
}

// Reset makes the ability usable immediately.
func (a *AbilityBase) Reset() { a.Remaining = 0 }
