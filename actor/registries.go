package actor

import (
	"log"

	"github.com/nathoo/sceneweaver/engine/registry"
)

// Env is the construction context handed to actor and ability constructors.
type Env struct {
	Abilities *AbilityRegistry
}

// ActorRegistry rebuilds actors by type tag.
type ActorRegistry = registry.Registry[Actor, Props, Env]

// AbilityRegistry rebuilds abilities by type tag.
type AbilityRegistry = registry.Registry[Ability, AbilityProps, Env]

// ActorRecord is the registry record of an actor.
type ActorRecord = registry.Record[Props]

// AbilityRecord is the registry record of an ability.
type AbilityRecord = registry.Record[AbilityProps]

// Registries bundles the two registries of a session.
type Registries struct {
	Actors    *ActorRegistry
	Abilities *AbilityRegistry
}

// NewRegistries creates empty registries whose fallbacks are the base
// Character and AbilityBase. The base types are registered under their own
// tags.
func NewRegistries(logger *log.Logger) *Registries {
	actors := registry.New("actor", BaseTag, func(p Props, _ Env) Actor {
		return NewCharacter(p)
	}, logger)
	abilities := registry.New("ability", BaseAbilityTag, func(p AbilityProps, _ Env) Ability {
		return NewAbility(p)
	}, logger)

	actors.Register(BaseTag, func(p Props, _ Env) (Actor, error) {
		return NewCharacter(p), nil
	}, nil)
	abilities.Register(BaseAbilityTag, func(p AbilityProps, _ Env) (Ability, error) {
		return NewAbility(p), nil
	}, nil)

	return &Registries{Actors: actors, Abilities: abilities}
}

// Env returns the construction context for these registries.
func (r *Registries) Env() Env {
	return Env{Abilities: r.Abilities}
}
