package session

import (
	"errors"
	"fmt"
	"log"

	"github.com/nathoo/sceneweaver/actor"
	"github.com/nathoo/sceneweaver/engine/registry"
	"github.com/nathoo/sceneweaver/engine/state"
	"github.com/nathoo/sceneweaver/types"
	"github.com/nathoo/sceneweaver/world"
)

// Declared prop keys consumed by the actor model. Everything else lands in
// the actor's custom props, numbers as float64.
var reservedProps = map[string]bool{
	"level":      true,
	"experience": true,
	"stats":      true,
	"abilities":  true,
	"items":      true,
	"npc":        true,
}

// BuildWorld constructs the actors and maps declared in script content.
// Actors are built through regs so derived types get their own
// constructors. An unknown type name is an error; an ability or item that
// cannot be built is logged and skipped.
func BuildWorld(actors []types.ActorDef, maps []types.MapDef, regs *actor.Registries, logger *log.Logger) (*world.World, error) {
	if logger == nil {
		logger = log.Default()
	}
	w := world.New()
	env := regs.Env()

	built := map[string]actor.Actor{}
	for _, def := range actors {
		a, err := buildActor(def, regs, env, logger)
		if err != nil {
			return nil, err
		}
		built[def.Name] = a
		if def.Player {
			w.SetPlayer(a)
		} else {
			w.Register(a)
		}
	}

	for _, m := range maps {
		w.AddMap(m.ID, world.Point{X: m.SpawnX, Y: m.SpawnY})
		for _, name := range m.NPCs {
			a, ok := built[name]
			if !ok {
				return nil, fmt.Errorf("map %q: actor %q not declared", m.ID, name)
			}
			if err := w.AddNPC(m.ID, a); err != nil {
				return nil, err
			}
		}
	}

	if len(maps) > 0 {
		if err := w.GoToMap(maps[0].ID, nil); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func buildActor(def types.ActorDef, regs *actor.Registries, env actor.Env, logger *log.Logger) (actor.Actor, error) {
	tag := def.Type
	if tag == "" {
		tag = actor.BaseTag
	}

	props := actorProps(def)
	a, err := regs.Actors.Construct(tag, props, env)
	if errors.Is(err, registry.ErrNotRegistered) {
		return nil, fmt.Errorf("actor %q: unknown type %q (known: %v)", def.Name, tag, regs.Actors.List())
	}
	if err != nil {
		return nil, fmt.Errorf("actor %q: %w", def.Name, err)
	}

	c := a.Base()
	for _, ab := range abilityProps(def.Props["abilities"]) {
		learned, err := regs.Abilities.Construct(ab.tag, ab.props, env)
		if err != nil {
			logger.Printf("actor %q: ability %q: %v", def.Name, ab.tag, err)
			continue
		}
		c.Learn(learned)
	}
	for _, it := range items(def.Props["items"]) {
		c.AddItem(it)
	}
	for k, v := range def.Props {
		if !reservedProps[k] {
			c.Custom[k] = state.Normalize(v)
		}
	}
	return a, nil
}

// actorProps extracts the constructor props of a declared actor.
func actorProps(def types.ActorDef) actor.Props {
	p := actor.Props{
		Name:       def.Name,
		Level:      toInt(def.Props["level"]),
		Experience: toInt(def.Props["experience"]),
	}
	if npc, ok := def.Props["npc"].(bool); ok {
		p.IsNPC = npc
	}
	if stats, ok := def.Props["stats"].(map[string]any); ok {
		p.Stats = make(map[string]int, len(stats))
		for k, v := range stats {
			p.Stats[k] = toInt(v)
		}
	}
	return p
}

type abilityDecl struct {
	tag   string
	props actor.AbilityProps
}

// abilityProps reads an abilities list. Entries are either a type name or a
// table with a type field and ability props.
func abilityProps(v any) []abilityDecl {
	list, _ := v.([]any)
	var out []abilityDecl
	for _, entry := range list {
		switch e := entry.(type) {
		case string:
			out = append(out, abilityDecl{tag: e, props: actor.AbilityProps{Name: e}})
		case map[string]any:
			tag, _ := e["type"].(string)
			name, _ := e["name"].(string)
			if tag == "" {
				tag = actor.BaseAbilityTag
			}
			if name == "" {
				name = tag
			}
			desc, _ := e["description"].(string)
			icon, _ := e["icon"].(string)
			out = append(out, abilityDecl{tag: tag, props: actor.AbilityProps{
				Name:        name,
				Description: desc,
				Icon:        icon,
				Targets:     toInt(e["targets"]),
				ManaCost:    toInt(e["mana_cost"]),
				Level:       toInt(e["level"]),
				Cooldown:    toInt(e["cooldown"]),
			}})
		}
	}
	return out
}

func items(v any) []actor.Item {
	list, _ := v.([]any)
	var out []actor.Item
	for _, entry := range list {
		switch e := entry.(type) {
		case string:
			out = append(out, actor.Item{Name: e})
		case map[string]any:
			name, _ := e["name"].(string)
			typ, _ := e["type"].(string)
			rarity, _ := e["rarity"].(string)
			out = append(out, actor.Item{Name: name, Type: typ, Rarity: rarity})
		}
	}
	return out
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
