// Package actor defines the base character and ability model and the type
// registries that rebuild derived types from saved records.
package actor

import "fmt"

// BaseTag is the type tag of the plain Character.
const BaseTag = "Character"

// Moods with a default portrait path.
var Moods = []string{"Angry", "Fear", "Happy", "Normal"}

// Actor is anything the narrative and the world can place on screen.
// Derived types embed Character and override TypeTag.
type Actor interface {
	Base() *Character
	TypeTag() string
}

// Props are the init props of an actor, the part of a saved record that
// feeds its constructor.
type Props struct {
	Name       string         `json:"Name"`
	IsNPC      bool           `json:"isNPC"`
	Stats      map[string]int `json:"Stats,omitempty"`
	Level      int            `json:"Level"`
	Experience int            `json:"Experience"`
}

// Item is an inventory entry.
type Item struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Rarity string `json:"rarity"`
}

// Character is the base actor.
type Character struct {
	Name       string
	IsNPC      bool
	Stats      map[string]int
	Level      int
	Experience int

	X         float64
	Y         float64
	Facing    string // up, down, left, right
	AnimState string // idle, walk, attack
	AnimFrame int

	Inventory []Item
	Abilities []Ability
	MapData   map[string]any
	Custom    map[string]any
	Sprites   map[string]string // mood -> portrait path
}

// DefaultStats returns the stats of a fresh character.
func DefaultStats() map[string]int {
	return map[string]int{
		"hp":       30,
		"maxHp":    30,
		"strength": 5,
		"speed":    5,
	}
}

// NewCharacter builds a base character from init props.
func NewCharacter(p Props) *Character {
	c := &Character{
		Name:       p.Name,
		IsNPC:      p.IsNPC,
		Stats:      DefaultStats(),
		Level:      p.Level,
		Experience: p.Experience,
		X:          2,
		Y:          2,
		Facing:     "down",
		AnimState:  "idle",
		Inventory:  []Item{},
		MapData:    map[string]any{},
		Custom:     map[string]any{},
		Sprites:    map[string]string{},
	}
	if c.Level == 0 {
		c.Level = 1
	}
	for k, v := range p.Stats {
		c.Stats[k] = v
	}
	for _, mood := range Moods {
		c.Sprites[mood] = fmt.Sprintf("Scene/sprites/%s/%s.png", c.Name, mood)
	}
	return c
}

func (c *Character) Base() *Character { return c }

func (c *Character) TypeTag() string { return BaseTag }

// Props returns the init props that rebuild this character.
func (c *Character) Props() Props {
	return Props{
		Name:       c.Name,
		IsNPC:      c.IsNPC,
		Stats:      copyStats(c.Stats),
		Level:      c.Level,
		Experience: c.Experience,
	}
}

// Stat returns a stat, 0 when unset.
func (c *Character) Stat(name string) int {
	return c.Stats[name]
}

// Portrait returns the sprite path for a mood, falling back to Normal.
func (c *Character) Portrait(mood string) string {
	if p, ok := c.Sprites[mood]; ok {
		return p
	}
	return c.Sprites["Normal"]
}

// Learn adds an ability, replacing one with the same name.
func (c *Character) Learn(a Ability) {
	name := a.Info().Name
	for i, existing := range c.Abilities {
		if existing.Info().Name == name {
			c.Abilities[i] = a
			return
		}
	}
	c.Abilities = append(c.Abilities, a)
}

// Ability returns the named ability.
func (c *Character) Ability(name string) (Ability, bool) {
	for _, a := range c.Abilities {
		if a.Info().Name == name {
			return a, true
		}
	}
	return nil, false
}

// AddItem appends an inventory item.
func (c *Character) AddItem(it Item) {
	c.Inventory = append(c.Inventory, it)
}

func copyStats(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
