package save

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nathoo/sceneweaver/actor"
	"github.com/nathoo/sceneweaver/engine"
	"github.com/nathoo/sceneweaver/world"
)

// Quick-save defaults.
const (
	DefaultSlot = "autosave"
	StartScene  = "start"
)

// Orchestrator captures and restores a whole session: the engine's
// narrative state and, when present, the world with its actors.
type Orchestrator struct {
	engine *engine.Engine
	world  *world.World
	regs   *actor.Registries
	store  Store
	logger *log.Logger
	now    func() time.Time
}

// Options configures an Orchestrator. World and Registries are optional;
// without a world only the narrative is persisted.
type Options struct {
	World      *world.World
	Registries *actor.Registries
	Logger     *log.Logger
	Now        func() time.Time
}

// New creates an orchestrator and installs it as e's autosaver.
func New(e *engine.Engine, st Store, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Registries == nil {
		opts.Registries = actor.NewRegistries(opts.Logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	o := &Orchestrator{
		engine: e,
		world:  opts.World,
		regs:   opts.Registries,
		store:  st,
		logger: opts.Logger,
		now:    opts.Now,
	}
	e.SetAutosaver(o)
	return o
}

// Store returns the underlying store.
func (o *Orchestrator) Store() Store { return o.store }

// capture builds a snapshot. The engine token must be held.
func (o *Orchestrator) capture() *Snapshot {
	e := o.engine
	e.State.RNGSeed = e.RNG.Seed()
	e.State.RNGPosition = e.RNG.Position()

	s := &Snapshot{
		Timestamp: o.now().UnixMilli(),
		Version:   FormatVersion,
		Game:      e.Defs.Game.Title,
		Narrative: CaptureNarrative(e.State, e.Defs),
	}
	if o.world != nil {
		s.World = CaptureWorld(o.world)
	}
	return s
}

// restore applies a snapshot: world first, then narrative. The engine token
// must be held; re-entering the scene is the caller's job.
func (o *Orchestrator) restore(ctx context.Context, s *Snapshot) {
	if o.world != nil && s.World != nil {
		RestoreWorld(ctx, o.world, s.World, o.regs, o.logger)
	}

	e := o.engine
	for _, id := range s.Narrative.DefinedScenes {
		if _, ok := e.Defs.Scenes[id]; !ok {
			o.logger.Printf("restore: scene %q is no longer defined", id)
		}
	}
	ApplyNarrative(e.State, s.Narrative)
	e.RestoreRNG(s.Narrative.RNGSeed, s.Narrative.RNGPosition)
}

// Capture returns a snapshot of the running session.
func (o *Orchestrator) Capture() *Snapshot {
	var s *Snapshot
	o.engine.Exclusive(func() { s = o.capture() })
	return s
}

// Restore applies s and re-enters the saved scene if the session was
// active.
func (o *Orchestrator) Restore(ctx context.Context, s *Snapshot) {
	o.engine.Reload(ctx, func() bool {
		o.restore(ctx, s)
		return true
	})
}

// SaveToSlot writes the session to slot.
func (o *Orchestrator) SaveToSlot(ctx context.Context, slot string) error {
	data, err := Encode(o.Capture())
	if err != nil {
		return fmt.Errorf("saving slot %q: %w", slot, err)
	}
	if err := o.store.Put(ctx, slot, data); err != nil {
		return fmt.Errorf("saving slot %q: %w", slot, err)
	}
	return nil
}

// LoadFromSlot restores the session from slot. A slot that cannot be read
// or decoded leaves the session untouched.
func (o *Orchestrator) LoadFromSlot(ctx context.Context, slot string) error {
	s, err := o.Read(ctx, slot)
	if err != nil {
		return err
	}
	o.Restore(ctx, s)
	return nil
}

// Read fetches and decodes a slot without applying it.
func (o *Orchestrator) Read(ctx context.Context, slot string) (*Snapshot, error) {
	data, err := o.store.Get(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("loading slot %q: %w", slot, err)
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("loading slot %q: %w", slot, err)
	}
	return s, nil
}

// Slots lists the stored slots, newest first.
func (o *Orchestrator) Slots(ctx context.Context) ([]SlotInfo, error) {
	return ListSlots(ctx, o.store)
}

// DeleteSlot removes a slot.
func (o *Orchestrator) DeleteSlot(ctx context.Context, slot string) error {
	return o.store.Delete(ctx, slot)
}

// Autosave implements engine.Autosaver. Nothing is saved while the start
// scene is running.
func (o *Orchestrator) Autosave(ctx context.Context, slot string) bool {
	if slot == "" {
		slot = DefaultSlot
	}
	if o.engine.State.CurrentScene == StartScene {
		return false
	}
	data, err := Encode(o.capture())
	if err != nil {
		o.logger.Printf("quick save %q: %v", slot, err)
		return false
	}
	if err := o.store.Put(ctx, slot, data); err != nil {
		o.logger.Printf("quick save %q: %v", slot, err)
		return false
	}
	return true
}

// Autoload implements engine.Autosaver.
func (o *Orchestrator) Autoload(ctx context.Context, slot string) bool {
	if slot == "" {
		slot = DefaultSlot
	}
	s, err := o.Read(ctx, slot)
	if err != nil {
		o.logger.Printf("quick load: %v", err)
		return false
	}
	o.restore(ctx, s)
	return true
}
