// Package events delivers interpreter notifications to subscribers.
// Delivery is synchronous, on the emitting goroutine.
package events

import (
	"sync"

	"github.com/nathoo/sceneweaver/types"
)

// Event types emitted by the interpreter.
const (
	VarChanged   = "var_changed"
	SceneStarted = "scene_started"
	Jumped       = "jumped"
	LineRendered = "line_rendered"
	ChoiceMade   = "choice_made"
	Saved        = "saved"
	Loaded       = "loaded"
	ScriptError  = "script_error"
)

// Any subscribes to every event type.
const Any = "*"

// Handler receives an event.
type Handler func(types.Event)

type subscription struct {
	id        int
	eventType string
	fn        Handler
}

// Bus fans events out to subscribers. The zero value is ready to use.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
}

// Subscribe registers fn for eventType (or Any) and returns a function that
// removes it.
func (b *Bus) Subscribe(eventType string, fn Handler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, eventType: eventType, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers e to the matching subscribers in subscription order.
func (b *Bus) Emit(e types.Event) {
	b.mu.Lock()
	matched := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.eventType == Any || s.eventType == e.Type {
			matched = append(matched, s.fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range matched {
		fn(e)
	}
}
