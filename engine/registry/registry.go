// Package registry maps serialized type tags back to live constructors so
// that polymorphic values survive a save/load cycle with their concrete type.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
)

// ErrNotRegistered is returned by Construct for an unknown type tag.
var ErrNotRegistered = errors.New("type not registered")

// Record is the flat form of a value handed to Instantiate. Props feed the
// constructor; State carries whatever the caller persisted alongside them
// and is passed through untouched to factories and restore handlers.
type Record[P any] struct {
	TypeTag string
	Name    string
	Props   P
	State   any
}

// Constructor builds a fresh instance from init props.
type Constructor[T, P, C any] func(props P, env C) (T, error)

// Factory builds an instance from a whole record. It may block; ctx bounds it.
type Factory[T, P, C any] func(ctx context.Context, rec Record[P], env C) (T, error)

// RestoreFunc applies a record's state onto an existing singleton.
type RestoreFunc[T, P any] func(inst T, rec Record[P]) error

// Tagged is implemented by instances that know their own type tag.
type Tagged interface {
	TypeTag() string
}

type entry[T, P, C any] struct {
	ctor    Constructor[T, P, C]
	factory Factory[T, P, C]
}

type singleton[T, P any] struct {
	inst    T
	restore RestoreFunc[T, P]
}

// Registry is a process-wide table of constructors keyed by type tag, plus
// singleton overrides keyed by instance name. It is safe for concurrent use.
type Registry[T, P, C any] struct {
	name    string
	baseTag string
	base    func(props P, env C) T
	logger  *log.Logger

	mu         sync.RWMutex
	entries    map[string]entry[T, P, C]
	singletons map[string]singleton[T, P]
}

// New creates a registry whose fallback type is built by base. name is
// used in log messages.
func New[T, P, C any](name, baseTag string, base func(props P, env C) T, logger *log.Logger) *Registry[T, P, C] {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry[T, P, C]{
		name:       name,
		baseTag:    baseTag,
		base:       base,
		logger:     logger,
		entries:    map[string]entry[T, P, C]{},
		singletons: map[string]singleton[T, P]{},
	}
}

// Register binds tag to a constructor and an optional factory. Registering
// a tag twice replaces the earlier binding and logs a warning.
func (r *Registry[T, P, C]) Register(tag string, ctor Constructor[T, P, C], factory Factory[T, P, C]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tag]; exists {
		r.logger.Printf("%s registry: %q already registered, overwriting", r.name, tag)
	}
	r.entries[tag] = entry[T, P, C]{ctor: ctor, factory: factory}
}

// RegisterOnce registers tag only if it is not bound yet and reports whether
// it did. Types that self-register on first construction use this.
func (r *Registry[T, P, C]) RegisterOnce(tag string, ctor Constructor[T, P, C], factory Factory[T, P, C]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tag]; exists {
		return false
	}
	r.entries[tag] = entry[T, P, C]{ctor: ctor, factory: factory}
	return true
}

// RegisterSingleton records a live instance under name. During Instantiate
// a record with that name resolves to inst, and restore (if non-nil) applies
// the record's state to it.
func (r *Registry[T, P, C]) RegisterSingleton(name string, inst T, restore RestoreFunc[T, P]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.singletons[name] = singleton[T, P]{inst: inst, restore: restore}
}

// Singleton returns the singleton registered under name.
func (r *Registry[T, P, C]) Singleton(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.singletons[name]
	return s.inst, ok
}

// IsRegistered reports whether tag has a constructor.
func (r *Registry[T, P, C]) IsRegistered(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[tag]
	return ok
}

// List returns all registered tags in sorted order.
func (r *Registry[T, P, C]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.entries))
	for tag := range r.entries {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// TagOf returns the type tag of inst, or the base tag when inst does not
// report one.
func (r *Registry[T, P, C]) TagOf(inst T) string {
	if t, ok := any(inst).(Tagged); ok && t.TypeTag() != "" {
		return t.TypeTag()
	}
	return r.baseTag
}

// Instantiate turns rec into a live instance. Resolution order: a singleton
// registered under rec.Name, then the tag's factory, then its constructor,
// then the base type. Failures in a factory or constructor fall back to the
// base type; Instantiate itself never fails.
func (r *Registry[T, P, C]) Instantiate(ctx context.Context, rec Record[P], env C) T {
	r.mu.RLock()
	s, isSingleton := r.singletons[rec.Name]
	e, registered := r.entries[rec.TypeTag]
	r.mu.RUnlock()

	if isSingleton && rec.Name != "" {
		if s.restore != nil {
			if err := s.restore(s.inst, rec); err != nil {
				r.logger.Printf("%s registry: restoring singleton %q: %v", r.name, rec.Name, err)
			}
		}
		return s.inst
	}

	if !registered {
		r.logger.Printf("%s registry: type %q not registered, using %s", r.name, rec.TypeTag, r.baseTag)
		return r.base(rec.Props, env)
	}

	if e.factory != nil {
		inst, err := callFactory(ctx, e.factory, rec, env)
		if err == nil {
			return inst
		}
		r.logger.Printf("%s registry: factory for %q: %v, using %s", r.name, rec.TypeTag, err, r.baseTag)
		return r.base(rec.Props, env)
	}

	if e.ctor != nil {
		inst, err := callConstructor(e.ctor, rec.Props, env)
		if err == nil {
			return inst
		}
		r.logger.Printf("%s registry: constructor for %q: %v, using %s", r.name, rec.TypeTag, err, r.baseTag)
	}
	return r.base(rec.Props, env)
}

// Construct builds a fresh instance of tag from props without any fallback.
// Script content uses it to surface typos in type names.
func (r *Registry[T, P, C]) Construct(tag string, props P, env C) (T, error) {
	r.mu.RLock()
	e, ok := r.entries[tag]
	r.mu.RUnlock()

	var zero T
	if !ok || e.ctor == nil {
		return zero, fmt.Errorf("%s registry: %q: %w", r.name, tag, ErrNotRegistered)
	}
	inst, err := callConstructor(e.ctor, props, env)
	if err != nil {
		return zero, fmt.Errorf("%s registry: constructing %q: %w", r.name, tag, err)
	}
	return inst, nil
}

func callFactory[T, P, C any](ctx context.Context, f Factory[T, P, C], rec Record[P], env C) (inst T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return f(ctx, rec, env)
}

func callConstructor[T, P, C any](f Constructor[T, P, C], props P, env C) (inst T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return f(props, env)
}
