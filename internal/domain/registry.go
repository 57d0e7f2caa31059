package domain

import (
	"fmt"
	"iter"
	"sync/atomic"
	"time"
)

// Slot is the local publish target of a data point. It is created once at
// startup and sinks key their state on Name.
type Slot struct {
	Name       string
	Identifier string
	Kind       Kind
}

// Binding ties a remote identifier to its declared kind and local slot.
// The diagnostic fields are written by the poll cycle and may be read
// concurrently by status endpoints.
type Binding struct {
	Identifier string
	Kind       Kind
	Slot       *Slot

	lastKnownGood atomic.Pointer[TypedValue]
	available     atomic.Bool
	updatedAt     atomic.Int64
}

// RecordGood caches v as the last value published for this binding.
func (b *Binding) RecordGood(v TypedValue, at time.Time) {
	b.lastKnownGood.Store(&v)
	b.available.Store(true)
	b.updatedAt.Store(at.UnixNano())
}

// RecordUnavailable flags the binding without discarding the last good value.
func (b *Binding) RecordUnavailable(at time.Time) {
	b.available.Store(false)
	b.updatedAt.Store(at.UnixNano())
}

// LastKnownGood returns the most recent successfully published value.
func (b *Binding) LastKnownGood() (TypedValue, bool) {
	v := b.lastKnownGood.Load()
	if v == nil {
		return TypedValue{}, false
	}
	return *v, true
}

func (b *Binding) Available() bool { return b.available.Load() }

func (b *Binding) UpdatedAt() time.Time {
	ns := b.updatedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Registry is the append-only set of bindings polled every cycle.
// It is built during startup and frozen before the poll loop begins.
type Registry struct {
	bindings []*Binding
	index    map[string]int
	frozen   bool
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends a binding. A failed registration leaves the registry
// untouched.
func (r *Registry) Register(identifier string, kind Kind, slot *Slot) error {
	if r.frozen {
		return ErrRegistryFrozen
	}
	if identifier == "" {
		return &ConfigError{Field: "identifier", Err: ErrEmptyIdentifier}
	}
	if !kind.Valid() {
		return &ConfigError{Field: identifier, Err: fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))}
	}
	if _, dup := r.index[identifier]; dup {
		return &ConfigError{Field: identifier, Err: ErrDuplicateIdentifier}
	}
	if slot == nil {
		slot = &Slot{Name: identifier}
	}
	slot.Identifier = identifier
	slot.Kind = kind

	r.index[identifier] = len(r.bindings)
	r.bindings = append(r.bindings, &Binding{
		Identifier: identifier,
		Kind:       kind,
		Slot:       slot,
	})
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() { r.frozen = true }

func (r *Registry) Frozen() bool { return r.frozen }

func (r *Registry) Len() int { return len(r.bindings) }

// Lookup finds the binding registered for identifier.
func (r *Registry) Lookup(identifier string) (*Binding, bool) {
	i, ok := r.index[identifier]
	if !ok {
		return nil, false
	}
	return r.bindings[i], true
}

// Bindings yields every binding in registration order. Each call starts a
// fresh pass.
func (r *Registry) Bindings() iter.Seq[*Binding] {
	return func(yield func(*Binding) bool) {
		for _, b := range r.bindings {
			if !yield(b) {
				return
			}
		}
	}
}
