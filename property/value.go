// Package property provides an observable value cell, the typical field of an
// element watched by an observable collection.
package property

import (
	"fmt"
	"slices"
	"sync"

	observable "github.com/goliatone/go-observable"
)

type registration struct {
	id       observable.ListenerID
	listener observable.InvalidationListener
}

// Value holds one value and notifies invalidation listeners when it changes.
// It is safe for concurrent use; listeners run on the goroutine that called
// Set, after the value is stored and with no lock held.
type Value[T any] struct {
	mu        sync.RWMutex
	value     T
	equal     func(a, b T) bool
	listeners []registration
}

var _ observable.Observable = (*Value[int])(nil)

// New returns a Value holding initial. Set with an equal value is a no-op.
func New[T comparable](initial T) *Value[T] {
	return NewFunc(initial, func(a, b T) bool { return a == b })
}

// NewFunc returns a Value comparing values with equal. A nil equal makes every
// Set notify.
func NewFunc[T any](initial T, equal func(a, b T) bool) *Value[T] {
	return &Value[T]{value: initial, equal: equal}
}

func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set stores value and reports whether it changed.
func (v *Value[T]) Set(value T) bool {
	v.mu.Lock()
	if v.equal != nil && v.equal(v.value, value) {
		v.mu.Unlock()
		return false
	}
	v.value = value
	listeners := slices.Clone(v.listeners)
	v.mu.Unlock()

	for _, reg := range listeners {
		reg.listener(v)
	}
	return true
}

// Update applies fn to the current value and stores the result.
func (v *Value[T]) Update(fn func(T) T) bool {
	return v.Set(fn(v.Get()))
}

// Invalidate notifies listeners without changing the value, for values whose
// contents were mutated in place.
func (v *Value[T]) Invalidate() {
	v.mu.RLock()
	listeners := slices.Clone(v.listeners)
	v.mu.RUnlock()
	for _, reg := range listeners {
		reg.listener(v)
	}
}

func (v *Value[T]) AddInvalidationListener(listener observable.InvalidationListener, opts ...observable.ListenerOption) observable.ListenerID {
	if listener == nil {
		return observable.ListenerID{}
	}
	reg := registration{
		id:       observable.NewListenerID(),
		listener: observable.WrapInvalidationListener(listener, opts...),
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, reg)
	return reg.id
}

func (v *Value[T]) RemoveInvalidationListener(id observable.ListenerID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := slices.IndexFunc(v.listeners, func(reg registration) bool { return reg.id == id })
	if i < 0 {
		return false
	}
	v.listeners = slices.Delete(v.listeners, i, i+1)
	return true
}

// ListenerCount returns the number of registered listeners.
func (v *Value[T]) ListenerCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.listeners)
}

func (v *Value[T]) String() string {
	return fmt.Sprint(v.Get())
}
