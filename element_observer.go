package observable

import (
	"reflect"
)

// identity keys elements by reference rather than by value.
type identity struct {
	typ reflect.Type
	ptr uintptr
	val any
}

type elementEntry[E any] struct {
	element     E
	observables []Observable
	ids         []ListenerID
	refs        int
}

// elementObserver re-raises changes inside elements as collection changes.
// Each distinct element gets one listener per observable, shared by every
// occurrence of that element and detached with the last occurrence.
// Callers hold the collection write lock.
type elementObserver[E any] struct {
	extract       func(E) []Observable
	onInvalidated func(element E)
	executor      Executor
	entries       map[identity]*elementEntry[E]
}

func newElementObserver[E any](extract func(E) []Observable, onInvalidated func(E)) *elementObserver[E] {
	return &elementObserver[E]{
		extract:       extract,
		onInvalidated: onInvalidated,
		entries:       make(map[identity]*elementEntry[E]),
	}
}

func (o *elementObserver[E]) initialize(executor Executor) {
	o.executor = executor
}

// extracted reports whether observables come from a WithExtractor function.
func (o *elementObserver[E]) extracted() bool {
	return o.extract != nil
}

func (o *elementObserver[E]) observablesOf(element E) []Observable {
	if o.extract != nil {
		return o.extract(element)
	}
	switch v := any(element).(type) {
	case Observable:
		if isNilValue(v) {
			return nil
		}
		return []Observable{v}
	case PropertyObject:
		if isNilValue(v) {
			return nil
		}
		return v.Properties()
	}
	return nil
}

// requireReady panics when element needs a listener but the executor has not
// been initialized. Call it before mutating the backing store.
func (o *elementObserver[E]) requireReady(op string, elements ...E) {
	if o.executor != nil {
		return
	}
	for _, element := range elements {
		if len(o.observablesOf(element)) > 0 {
			illegalState(op, ErrNotInitialized)
		}
	}
}

func (o *elementObserver[E]) attach(element E) {
	observables := o.observablesOf(element)
	if len(observables) == 0 {
		return
	}
	key := identityOf(element, observables)
	if entry, ok := o.entries[key]; ok {
		entry.refs++
		return
	}
	if o.executor == nil {
		illegalState("attach element listener", ErrNotInitialized)
	}

	entry := &elementEntry[E]{element: element, observables: observables, refs: 1}
	executor := o.executor
	listener := func(Observable) {
		executor.Execute(func() { o.onInvalidated(entry.element) })
	}
	for _, obs := range observables {
		if obs == nil {
			continue
		}
		entry.ids = append(entry.ids, obs.AddInvalidationListener(listener))
	}
	o.entries[key] = entry
}

func (o *elementObserver[E]) detach(element E) {
	observables := o.observablesOf(element)
	if len(observables) == 0 {
		return
	}
	key := identityOf(element, observables)
	entry, ok := o.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs > 0 {
		return
	}
	for i, obs := range nonNil(entry.observables) {
		obs.RemoveInvalidationListener(entry.ids[i])
	}
	delete(o.entries, key)
}

// keyOf returns the identity of element and whether it is currently watched.
func (o *elementObserver[E]) keyOf(element E) (identity, bool) {
	observables := o.observablesOf(element)
	if len(observables) == 0 {
		return identity{}, false
	}
	key := identityOf(element, observables)
	_, ok := o.entries[key]
	return key, ok
}

func (o *elementObserver[E]) refCount(element E) int {
	key, ok := o.keyOf(element)
	if !ok {
		return 0
	}
	return o.entries[key].refs
}

func identityOf[E any](element E, observables []Observable) identity {
	if key, ok := pointerIdentity(element); ok {
		return key
	}
	for _, obs := range observables {
		if key, ok := pointerIdentity(obs); ok {
			return key
		}
	}
	if t := reflect.TypeOf(element); t != nil && t.Comparable() {
		return identity{typ: t, val: any(element)}
	}
	return identity{}
}

func pointerIdentity(value any) (identity, bool) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if v.IsNil() {
			return identity{}, false
		}
		return identity{typ: v.Type(), ptr: v.Pointer()}, true
	}
	return identity{}, false
}

func isNilValue(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}

func nonNil(observables []Observable) []Observable {
	out := make([]Observable, 0, len(observables))
	for _, obs := range observables {
		if obs != nil {
			out = append(out, obs)
		}
	}
	return out
}
