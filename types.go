package observable

import (
	"github.com/google/uuid"
)

// Observable is implemented by anything that reports invalidation: the
// collections in this package and the properties of observable elements.
type Observable interface {
	AddInvalidationListener(listener InvalidationListener, opts ...ListenerOption) ListenerID
	RemoveInvalidationListener(id ListenerID) bool
}

// PropertyObject exposes the observable properties of a composite element.
// Collections watch every property of such an element.
type PropertyObject interface {
	Properties() []Observable
}

// InvalidationListener is notified whenever a source changed.
type InvalidationListener func(source Observable)

// SubInvalidationListener is notified when an element inside a collection
// changed. subOnly reports a notification with no structural change attached.
type SubInvalidationListener func(source Observable, subOnly bool)

// ListChangeListener receives every coalesced change of a list.
type ListChangeListener[E any] func(change *ListChange[E])

// SetChangeListener receives every membership change of a set.
type SetChangeListener[E comparable] func(change *SetChange[E])

// ListenerID identifies a listener registration.
type ListenerID uuid.UUID

// NewListenerID returns a fresh registration id.
func NewListenerID() ListenerID {
	return ListenerID(uuid.New())
}

func (id ListenerID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the zero id returned for rejected registrations.
func (id ListenerID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

// ListenerOption configures a listener registration.
type ListenerOption func(*listenerConfig)

type listenerConfig struct {
	executor Executor
}

// OnExecutor marshals every invocation of the listener onto executor. The
// collection still fires from the mutating goroutine.
func OnExecutor(executor Executor) ListenerOption {
	return func(cfg *listenerConfig) {
		cfg.executor = executor
	}
}

func applyListenerOptions(opts []ListenerOption) listenerConfig {
	cfg := listenerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WrapInvalidationListener applies listener options to fn. Observable
// implementations outside this package use it to honor OnExecutor.
func WrapInvalidationListener(fn InvalidationListener, opts ...ListenerOption) InvalidationListener {
	cfg := applyListenerOptions(opts)
	return wrapInvalidation(fn, cfg.executor)
}

func wrapInvalidation(fn InvalidationListener, executor Executor) InvalidationListener {
	if executor == nil || fn == nil {
		return fn
	}
	return func(source Observable) {
		executor.Execute(func() { fn(source) })
	}
}

func wrapSubInvalidation(fn SubInvalidationListener, executor Executor) SubInvalidationListener {
	if executor == nil || fn == nil {
		return fn
	}
	return func(source Observable, subOnly bool) {
		executor.Execute(func() { fn(source, subOnly) })
	}
}

// wrapChange marshals fn onto executor. Listeners running elsewhere get their
// own copy of the change so the shared cursor is never raced.
func wrapChange[C any](fn func(C), executor Executor, detach func(C) C) func(C) {
	if executor == nil || fn == nil {
		return fn
	}
	return func(change C) {
		own := detach(change)
		executor.Execute(func() { fn(own) })
	}
}
