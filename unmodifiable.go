package observable

import "iter"

// ReadOnlyList exposes the reads and listeners of a List without its
// mutators. Listeners receive the wrapped list as their source.
type ReadOnlyList[E any] struct {
	list *List[E]
}

var _ Observable = (*ReadOnlyList[int])(nil)

// Unmodifiable wraps list so callers can observe it but not change it.
func Unmodifiable[E any](list *List[E]) *ReadOnlyList[E] {
	if list == nil {
		panic("observable: unmodifiable of nil list")
	}
	return &ReadOnlyList[E]{list: list}
}

func (r *ReadOnlyList[E]) ID() string                     { return r.list.ID() }
func (r *ReadOnlyList[E]) Len() int                       { return r.list.Len() }
func (r *ReadOnlyList[E]) IsEmpty() bool                  { return r.list.IsEmpty() }
func (r *ReadOnlyList[E]) Contains(element E) bool        { return r.list.Contains(element) }
func (r *ReadOnlyList[E]) ContainsAll(elements ...E) bool { return r.list.ContainsAll(elements...) }
func (r *ReadOnlyList[E]) Get(index int) (E, bool)        { return r.list.Get(index) }
func (r *ReadOnlyList[E]) IndexOf(element E) int          { return r.list.IndexOf(element) }
func (r *ReadOnlyList[E]) LastIndexOf(element E) int      { return r.list.LastIndexOf(element) }
func (r *ReadOnlyList[E]) Snapshot() []E                  { return r.list.Snapshot() }
func (r *ReadOnlyList[E]) All() iter.Seq2[int, E]         { return r.list.All() }
func (r *ReadOnlyList[E]) String() string                 { return r.list.String() }

// LockReadOnly opens a read scope on the wrapped list. There is no Lock.
func (r *ReadOnlyList[E]) LockReadOnly() *LockedList[E] {
	return r.list.LockReadOnly()
}

func (r *ReadOnlyList[E]) AddInvalidationListener(listener InvalidationListener, opts ...ListenerOption) ListenerID {
	return r.list.AddInvalidationListener(listener, opts...)
}

func (r *ReadOnlyList[E]) RemoveInvalidationListener(id ListenerID) bool {
	return r.list.RemoveInvalidationListener(id)
}

func (r *ReadOnlyList[E]) AddSubInvalidationListener(listener SubInvalidationListener, opts ...ListenerOption) ListenerID {
	return r.list.AddSubInvalidationListener(listener, opts...)
}

func (r *ReadOnlyList[E]) RemoveSubInvalidationListener(id ListenerID) bool {
	return r.list.RemoveSubInvalidationListener(id)
}

func (r *ReadOnlyList[E]) AddChangeListener(listener ListChangeListener[E], opts ...ListenerOption) ListenerID {
	return r.list.AddChangeListener(listener, opts...)
}

func (r *ReadOnlyList[E]) RemoveChangeListener(id ListenerID) bool {
	return r.list.RemoveChangeListener(id)
}

// ReadOnlySet is the Set counterpart of ReadOnlyList.
type ReadOnlySet[E comparable] struct {
	set *Set[E]
}

var _ Observable = (*ReadOnlySet[int])(nil)

func UnmodifiableSet[E comparable](set *Set[E]) *ReadOnlySet[E] {
	if set == nil {
		panic("observable: unmodifiable of nil set")
	}
	return &ReadOnlySet[E]{set: set}
}

func (r *ReadOnlySet[E]) ID() string                     { return r.set.ID() }
func (r *ReadOnlySet[E]) Len() int                       { return r.set.Len() }
func (r *ReadOnlySet[E]) IsEmpty() bool                  { return r.set.IsEmpty() }
func (r *ReadOnlySet[E]) Contains(element E) bool        { return r.set.Contains(element) }
func (r *ReadOnlySet[E]) ContainsAll(elements ...E) bool { return r.set.ContainsAll(elements...) }
func (r *ReadOnlySet[E]) Snapshot() []E                  { return r.set.Snapshot() }
func (r *ReadOnlySet[E]) All() iter.Seq[E]               { return r.set.All() }
func (r *ReadOnlySet[E]) String() string                 { return r.set.String() }
func (r *ReadOnlySet[E]) LockReadOnly() *LockedSet[E]    { return r.set.LockReadOnly() }

func (r *ReadOnlySet[E]) AddInvalidationListener(listener InvalidationListener, opts ...ListenerOption) ListenerID {
	return r.set.AddInvalidationListener(listener, opts...)
}

func (r *ReadOnlySet[E]) RemoveInvalidationListener(id ListenerID) bool {
	return r.set.RemoveInvalidationListener(id)
}

func (r *ReadOnlySet[E]) AddSubInvalidationListener(listener SubInvalidationListener, opts ...ListenerOption) ListenerID {
	return r.set.AddSubInvalidationListener(listener, opts...)
}

func (r *ReadOnlySet[E]) RemoveSubInvalidationListener(id ListenerID) bool {
	return r.set.RemoveSubInvalidationListener(id)
}

func (r *ReadOnlySet[E]) AddChangeListener(listener SetChangeListener[E], opts ...ListenerOption) ListenerID {
	return r.set.AddChangeListener(listener, opts...)
}

func (r *ReadOnlySet[E]) RemoveChangeListener(id ListenerID) bool {
	return r.set.RemoveChangeListener(id)
}
