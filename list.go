package observable

import (
	"bytes"
	"fmt"
	"iter"
	"slices"
	"sync/atomic"
	"unsafe"

	"github.com/goliatone/go-observable/gate"
	"github.com/goliatone/go-observable/pkg/activity"
	"github.com/rs/zerolog"
)

type changeState uint8

const (
	stateIdle changeState = iota
	stateAdding
	stateSetting
	stateRemoving
	statePermuting
)

// List is an ordered, observable collection that can be mutated from one
// goroutine while others read it and listen to its changes.
//
// Every method is safe for concurrent use. Mutations made inside one write
// scope (see Lock) are coalesced and delivered when the outermost scope
// closes; the convenience mutators open a single-operation scope themselves.
type List[E any] struct {
	id       string
	gate     gate.Gate
	equal    func(a, b E) bool
	logger   zerolog.Logger
	activity *activityEmitter

	store    []E
	size     atomic.Int64
	modCount int

	state      changeState
	builder    *changeBuilder[E]
	pending    []*ListChange[E]
	subChanged bool

	helper      listenerHelper[*ListChange[E]]
	observer    *elementObserver[E]
	initialized bool
}

// NewList returns an empty list of comparable elements.
func NewList[E comparable](opts ...Option) *List[E] {
	return newList(equalComparable[E], nil, opts)
}

// NewListOf returns a list holding a copy of items.
func NewListOf[E comparable](items []E, opts ...Option) *List[E] {
	return newList(equalComparable[E], items, opts)
}

// NewListFunc returns an empty list using equal for Contains, IndexOf and
// Remove.
func NewListFunc[E any](equal func(a, b E) bool, opts ...Option) *List[E] {
	return newList(equal, nil, opts)
}

// NewListOfFunc returns a list holding a copy of items, using equal for
// element comparison.
func NewListOfFunc[E any](equal func(a, b E) bool, items []E, opts ...Option) *List[E] {
	return newList(equal, items, opts)
}

func equalComparable[E comparable](a, b E) bool {
	return a == b
}

func newList[E any](equal func(a, b E) bool, items []E, opts []Option) *List[E] {
	if equal == nil {
		panic("observable: list equality function must not be nil")
	}
	cfg := applyOptions(opts)
	l := &List[E]{
		id:     cfg.id,
		gate:   cfg.gate,
		equal:  equal,
		logger: cfg.logger.With().Str("collection", cfg.id).Logger(),
		store:  slices.Clone(items),
	}
	l.size.Store(int64(len(l.store)))
	l.builder = newChangeBuilder(l.snapshotRange, l.commitSteps)
	l.observer = newElementObserver(extractorFor[E](cfg.extractor), l.onElementInvalidated)
	l.activity = newActivityEmitter(cfg, activity.ObjectTypeList, l.logger)
	if cfg.executor != nil {
		l.initialized = true
		l.observer.initialize(cfg.executor)
		for _, element := range l.store {
			l.observer.attach(element)
		}
	}
	return l
}

// ID returns the collection id used in logs and activity events.
func (l *List[E]) ID() string {
	return l.id
}

// Initialize sets the executor that delivers element invalidations and
// starts watching the elements already present. It may be called once, and
// not at all when WithExecutor was used.
func (l *List[E]) Initialize(executor Executor) error {
	if executor == nil {
		return ErrNilExecutor
	}
	stamp := l.gate.WriteLock()
	defer l.releaseWrite(stamp)
	if l.initialized {
		return ErrAlreadyInitialized
	}
	l.initialized = true
	l.observer.initialize(executor)
	for _, element := range l.store {
		l.observer.attach(element)
	}
	return nil
}

// Len returns the number of elements, using an optimistic read when no
// writer is active.
func (l *List[E]) Len() int {
	if stamp := l.gate.TryOptimisticRead(); stamp.IsValid() {
		n := l.size.Load()
		if l.gate.Validate(stamp) {
			return int(n)
		}
	}
	stamp := l.gate.ReadLock()
	defer l.gate.UnlockRead(stamp)
	return int(l.size.Load())
}

// IsEmpty reports whether the list has no elements.
func (l *List[E]) IsEmpty() bool {
	return l.Len() == 0
}

func (l *List[E]) Contains(element E) bool {
	return l.IndexOf(element) >= 0
}

func (l *List[E]) ContainsAll(elements ...E) bool {
	stamp := l.gate.ReadLock()
	defer l.gate.UnlockRead(stamp)
	return l.containsAll(elements)
}

// Get returns the element at index, or false when index is out of range.
func (l *List[E]) Get(index int) (E, bool) {
	stamp := l.gate.ReadLock()
	defer l.gate.UnlockRead(stamp)
	if index < 0 || index >= len(l.store) {
		var zero E
		return zero, false
	}
	return l.store[index], true
}

func (l *List[E]) IndexOf(element E) int {
	stamp := l.gate.ReadLock()
	defer l.gate.UnlockRead(stamp)
	return l.indexOf(element)
}

func (l *List[E]) LastIndexOf(element E) int {
	stamp := l.gate.ReadLock()
	defer l.gate.UnlockRead(stamp)
	return l.lastIndexOf(element)
}

// Snapshot returns a copy of the current elements.
func (l *List[E]) Snapshot() []E {
	stamp := l.gate.ReadLock()
	defer l.gate.UnlockRead(stamp)
	return slices.Clone(l.store)
}

// All iterates over a snapshot taken when iteration starts.
func (l *List[E]) All() iter.Seq2[int, E] {
	return func(yield func(int, E) bool) {
		for i, element := range l.Snapshot() {
			if !yield(i, element) {
				return
			}
		}
	}
}

func (l *List[E]) String() string {
	stamp := l.gate.ReadLock()
	defer l.gate.UnlockRead(stamp)
	return formatElements(l.store)
}

// Equal reports whether both lists hold equal elements in the same order.
func (l *List[E]) Equal(other *List[E]) bool {
	if other == nil {
		return false
	}
	if l == other {
		return true
	}
	first, second := l, other
	if lockFirst(second, first, second.id, first.id) {
		first, second = second, first
	}
	s1 := first.gate.ReadLock()
	defer first.gate.UnlockRead(s1)
	s2 := second.gate.ReadLock()
	defer second.gate.UnlockRead(s2)
	return slices.EqualFunc(l.store, other.store, l.equal)
}

// Lock opens a write scope. A goroutine that already holds the write lock of
// this list gets a nested read-only view instead, and only the outermost
// scope delivers changes. Close the view when done:
//
//	view := list.Lock()
//	defer view.Close()
func (l *List[E]) Lock() *LockedList[E] {
	if l.gate.IsWriteLockedByCurrentGoroutine() {
		return &LockedList[E]{list: l, mode: ModeNested}
	}
	return &LockedList[E]{list: l, mode: ModeWritable, stamp: l.gate.WriteLock()}
}

// LockReadOnly opens a read scope.
func (l *List[E]) LockReadOnly() *LockedList[E] {
	if l.gate.IsWriteLockedByCurrentGoroutine() {
		return &LockedList[E]{list: l, mode: ModeNested}
	}
	return &LockedList[E]{list: l, mode: ModeReadOnly, stamp: l.gate.ReadLock()}
}

func (l *List[E]) AddInvalidationListener(listener InvalidationListener, opts ...ListenerOption) ListenerID {
	if listener == nil {
		return ListenerID{}
	}
	cfg := applyListenerOptions(opts)
	entry := invalidationEntry{id: NewListenerID(), fn: wrapInvalidation(listener, cfg.executor)}
	stamp := l.gate.WriteLock()
	defer l.gate.UnlockWrite(stamp)
	l.helper = addInvalidationListener(l.helper, l, entry)
	return entry.id
}

func (l *List[E]) RemoveInvalidationListener(id ListenerID) bool {
	stamp := l.gate.WriteLock()
	defer l.gate.UnlockWrite(stamp)
	var removed bool
	l.helper, removed = removeInvalidationListener(l.helper, id)
	return removed
}

func (l *List[E]) AddSubInvalidationListener(listener SubInvalidationListener, opts ...ListenerOption) ListenerID {
	if listener == nil {
		return ListenerID{}
	}
	cfg := applyListenerOptions(opts)
	entry := subInvalidationEntry{id: NewListenerID(), fn: wrapSubInvalidation(listener, cfg.executor)}
	stamp := l.gate.WriteLock()
	defer l.gate.UnlockWrite(stamp)
	l.helper = addSubInvalidationListener(l.helper, l, entry)
	return entry.id
}

func (l *List[E]) RemoveSubInvalidationListener(id ListenerID) bool {
	stamp := l.gate.WriteLock()
	defer l.gate.UnlockWrite(stamp)
	var removed bool
	l.helper, removed = removeSubInvalidationListener(l.helper, id)
	return removed
}

func (l *List[E]) AddChangeListener(listener ListChangeListener[E], opts ...ListenerOption) ListenerID {
	if listener == nil {
		return ListenerID{}
	}
	cfg := applyListenerOptions(opts)
	fn := wrapChange((func(*ListChange[E]))(listener), cfg.executor, (*ListChange[E]).detach)
	entry := changeEntry[*ListChange[E]]{id: NewListenerID(), fn: fn}
	stamp := l.gate.WriteLock()
	defer l.gate.UnlockWrite(stamp)
	l.helper = addChangeListener(l.helper, l, entry)
	return entry.id
}

func (l *List[E]) RemoveChangeListener(id ListenerID) bool {
	stamp := l.gate.WriteLock()
	defer l.gate.UnlockWrite(stamp)
	var removed bool
	l.helper, removed = removeChangeListener(l.helper, id)
	return removed
}

// releaseWrite gives back a stamp taken for a mutation. Only an outermost
// stamp ends the open change bracket and delivers the pending changes; it
// keeps flushing until listeners stop producing new changes, then releases
// the gate.
func (l *List[E]) releaseWrite(stamp gate.Stamp) {
	if !stamp.IsWrite() {
		l.gate.UnlockWrite(stamp)
		return
	}
	defer l.gate.UnlockWrite(stamp)
	l.flush()
}

func (l *List[E]) flush() {
	for {
		l.endChangeState()
		changes, subChanged := l.pending, l.subChanged
		l.pending, l.subChanged = nil, false
		if len(changes) == 0 && !subChanged {
			return
		}
		l.logger.Debug().
			Int("changes", len(changes)).
			Bool("sub_changed", subChanged).
			Msg("flushing list changes")
		for i, change := range changes {
			fireChange(l.helper, change, i == len(changes)-1)
			emitListChange(l.activity, change.steps)
		}
		if len(changes) == 0 {
			fireChange[*ListChange[E]](l.helper, nil, true)
			l.activity.emitSubInvalidated()
		}
	}
}

// ensureChanging opens a change bracket for next, closing the current one
// first when the kind of mutation changes.
func (l *List[E]) ensureChanging(next changeState) {
	switch l.state {
	case next:
		return
	case stateIdle:
	default:
		l.builder.endChange()
	}
	l.state = next
	l.builder.beginChange()
}

func (l *List[E]) endChangeState() {
	if l.state != stateIdle {
		l.state = stateIdle
		l.builder.endChange()
	}
}

func (l *List[E]) commitSteps(steps []Step[E]) {
	l.pending = append(l.pending, newListChange(l, steps))
}

func (l *List[E]) snapshotRange(from, to int) []E {
	to = min(to, len(l.store))
	if from >= to {
		return nil
	}
	return slices.Clone(l.store[from:to])
}

func (l *List[E]) onElementInvalidated(element E) {
	stamp := l.gate.WriteLock()
	defer l.releaseWrite(stamp)
	key, watched := l.observer.keyOf(element)
	if !watched {
		return
	}
	if !l.observer.extracted() {
		l.subChanged = true
		return
	}
	// Extracted observables describe the element itself, so each position
	// holding it is reported as updated.
	l.ensureChanging(stateSetting)
	for i, candidate := range l.store {
		if other, ok := l.observer.keyOf(candidate); ok && other == key {
			l.builder.nextUpdate(i)
		}
	}
	l.subChanged = true
}

func (l *List[E]) indexOf(element E) int {
	return slices.IndexFunc(l.store, func(candidate E) bool { return l.equal(candidate, element) })
}

func (l *List[E]) lastIndexOf(element E) int {
	for i := len(l.store) - 1; i >= 0; i-- {
		if l.equal(l.store[i], element) {
			return i
		}
	}
	return -1
}

func (l *List[E]) containsAll(elements []E) bool {
	for _, element := range elements {
		if l.indexOf(element) < 0 {
			return false
		}
	}
	return true
}

func (l *List[E]) containsIn(elements []E, element E) bool {
	return slices.ContainsFunc(elements, func(candidate E) bool { return l.equal(candidate, element) })
}

// lockFirst reports whether a must be locked before b. Ids order the locks
// and addresses break ties between collections sharing an id.
func lockFirst[T any](a, b *T, idA, idB string) bool {
	if idA != idB {
		return idA < idB
	}
	return uintptr(unsafe.Pointer(a)) < uintptr(unsafe.Pointer(b))
}

func formatElements[E any](elements []E) string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, element := range elements {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprint(&buf, element)
	}
	buf.WriteByte(']')
	return buf.String()
}
