package observable

import (
	"iter"
	"sync/atomic"

	"github.com/goliatone/go-observable/gate"
	"github.com/goliatone/go-observable/pkg/activity"
	"github.com/rs/zerolog"
)

// Set is an observable collection of distinct elements. It follows the same
// locking and delivery rules as List: changes made inside one write scope are
// delivered, one SetChange per membership change, when the outermost scope
// closes.
type Set[E comparable] struct {
	id       string
	gate     gate.Gate
	logger   zerolog.Logger
	activity *activityEmitter

	store    setStore[E]
	size     atomic.Int64
	modCount int

	pending    []*SetChange[E]
	subChanged bool

	helper      listenerHelper[*SetChange[E]]
	observer    *elementObserver[E]
	initialized bool
}

// NewSet returns an empty set that iterates in insertion order.
func NewSet[E comparable](opts ...Option) *Set[E] {
	return newSet(newHashStore[E](), nil, opts)
}

// NewSetOf returns an insertion-ordered set holding the distinct items.
func NewSetOf[E comparable](items []E, opts ...Option) *Set[E] {
	return newSet(newHashStore[E](), items, opts)
}

// NewSortedSet returns an empty set ordered by less.
func NewSortedSet[E comparable](less func(a, b E) bool, opts ...Option) *Set[E] {
	if less == nil {
		panic("observable: sorted set less function must not be nil")
	}
	return newSet(newSortedStore(less), nil, opts)
}

func newSet[E comparable](store setStore[E], items []E, opts []Option) *Set[E] {
	cfg := applyOptions(opts)
	s := &Set[E]{
		id:     cfg.id,
		gate:   cfg.gate,
		logger: cfg.logger.With().Str("collection", cfg.id).Logger(),
		store:  store,
	}
	for _, item := range items {
		store.Add(item)
	}
	s.size.Store(int64(store.Len()))
	s.observer = newElementObserver(extractorFor[E](cfg.extractor), s.onElementInvalidated)
	s.activity = newActivityEmitter(cfg, activity.ObjectTypeSet, s.logger)
	if cfg.executor != nil {
		s.initialized = true
		s.observer.initialize(cfg.executor)
		store.Scan(func(element E) bool {
			s.observer.attach(element)
			return true
		})
	}
	return s
}

func (s *Set[E]) ID() string {
	return s.id
}

// Initialize sets the executor that delivers element invalidations. It may
// be called once, and not at all when WithExecutor was used.
func (s *Set[E]) Initialize(executor Executor) error {
	if executor == nil {
		return ErrNilExecutor
	}
	stamp := s.gate.WriteLock()
	defer s.releaseWrite(stamp)
	if s.initialized {
		return ErrAlreadyInitialized
	}
	s.initialized = true
	s.observer.initialize(executor)
	s.store.Scan(func(element E) bool {
		s.observer.attach(element)
		return true
	})
	return nil
}

func (s *Set[E]) Len() int {
	if stamp := s.gate.TryOptimisticRead(); stamp.IsValid() {
		n := s.size.Load()
		if s.gate.Validate(stamp) {
			return int(n)
		}
	}
	stamp := s.gate.ReadLock()
	defer s.gate.UnlockRead(stamp)
	return int(s.size.Load())
}

func (s *Set[E]) IsEmpty() bool {
	return s.Len() == 0
}

func (s *Set[E]) Contains(element E) bool {
	stamp := s.gate.ReadLock()
	defer s.gate.UnlockRead(stamp)
	return s.store.Contains(element)
}

func (s *Set[E]) ContainsAll(elements ...E) bool {
	stamp := s.gate.ReadLock()
	defer s.gate.UnlockRead(stamp)
	return s.containsAll(elements)
}

// Snapshot returns the elements in iteration order.
func (s *Set[E]) Snapshot() []E {
	stamp := s.gate.ReadLock()
	defer s.gate.UnlockRead(stamp)
	return s.store.Values()
}

// All iterates over a snapshot taken when iteration starts.
func (s *Set[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, element := range s.Snapshot() {
			if !yield(element) {
				return
			}
		}
	}
}

func (s *Set[E]) String() string {
	return formatElements(s.Snapshot())
}

// Equal reports whether both sets hold the same members.
func (s *Set[E]) Equal(other *Set[E]) bool {
	if other == nil {
		return false
	}
	if s == other {
		return true
	}
	first, second := s, other
	if lockFirst(second, first, second.id, first.id) {
		first, second = second, first
	}
	s1 := first.gate.ReadLock()
	defer first.gate.UnlockRead(s1)
	s2 := second.gate.ReadLock()
	defer second.gate.UnlockRead(s2)
	if s.store.Len() != other.store.Len() {
		return false
	}
	equal := true
	s.store.Scan(func(element E) bool {
		equal = other.store.Contains(element)
		return equal
	})
	return equal
}

// Lock opens a write scope, or a nested read-only view when the goroutine
// already holds the write lock.
func (s *Set[E]) Lock() *LockedSet[E] {
	if s.gate.IsWriteLockedByCurrentGoroutine() {
		return &LockedSet[E]{set: s, mode: ModeNested}
	}
	return &LockedSet[E]{set: s, mode: ModeWritable, stamp: s.gate.WriteLock()}
}

func (s *Set[E]) LockReadOnly() *LockedSet[E] {
	if s.gate.IsWriteLockedByCurrentGoroutine() {
		return &LockedSet[E]{set: s, mode: ModeNested}
	}
	return &LockedSet[E]{set: s, mode: ModeReadOnly, stamp: s.gate.ReadLock()}
}

func (s *Set[E]) withWrite(fn func()) {
	stamp := s.gate.WriteLock()
	defer s.releaseWrite(stamp)
	fn()
}

// Add inserts element and reports whether it was absent.
func (s *Set[E]) Add(element E) (added bool) {
	s.withWrite(func() { added = s.addCore("add", element) })
	return added
}

func (s *Set[E]) AddAll(elements ...E) (changed bool) {
	s.withWrite(func() { changed = s.addAllCore("add all", elements) })
	return changed
}

// Remove deletes element and reports whether it was present.
func (s *Set[E]) Remove(element E) (removed bool) {
	s.withWrite(func() { removed = s.removeCore(element) })
	return removed
}

func (s *Set[E]) RemoveAll(elements ...E) (changed bool) {
	s.withWrite(func() {
		for _, element := range elements {
			changed = s.removeCore(element) || changed
		}
	})
	return changed
}

// RetainAll keeps only the members also present in elements.
func (s *Set[E]) RetainAll(elements ...E) (changed bool) {
	keep := make(map[E]struct{}, len(elements))
	for _, element := range elements {
		keep[element] = struct{}{}
	}
	s.withWrite(func() {
		changed = s.removeIfCore(func(element E) bool {
			_, ok := keep[element]
			return !ok
		})
	})
	return changed
}

func (s *Set[E]) RemoveIf(pred func(E) bool) (changed bool) {
	s.withWrite(func() { changed = s.removeIfCore(pred) })
	return changed
}

// RemoveMatching removes every member for which test reports true. It stops
// at the first evaluation error.
func (s *Set[E]) RemoveMatching(test func(E) (bool, error)) (changed bool, err error) {
	s.withWrite(func() { changed, err = s.removeWhereCore(test) })
	return changed, err
}

func (s *Set[E]) Clear() {
	s.withWrite(s.clearCore)
}

func (s *Set[E]) AddInvalidationListener(listener InvalidationListener, opts ...ListenerOption) ListenerID {
	if listener == nil {
		return ListenerID{}
	}
	cfg := applyListenerOptions(opts)
	entry := invalidationEntry{id: NewListenerID(), fn: wrapInvalidation(listener, cfg.executor)}
	stamp := s.gate.WriteLock()
	defer s.gate.UnlockWrite(stamp)
	s.helper = addInvalidationListener(s.helper, s, entry)
	return entry.id
}

func (s *Set[E]) RemoveInvalidationListener(id ListenerID) bool {
	stamp := s.gate.WriteLock()
	defer s.gate.UnlockWrite(stamp)
	var removed bool
	s.helper, removed = removeInvalidationListener(s.helper, id)
	return removed
}

func (s *Set[E]) AddSubInvalidationListener(listener SubInvalidationListener, opts ...ListenerOption) ListenerID {
	if listener == nil {
		return ListenerID{}
	}
	cfg := applyListenerOptions(opts)
	entry := subInvalidationEntry{id: NewListenerID(), fn: wrapSubInvalidation(listener, cfg.executor)}
	stamp := s.gate.WriteLock()
	defer s.gate.UnlockWrite(stamp)
	s.helper = addSubInvalidationListener(s.helper, s, entry)
	return entry.id
}

func (s *Set[E]) RemoveSubInvalidationListener(id ListenerID) bool {
	stamp := s.gate.WriteLock()
	defer s.gate.UnlockWrite(stamp)
	var removed bool
	s.helper, removed = removeSubInvalidationListener(s.helper, id)
	return removed
}

func (s *Set[E]) AddChangeListener(listener SetChangeListener[E], opts ...ListenerOption) ListenerID {
	if listener == nil {
		return ListenerID{}
	}
	cfg := applyListenerOptions(opts)
	fn := wrapChange((func(*SetChange[E]))(listener), cfg.executor, sameSetChange[E])
	entry := changeEntry[*SetChange[E]]{id: NewListenerID(), fn: fn}
	stamp := s.gate.WriteLock()
	defer s.gate.UnlockWrite(stamp)
	s.helper = addChangeListener(s.helper, s, entry)
	return entry.id
}

func (s *Set[E]) RemoveChangeListener(id ListenerID) bool {
	stamp := s.gate.WriteLock()
	defer s.gate.UnlockWrite(stamp)
	var removed bool
	s.helper, removed = removeChangeListener(s.helper, id)
	return removed
}

// SetChange carries no cursor, so executor listeners can share it.
func sameSetChange[E comparable](change *SetChange[E]) *SetChange[E] {
	return change
}

func (s *Set[E]) releaseWrite(stamp gate.Stamp) {
	if !stamp.IsWrite() {
		s.gate.UnlockWrite(stamp)
		return
	}
	defer s.gate.UnlockWrite(stamp)
	s.flush()
}

func (s *Set[E]) flush() {
	for {
		changes, subChanged := s.pending, s.subChanged
		s.pending, s.subChanged = nil, false
		if len(changes) == 0 && !subChanged {
			return
		}
		s.logger.Debug().
			Int("changes", len(changes)).
			Bool("sub_changed", subChanged).
			Msg("flushing set changes")
		for i, change := range changes {
			fireChange(s.helper, change, i == len(changes)-1)
			s.activity.emitSetChange(change.Kind())
		}
		if len(changes) == 0 {
			fireChange[*SetChange[E]](s.helper, nil, true)
			s.activity.emitSubInvalidated()
		}
	}
}

// record appends a membership change. Removing an element added in the same
// scope cancels the pending add instead.
func (s *Set[E]) record(element E, added bool) {
	if !added {
		for i, change := range s.pending {
			if change.added && change.element == element {
				s.pending = append(s.pending[:i], s.pending[i+1:]...)
				return
			}
		}
	}
	s.pending = append(s.pending, &SetChange[E]{set: s, added: added, element: element})
}

func (s *Set[E]) addCore(op string, element E) bool {
	if s.store.Contains(element) {
		return false
	}
	s.observer.requireReady(op, element)
	if !s.store.Add(element) {
		return false
	}
	s.size.Store(int64(s.store.Len()))
	s.modCount++
	s.observer.attach(element)
	s.record(element, true)
	return true
}

func (s *Set[E]) addAllCore(op string, elements []E) bool {
	s.observer.requireReady(op, elements...)
	changed := false
	for _, element := range elements {
		changed = s.addCore(op, element) || changed
	}
	return changed
}

// removeCore detaches and records the stored member, not the argument.
func (s *Set[E]) removeCore(element E) bool {
	stored, ok := s.store.Remove(element)
	if !ok {
		return false
	}
	s.size.Store(int64(s.store.Len()))
	s.modCount++
	s.observer.detach(stored)
	s.record(stored, false)
	return true
}

func (s *Set[E]) removeWhereCore(test func(E) (bool, error)) (bool, error) {
	var doomed []E
	var err error
	s.store.Scan(func(element E) bool {
		var match bool
		match, err = test(element)
		if err != nil {
			return false
		}
		if match {
			doomed = append(doomed, element)
		}
		return true
	})
	for _, element := range doomed {
		s.removeCore(element)
	}
	return len(doomed) > 0, err
}

func (s *Set[E]) removeIfCore(pred func(E) bool) bool {
	return changedOnly(s.removeWhereCore(func(element E) (bool, error) {
		return pred(element), nil
	}))
}

func (s *Set[E]) clearCore() {
	for _, element := range s.store.Values() {
		s.removeCore(element)
	}
}

func (s *Set[E]) onElementInvalidated(element E) {
	stamp := s.gate.WriteLock()
	defer s.releaseWrite(stamp)
	if _, watched := s.observer.keyOf(element); watched {
		s.subChanged = true
	}
}

func (s *Set[E]) containsAll(elements []E) bool {
	for _, element := range elements {
		if !s.store.Contains(element) {
			return false
		}
	}
	return true
}
