package observable

import (
	"iter"
	"slices"
	"sync/atomic"

	"github.com/goliatone/go-observable/gate"
)

// ViewMode tells how a scoped view holds the gate.
type ViewMode uint8

const (
	// ModeWritable holds the write lock and accepts mutations.
	ModeWritable ViewMode = iota + 1
	// ModeReadOnly holds a read lock.
	ModeReadOnly
	// ModeNested rides on a write lock the goroutine already holds. It is
	// read-only and its Close releases nothing.
	ModeNested
)

func (m ViewMode) String() string {
	switch m {
	case ModeWritable:
		return "writable"
	case ModeReadOnly:
		return "read-only"
	case ModeNested:
		return "nested"
	default:
		return "unknown"
	}
}

// LockedList is a scoped view of a List. It holds the list gate from Lock or
// LockReadOnly until Close; a writable view delivers the changes made through
// it when it closes. Close is idempotent.
type LockedList[E any] struct {
	list   *List[E]
	mode   ViewMode
	stamp  gate.Stamp
	closed atomic.Bool
}

// Close releases the view. Only the outermost writable view flushes changes.
func (v *LockedList[E]) Close() {
	if !v.closed.CompareAndSwap(false, true) {
		return
	}
	switch v.mode {
	case ModeWritable:
		v.list.releaseWrite(v.stamp)
	case ModeReadOnly:
		v.list.gate.UnlockRead(v.stamp)
	}
}

func (v *LockedList[E]) Mode() ViewMode { return v.mode }

func (v *LockedList[E]) ReadOnly() bool { return v.mode != ModeWritable }

func (v *LockedList[E]) Closed() bool { return v.closed.Load() }

// ChangeOwner hands the write lock, and this view, to another goroutine.
func (v *LockedList[E]) ChangeOwner(goroutineID int64) error {
	if v.closed.Load() {
		return ErrViewClosed
	}
	if v.mode != ModeWritable {
		return ErrOwnerChange
	}
	return v.list.gate.ChangeOwner(goroutineID)
}

func (v *LockedList[E]) checkOpen(op string) {
	if v.closed.Load() {
		illegalState(op, ErrViewClosed)
	}
}

// checkWritable panics unless the view is open, writable and held by the
// calling goroutine.
func (v *LockedList[E]) checkWritable(op string) {
	v.checkOpen(op)
	if v.mode != ModeWritable {
		illegalState(op, ErrReadOnlyView)
	}
	if !v.list.gate.IsWriteLockedByCurrentGoroutine() {
		illegalState(op, ErrNotLocked)
	}
}

func (v *LockedList[E]) Len() int {
	v.checkOpen("len")
	return len(v.list.store)
}

func (v *LockedList[E]) IsEmpty() bool {
	return v.Len() == 0
}

// Get returns the element at index and panics with an IndexError when index
// is out of range.
func (v *LockedList[E]) Get(index int) E {
	v.checkOpen("get")
	checkIndex("get", index, len(v.list.store))
	return v.list.store[index]
}

func (v *LockedList[E]) Contains(element E) bool {
	v.checkOpen("contains")
	return v.list.indexOf(element) >= 0
}

func (v *LockedList[E]) ContainsAll(elements ...E) bool {
	v.checkOpen("contains all")
	return v.list.containsAll(elements)
}

func (v *LockedList[E]) IndexOf(element E) int {
	v.checkOpen("index of")
	return v.list.indexOf(element)
}

func (v *LockedList[E]) LastIndexOf(element E) int {
	v.checkOpen("last index of")
	return v.list.lastIndexOf(element)
}

func (v *LockedList[E]) ToSlice() []E {
	v.checkOpen("to slice")
	return slices.Clone(v.list.store)
}

// All iterates the live elements. It panics with ErrConcurrentModification
// when the list is structurally modified while the loop runs.
func (v *LockedList[E]) All() iter.Seq2[int, E] {
	return func(yield func(int, E) bool) {
		it := v.Iterator()
		for it.Next() {
			if !yield(it.Index(), it.Value()) {
				return
			}
		}
		if err := it.Err(); err != nil {
			illegalState("iterate", err)
		}
	}
}

func (v *LockedList[E]) String() string {
	v.checkOpen("string")
	return formatElements(v.list.store)
}

func (v *LockedList[E]) Add(element E) {
	v.checkWritable("add")
	v.list.insertCore("add", len(v.list.store), element)
}

func (v *LockedList[E]) Insert(index int, element E) {
	v.checkWritable("insert")
	v.list.insertCore("insert", index, element)
}

func (v *LockedList[E]) AddAll(elements ...E) bool {
	v.checkWritable("add all")
	return v.list.insertCore("add all", len(v.list.store), elements...)
}

func (v *LockedList[E]) InsertAll(index int, elements ...E) bool {
	v.checkWritable("insert all")
	return v.list.insertCore("insert all", index, elements...)
}

func (v *LockedList[E]) Set(index int, element E) E {
	v.checkWritable("set")
	return v.list.setCore("set", index, element)
}

func (v *LockedList[E]) RemoveAt(index int) E {
	v.checkWritable("remove at")
	return v.list.removeCore("remove at", index)
}

func (v *LockedList[E]) Remove(element E) bool {
	v.checkWritable("remove")
	return v.list.removeElementCore("remove", element)
}

func (v *LockedList[E]) RemoveAll(elements ...E) bool {
	v.checkWritable("remove all")
	return v.list.removeAllCore("remove all", elements)
}

func (v *LockedList[E]) RetainAll(elements ...E) bool {
	v.checkWritable("retain all")
	return v.list.retainAllCore("retain all", elements)
}

func (v *LockedList[E]) RemoveRange(from, to int) {
	v.checkWritable("remove range")
	v.list.removeRangeCore("remove range", from, to)
}

func (v *LockedList[E]) RemoveIf(pred func(E) bool) bool {
	v.checkWritable("remove if")
	return v.list.removeIfCore("remove if", pred)
}

func (v *LockedList[E]) RemoveMatching(test func(E) (bool, error)) (bool, error) {
	v.checkWritable("remove matching")
	return v.list.removeWhereCore("remove matching", func(_ int, element E) (bool, error) {
		return test(element)
	})
}

func (v *LockedList[E]) SetAll(elements ...E) bool {
	v.checkWritable("set all")
	return v.list.setAllCore("set all", elements)
}

func (v *LockedList[E]) Clear() {
	v.checkWritable("clear")
	v.list.clearCore()
}

func (v *LockedList[E]) Sort(cmp func(a, b E) int) {
	v.checkWritable("sort")
	v.list.sortCore(cmp)
}

// Iterator returns a fail-fast iterator positioned before the first element.
func (v *LockedList[E]) Iterator() *Iterator[E] {
	return v.ListIterator(0)
}

// ListIterator returns a fail-fast iterator positioned before index.
func (v *LockedList[E]) ListIterator(index int) *Iterator[E] {
	v.checkOpen("iterator")
	checkPosition("iterator", index, len(v.list.store))
	return newIterator(v, nil, index)
}

// SubList returns a view of [from, to) backed by this view.
func (v *LockedList[E]) SubList(from, to int) *SubList[E] {
	v.checkOpen("sub list")
	checkRange("sub list", from, to, len(v.list.store))
	return &SubList[E]{
		view:        v,
		offset:      from,
		size:        to - from,
		expectedMod: v.list.modCount,
	}
}

// SubList is a range view of a LockedList. Structural changes made to the
// list other than through the sublist invalidate it.
type SubList[E any] struct {
	view        *LockedList[E]
	offset      int
	size        int
	expectedMod int
}

func (s *SubList[E]) check(op string) {
	s.view.checkOpen(op)
	if s.view.list.modCount != s.expectedMod {
		illegalState(op, ErrConcurrentModification)
	}
}

func (s *SubList[E]) checkWritable(op string) {
	s.view.checkWritable(op)
	s.check(op)
}

func (s *SubList[E]) sync(delta int) {
	s.size += delta
	s.expectedMod = s.view.list.modCount
}

func (s *SubList[E]) Len() int {
	s.check("len")
	return s.size
}

func (s *SubList[E]) IsEmpty() bool {
	return s.Len() == 0
}

func (s *SubList[E]) Get(index int) E {
	s.check("get")
	checkIndex("get", index, s.size)
	return s.view.list.store[s.offset+index]
}

func (s *SubList[E]) Set(index int, element E) E {
	s.checkWritable("set")
	checkIndex("set", index, s.size)
	return s.view.list.setCore("set", s.offset+index, element)
}

func (s *SubList[E]) Add(element E) {
	s.Insert(s.size, element)
}

func (s *SubList[E]) Insert(index int, element E) {
	s.checkWritable("insert")
	checkPosition("insert", index, s.size)
	s.view.list.insertCore("insert", s.offset+index, element)
	s.sync(1)
}

func (s *SubList[E]) RemoveAt(index int) E {
	s.checkWritable("remove at")
	checkIndex("remove at", index, s.size)
	old := s.view.list.removeCore("remove at", s.offset+index)
	s.sync(-1)
	return old
}

func (s *SubList[E]) Clear() {
	s.checkWritable("clear")
	s.view.list.removeRangeCore("clear", s.offset, s.offset+s.size)
	s.sync(-s.size)
}

func (s *SubList[E]) IndexOf(element E) int {
	s.check("index of")
	return slices.IndexFunc(s.elements(), func(candidate E) bool {
		return s.view.list.equal(candidate, element)
	})
}

func (s *SubList[E]) Contains(element E) bool {
	return s.IndexOf(element) >= 0
}

func (s *SubList[E]) ToSlice() []E {
	s.check("to slice")
	return slices.Clone(s.elements())
}

// Iterator returns a fail-fast iterator over the sublist.
func (s *SubList[E]) Iterator() *Iterator[E] {
	s.check("iterator")
	return newIterator(s.view, s, 0)
}

func (s *SubList[E]) elements() []E {
	return s.view.list.store[s.offset : s.offset+s.size]
}
