package observable

import (
	"iter"
	"sync/atomic"

	"github.com/goliatone/go-observable/gate"
)

// LockedSet is a scoped view of a Set, the counterpart of LockedList.
type LockedSet[E comparable] struct {
	set    *Set[E]
	mode   ViewMode
	stamp  gate.Stamp
	closed atomic.Bool
}

func (v *LockedSet[E]) Close() {
	if !v.closed.CompareAndSwap(false, true) {
		return
	}
	switch v.mode {
	case ModeWritable:
		v.set.releaseWrite(v.stamp)
	case ModeReadOnly:
		v.set.gate.UnlockRead(v.stamp)
	}
}

func (v *LockedSet[E]) Mode() ViewMode { return v.mode }

func (v *LockedSet[E]) ReadOnly() bool { return v.mode != ModeWritable }

func (v *LockedSet[E]) Closed() bool { return v.closed.Load() }

func (v *LockedSet[E]) ChangeOwner(goroutineID int64) error {
	if v.closed.Load() {
		return ErrViewClosed
	}
	if v.mode != ModeWritable {
		return ErrOwnerChange
	}
	return v.set.gate.ChangeOwner(goroutineID)
}

func (v *LockedSet[E]) checkOpen(op string) {
	if v.closed.Load() {
		illegalState(op, ErrViewClosed)
	}
}

func (v *LockedSet[E]) checkWritable(op string) {
	v.checkOpen(op)
	if v.mode != ModeWritable {
		illegalState(op, ErrReadOnlyView)
	}
	if !v.set.gate.IsWriteLockedByCurrentGoroutine() {
		illegalState(op, ErrNotLocked)
	}
}

func (v *LockedSet[E]) Len() int {
	v.checkOpen("len")
	return v.set.store.Len()
}

func (v *LockedSet[E]) IsEmpty() bool {
	return v.Len() == 0
}

func (v *LockedSet[E]) Contains(element E) bool {
	v.checkOpen("contains")
	return v.set.store.Contains(element)
}

func (v *LockedSet[E]) ContainsAll(elements ...E) bool {
	v.checkOpen("contains all")
	return v.set.containsAll(elements)
}

func (v *LockedSet[E]) ToSlice() []E {
	v.checkOpen("to slice")
	return v.set.store.Values()
}

// All iterates the members, panicking with ErrConcurrentModification when the
// set changes while the loop runs.
func (v *LockedSet[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		it := v.Iterator()
		for it.Next() {
			if !yield(it.Value()) {
				return
			}
		}
		if err := it.Err(); err != nil {
			illegalState("iterate", err)
		}
	}
}

func (v *LockedSet[E]) String() string {
	v.checkOpen("string")
	return formatElements(v.set.store.Values())
}

func (v *LockedSet[E]) Add(element E) bool {
	v.checkWritable("add")
	return v.set.addCore("add", element)
}

func (v *LockedSet[E]) AddAll(elements ...E) bool {
	v.checkWritable("add all")
	return v.set.addAllCore("add all", elements)
}

func (v *LockedSet[E]) Remove(element E) bool {
	v.checkWritable("remove")
	return v.set.removeCore(element)
}

func (v *LockedSet[E]) RemoveAll(elements ...E) bool {
	v.checkWritable("remove all")
	changed := false
	for _, element := range elements {
		changed = v.set.removeCore(element) || changed
	}
	return changed
}

func (v *LockedSet[E]) RemoveIf(pred func(E) bool) bool {
	v.checkWritable("remove if")
	return v.set.removeIfCore(pred)
}

func (v *LockedSet[E]) RemoveMatching(test func(E) (bool, error)) (bool, error) {
	v.checkWritable("remove matching")
	return v.set.removeWhereCore(test)
}

func (v *LockedSet[E]) Clear() {
	v.checkWritable("clear")
	v.set.clearCore()
}

// Iterator returns a fail-fast iterator over the members in set order.
func (v *LockedSet[E]) Iterator() *SetIterator[E] {
	v.checkOpen("iterator")
	return &SetIterator[E]{
		view:        v,
		elements:    v.set.store.Values(),
		cursor:      -1,
		expectedMod: v.set.modCount,
	}
}

// SetIterator walks the members of a LockedSet. Only its own Remove may
// modify the set while it is in use.
type SetIterator[E comparable] struct {
	view        *LockedSet[E]
	elements    []E
	cursor      int
	removed     bool
	expectedMod int
	err         error
}

func (it *SetIterator[E]) verify(op string) error {
	it.view.checkOpen(op)
	if it.view.mode == ModeWritable && !it.view.set.gate.IsWriteLockedByCurrentGoroutine() {
		illegalState(op, ErrNotLocked)
	}
	if it.err == nil && it.view.set.modCount != it.expectedMod {
		it.err = ErrConcurrentModification
	}
	return it.err
}

func (it *SetIterator[E]) HasNext() bool {
	return it.verify("has next") == nil && it.cursor+1 < len(it.elements)
}

func (it *SetIterator[E]) Next() bool {
	if it.verify("next") != nil || it.cursor+1 >= len(it.elements) {
		return false
	}
	it.cursor++
	it.removed = false
	return true
}

func (it *SetIterator[E]) Value() E {
	if it.cursor < 0 || it.cursor >= len(it.elements) {
		var zero E
		return zero
	}
	return it.elements[it.cursor]
}

func (it *SetIterator[E]) Err() error {
	return it.err
}

// Remove deletes the member last returned by Next.
func (it *SetIterator[E]) Remove() error {
	if err := it.verify("iterator remove"); err != nil {
		return err
	}
	if it.view.mode != ModeWritable {
		return ErrReadOnlyView
	}
	if it.cursor < 0 || it.removed {
		return ErrNoCurrentElement
	}
	it.view.set.removeCore(it.elements[it.cursor])
	it.removed = true
	it.expectedMod = it.view.set.modCount
	return nil
}
