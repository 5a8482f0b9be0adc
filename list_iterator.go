package observable

// Iterator walks a LockedList or SubList in both directions. It is fail-fast:
// once the list is structurally modified other than through the iterator's
// own Remove, Set or Add, Next and Previous return false and Err reports
// ErrConcurrentModification.
//
//	it := view.Iterator()
//	for it.Next() {
//		if it.Value() == stale {
//			if err := it.Remove(); err != nil {
//				return err
//			}
//		}
//	}
//	return it.Err()
type Iterator[E any] struct {
	view        *LockedList[E]
	sub         *SubList[E]
	cursor      int
	lastRet     int
	current     E
	expectedMod int
	err         error
}

func newIterator[E any](view *LockedList[E], sub *SubList[E], index int) *Iterator[E] {
	return &Iterator[E]{
		view:        view,
		sub:         sub,
		cursor:      index,
		lastRet:     -1,
		expectedMod: view.list.modCount,
	}
}

func (it *Iterator[E]) offset() int {
	if it.sub != nil {
		return it.sub.offset
	}
	return 0
}

func (it *Iterator[E]) size() int {
	if it.sub != nil {
		return it.sub.size
	}
	return len(it.view.list.store)
}

// verify panics on a closed view or, for a writable view, when called off the
// goroutine holding the write lock. It records and returns a concurrent
// modification.
func (it *Iterator[E]) verify(op string) error {
	it.view.checkOpen(op)
	if it.view.mode == ModeWritable && !it.view.list.gate.IsWriteLockedByCurrentGoroutine() {
		illegalState(op, ErrNotLocked)
	}
	if it.err == nil && it.view.list.modCount != it.expectedMod {
		it.err = ErrConcurrentModification
	}
	return it.err
}

func (it *Iterator[E]) HasNext() bool {
	return it.verify("has next") == nil && it.cursor < it.size()
}

func (it *Iterator[E]) HasPrevious() bool {
	return it.verify("has previous") == nil && it.cursor > 0
}

// Next advances to the next element.
func (it *Iterator[E]) Next() bool {
	if it.verify("next") != nil || it.cursor >= it.size() {
		return false
	}
	it.lastRet = it.cursor
	it.current = it.view.list.store[it.offset()+it.cursor]
	it.cursor++
	return true
}

// Previous steps back to the previous element.
func (it *Iterator[E]) Previous() bool {
	if it.verify("previous") != nil || it.cursor <= 0 {
		return false
	}
	it.cursor--
	it.lastRet = it.cursor
	it.current = it.view.list.store[it.offset()+it.cursor]
	return true
}

// Value returns the element reached by the last Next or Previous.
func (it *Iterator[E]) Value() E {
	return it.current
}

// Index returns the position of Value, or -1 after Remove or Add.
func (it *Iterator[E]) Index() int {
	return it.lastRet
}

func (it *Iterator[E]) NextIndex() int {
	return it.cursor
}

func (it *Iterator[E]) PreviousIndex() int {
	return it.cursor - 1
}

// Err returns the error that stopped iteration, if any.
func (it *Iterator[E]) Err() error {
	return it.err
}

func (it *Iterator[E]) checkMutation(op string, needCurrent bool) error {
	if err := it.verify(op); err != nil {
		return err
	}
	if it.view.mode != ModeWritable {
		return ErrReadOnlyView
	}
	if needCurrent && it.lastRet < 0 {
		return ErrNoCurrentElement
	}
	return nil
}

func (it *Iterator[E]) resync(delta int) {
	if it.sub != nil {
		it.sub.sync(delta)
	}
	it.expectedMod = it.view.list.modCount
}

// Remove deletes the element last returned by Next or Previous.
func (it *Iterator[E]) Remove() error {
	if err := it.checkMutation("iterator remove", true); err != nil {
		return err
	}
	it.view.list.removeCore("iterator remove", it.offset()+it.lastRet)
	it.cursor = it.lastRet
	it.lastRet = -1
	it.resync(-1)
	return nil
}

// Set replaces the element last returned by Next or Previous.
func (it *Iterator[E]) Set(element E) error {
	if err := it.checkMutation("iterator set", true); err != nil {
		return err
	}
	it.view.list.setCore("iterator set", it.offset()+it.lastRet, element)
	it.current = element
	it.resync(0)
	return nil
}

// Add inserts element before the cursor; a following Next is unaffected.
func (it *Iterator[E]) Add(element E) error {
	if err := it.checkMutation("iterator add", false); err != nil {
		return err
	}
	it.view.list.insertCore("iterator add", it.offset()+it.cursor, element)
	it.cursor++
	it.lastRet = -1
	it.resync(1)
	return nil
}
