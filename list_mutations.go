package observable

import (
	"slices"
)

// The *Core methods mutate the backing store and feed the change builder.
// Callers hold the write lock.

func (l *List[E]) insertCore(op string, index int, elements ...E) bool {
	checkPosition(op, index, len(l.store))
	if len(elements) == 0 {
		return false
	}
	l.observer.requireReady(op, elements...)
	l.ensureChanging(stateAdding)
	l.store = slices.Insert(l.store, index, elements...)
	l.size.Store(int64(len(l.store)))
	l.modCount++
	for _, element := range elements {
		l.observer.attach(element)
	}
	l.builder.nextAdd(index, index+len(elements))
	return true
}

func (l *List[E]) setCore(op string, index int, element E) E {
	checkIndex(op, index, len(l.store))
	l.observer.requireReady(op, element)
	l.ensureChanging(stateSetting)
	old := l.store[index]
	l.store[index] = element
	l.observer.detach(old)
	l.observer.attach(element)
	l.builder.nextSet(index, old)
	return old
}

func (l *List[E]) removeCore(op string, index int) E {
	checkIndex(op, index, len(l.store))
	l.ensureChanging(stateRemoving)
	old := l.store[index]
	l.store = slices.Delete(l.store, index, index+1)
	l.size.Store(int64(len(l.store)))
	l.modCount++
	l.observer.detach(old)
	l.builder.nextRemove(index, old)
	return old
}

func (l *List[E]) removeRangeCore(op string, from, to int) {
	checkRange(op, from, to, len(l.store))
	if from == to {
		return
	}
	l.ensureChanging(stateRemoving)
	removed := slices.Clone(l.store[from:to])
	l.store = slices.Delete(l.store, from, to)
	l.size.Store(int64(len(l.store)))
	l.modCount++
	for _, element := range removed {
		l.observer.detach(element)
	}
	l.builder.nextRemoveAll(from, removed)
}

// removeWhereCore removes every element for which test reports true. It stops
// at the first error; elements removed before that stay removed.
func (l *List[E]) removeWhereCore(op string, test func(index int, element E) (bool, error)) (bool, error) {
	changed := false
	position := 0
	for i := 0; i < len(l.store); position++ {
		match, err := test(position, l.store[i])
		if err != nil {
			return changed, err
		}
		if !match {
			i++
			continue
		}
		l.removeCore(op, i)
		changed = true
	}
	return changed, nil
}

func (l *List[E]) clearCore() {
	if len(l.store) == 0 {
		return
	}
	l.ensureChanging(stateRemoving)
	removed := l.store
	l.store = nil
	l.size.Store(0)
	l.modCount++
	for _, element := range removed {
		l.observer.detach(element)
	}
	l.builder.nextRemoveAll(0, removed)
}

func (l *List[E]) setAllCore(op string, elements []E) bool {
	if len(l.store) == 0 && len(elements) == 0 {
		return false
	}
	l.observer.requireReady(op, elements...)
	l.ensureChanging(stateSetting)
	old := l.store
	l.store = slices.Clone(elements)
	l.size.Store(int64(len(l.store)))
	l.modCount++
	for _, element := range old {
		l.observer.detach(element)
	}
	for _, element := range l.store {
		l.observer.attach(element)
	}
	l.builder.nextReplace(0, len(l.store), old)
	return true
}

func (l *List[E]) sortCore(cmp func(a, b E) int) {
	n := len(l.store)
	if n < 2 {
		return
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp(l.store[a], l.store[b]) })

	perm := make([]int, n)
	sorted := make([]E, n)
	for newPos, oldPos := range order {
		sorted[newPos] = l.store[oldPos]
		perm[oldPos] = newPos
	}
	if isIdentity(perm, 0) {
		return
	}
	l.ensureChanging(statePermuting)
	l.store = sorted
	l.modCount++
	l.builder.nextPermutation(0, n, perm)
}

func (l *List[E]) removeAllCore(op string, elements []E) bool {
	return changedOnly(l.removeWhereCore(op, func(_ int, element E) (bool, error) {
		return l.containsIn(elements, element), nil
	}))
}

func (l *List[E]) retainAllCore(op string, elements []E) bool {
	return changedOnly(l.removeWhereCore(op, func(_ int, element E) (bool, error) {
		return !l.containsIn(elements, element), nil
	}))
}

func (l *List[E]) removeIfCore(op string, pred func(E) bool) bool {
	return changedOnly(l.removeWhereCore(op, func(_ int, element E) (bool, error) {
		return pred(element), nil
	}))
}

func (l *List[E]) removeElementCore(op string, element E) bool {
	index := l.indexOf(element)
	if index < 0 {
		return false
	}
	l.removeCore(op, index)
	return true
}

func changedOnly(changed bool, _ error) bool {
	return changed
}

// withWrite runs fn inside a single-operation write scope.
func (l *List[E]) withWrite(fn func()) {
	stamp := l.gate.WriteLock()
	defer l.releaseWrite(stamp)
	fn()
}

// Add appends element.
func (l *List[E]) Add(element E) {
	l.withWrite(func() { l.insertCore("add", len(l.store), element) })
}

// Insert places element at index, shifting later elements.
func (l *List[E]) Insert(index int, element E) {
	l.withWrite(func() { l.insertCore("insert", index, element) })
}

// AddAll appends elements and reports whether the list changed.
func (l *List[E]) AddAll(elements ...E) (changed bool) {
	l.withWrite(func() { changed = l.insertCore("add all", len(l.store), elements...) })
	return changed
}

// InsertAll places elements at index.
func (l *List[E]) InsertAll(index int, elements ...E) (changed bool) {
	l.withWrite(func() { changed = l.insertCore("insert all", index, elements...) })
	return changed
}

// Set replaces the element at index and returns the previous one.
func (l *List[E]) Set(index int, element E) (old E) {
	l.withWrite(func() { old = l.setCore("set", index, element) })
	return old
}

// RemoveAt removes and returns the element at index.
func (l *List[E]) RemoveAt(index int) (old E) {
	l.withWrite(func() { old = l.removeCore("remove at", index) })
	return old
}

// Remove removes the first element equal to element.
func (l *List[E]) Remove(element E) (removed bool) {
	l.withWrite(func() { removed = l.removeElementCore("remove", element) })
	return removed
}

// RemoveAll removes every element equal to one of elements.
func (l *List[E]) RemoveAll(elements ...E) (changed bool) {
	l.withWrite(func() { changed = l.removeAllCore("remove all", elements) })
	return changed
}

// RetainAll removes every element not equal to one of elements.
func (l *List[E]) RetainAll(elements ...E) (changed bool) {
	l.withWrite(func() { changed = l.retainAllCore("retain all", elements) })
	return changed
}

// RemoveRange removes the elements in [from, to).
func (l *List[E]) RemoveRange(from, to int) {
	l.withWrite(func() { l.removeRangeCore("remove range", from, to) })
}

// RemoveIf removes every element matching pred.
func (l *List[E]) RemoveIf(pred func(E) bool) (changed bool) {
	l.withWrite(func() { changed = l.removeIfCore("remove if", pred) })
	return changed
}

// RetainIf removes every element not matching pred.
func (l *List[E]) RetainIf(pred func(E) bool) (changed bool) {
	l.withWrite(func() {
		changed = l.removeIfCore("retain if", func(element E) bool { return !pred(element) })
	})
	return changed
}

// RemoveMatching removes every element for which test reports true, such as
// a compiled match.Rule. It stops at the first evaluation error.
func (l *List[E]) RemoveMatching(test func(E) (bool, error)) (changed bool, err error) {
	l.withWrite(func() {
		changed, err = l.removeWhereCore("remove matching", func(_ int, element E) (bool, error) {
			return test(element)
		})
	})
	return changed, err
}

// RetainMatching removes every element for which test reports false.
func (l *List[E]) RetainMatching(test func(E) (bool, error)) (changed bool, err error) {
	l.withWrite(func() {
		changed, err = l.removeWhereCore("retain matching", func(_ int, element E) (bool, error) {
			keep, err := test(element)
			return !keep, err
		})
	})
	return changed, err
}

// SetAll replaces the whole content with elements as one replace change.
func (l *List[E]) SetAll(elements ...E) (changed bool) {
	l.withWrite(func() { changed = l.setAllCore("set all", elements) })
	return changed
}

// Clear removes every element.
func (l *List[E]) Clear() {
	l.withWrite(l.clearCore)
}

// Sort orders the list with cmp, stable, and reports a permutation change.
func (l *List[E]) Sort(cmp func(a, b E) int) {
	l.withWrite(func() { l.sortCore(cmp) })
}
