package observable

import (
	"slices"

	"github.com/tidwall/btree"
)

// setStore is the backing store of a Set. Callers hold the set gate.
type setStore[E comparable] interface {
	Len() int
	Contains(element E) bool
	Add(element E) bool
	// Remove deletes the member equal to element and returns the stored
	// member, which for a sorted store may differ from element.
	Remove(element E) (E, bool)
	Values() []E
	Scan(fn func(element E) bool)
}

// hashStore keeps insertion order.
type hashStore[E comparable] struct {
	index map[E]int
	order []E
}

func newHashStore[E comparable]() *hashStore[E] {
	return &hashStore[E]{index: make(map[E]int)}
}

func (s *hashStore[E]) Len() int { return len(s.order) }

func (s *hashStore[E]) Contains(element E) bool {
	_, ok := s.index[element]
	return ok
}

func (s *hashStore[E]) Add(element E) bool {
	if _, ok := s.index[element]; ok {
		return false
	}
	s.index[element] = len(s.order)
	s.order = append(s.order, element)
	return true
}

func (s *hashStore[E]) Remove(element E) (E, bool) {
	i, ok := s.index[element]
	if !ok {
		var zero E
		return zero, false
	}
	stored := s.order[i]
	delete(s.index, element)
	s.order = slices.Delete(s.order, i, i+1)
	for j := i; j < len(s.order); j++ {
		s.index[s.order[j]] = j
	}
	return stored, true
}

func (s *hashStore[E]) Values() []E {
	return slices.Clone(s.order)
}

func (s *hashStore[E]) Scan(fn func(element E) bool) {
	for _, element := range s.order {
		if !fn(element) {
			return
		}
	}
}

// sortedStore keeps elements ordered by a less function. Elements that
// compare equal under less are the same member.
type sortedStore[E comparable] struct {
	tree *btree.BTreeG[E]
}

func newSortedStore[E comparable](less func(a, b E) bool) *sortedStore[E] {
	return &sortedStore[E]{tree: btree.NewBTreeGOptions(less, btree.Options{NoLocks: true})}
}

func (s *sortedStore[E]) Len() int { return s.tree.Len() }

func (s *sortedStore[E]) Contains(element E) bool {
	_, ok := s.tree.Get(element)
	return ok
}

func (s *sortedStore[E]) Add(element E) bool {
	if s.Contains(element) {
		return false
	}
	s.tree.Set(element)
	return true
}

func (s *sortedStore[E]) Remove(element E) (E, bool) {
	return s.tree.Delete(element)
}

func (s *sortedStore[E]) Values() []E {
	return s.tree.Items()
}

func (s *sortedStore[E]) Scan(fn func(element E) bool) {
	s.tree.Scan(fn)
}
