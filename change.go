package observable

import (
	"fmt"
	"slices"
	"strings"
)

// ChangeKind classifies one step of a change.
type ChangeKind uint8

const (
	KindAdd ChangeKind = iota + 1
	KindRemove
	KindReplace
	KindPermute
	KindUpdate
)

func (k ChangeKind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindRemove:
		return "remove"
	case KindReplace:
		return "replace"
	case KindPermute:
		return "permute"
	case KindUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Step describes one contiguous mutation. From and To are positions in the
// list after the change; Removed holds the elements that used to live at
// From. Added is a copy of the elements in [From, To) when the step was built.
// Permutation[i] is the new position of the element previously at From+i.
type Step[E any] struct {
	Kind        ChangeKind
	From        int
	To          int
	Removed     []E
	Added       []E
	Permutation []int
}

func (s Step[E]) String() string {
	switch s.Kind {
	case KindRemove:
		return fmt.Sprintf("%s[%d,%v]", s.Kind, s.From, s.Removed)
	case KindReplace:
		return fmt.Sprintf("%s[%d,%d) removed=%v", s.Kind, s.From, s.To, s.Removed)
	case KindPermute:
		return fmt.Sprintf("%s[%d,%d) %v", s.Kind, s.From, s.To, s.Permutation)
	default:
		return fmt.Sprintf("%s[%d,%d)", s.Kind, s.From, s.To)
	}
}

// ListChange is one coalesced change of a list. It exposes a cursor over its
// steps; the cursor is reset before every listener so each one can replay it:
//
//	for change.Next() {
//		if change.WasAdded() { ... }
//	}
type ListChange[E any] struct {
	list   *List[E]
	steps  []Step[E]
	cursor int
}

func newListChange[E any](list *List[E], steps []Step[E]) *ListChange[E] {
	return &ListChange[E]{list: list, steps: steps, cursor: -1}
}

// List returns the list that changed.
func (c *ListChange[E]) List() *List[E] { return c.list }

// Next advances to the next step.
func (c *ListChange[E]) Next() bool {
	if c.cursor+1 >= len(c.steps) {
		c.cursor = len(c.steps)
		return false
	}
	c.cursor++
	return true
}

// Reset rewinds the cursor before the first step.
func (c *ListChange[E]) Reset() { c.cursor = -1 }

// Len returns the number of steps.
func (c *ListChange[E]) Len() int { return len(c.steps) }

// Steps returns a copy of all steps.
func (c *ListChange[E]) Steps() []Step[E] { return slices.Clone(c.steps) }

// Step returns the step under the cursor.
func (c *ListChange[E]) Step() Step[E] {
	if c.cursor < 0 || c.cursor >= len(c.steps) {
		illegalState("list change", ErrNoCurrentElement)
	}
	return c.steps[c.cursor]
}

func (c *ListChange[E]) Kind() ChangeKind { return c.Step().Kind }
func (c *ListChange[E]) From() int        { return c.Step().From }
func (c *ListChange[E]) To() int          { return c.Step().To }
func (c *ListChange[E]) Removed() []E     { return slices.Clone(c.Step().Removed) }
func (c *ListChange[E]) Added() []E       { return slices.Clone(c.Step().Added) }
func (c *ListChange[E]) RemovedSize() int { return len(c.Step().Removed) }

func (c *ListChange[E]) AddedSize() int {
	if step := c.Step(); step.Kind == KindAdd || step.Kind == KindReplace {
		return step.To - step.From
	}
	return 0
}

func (c *ListChange[E]) WasAdded() bool {
	kind := c.Kind()
	return kind == KindAdd || kind == KindReplace
}

func (c *ListChange[E]) WasRemoved() bool {
	kind := c.Kind()
	return kind == KindRemove || kind == KindReplace
}

func (c *ListChange[E]) WasReplaced() bool   { return c.Kind() == KindReplace }
func (c *ListChange[E]) WasPermutated() bool { return c.Kind() == KindPermute }
func (c *ListChange[E]) WasUpdated() bool    { return c.Kind() == KindUpdate }

// PermutationOf returns the new position of the element that was at index
// before the current permutation step.
func (c *ListChange[E]) PermutationOf(index int) int {
	step := c.Step()
	if step.Kind != KindPermute {
		illegalState("permutation", fmt.Errorf("observable: step is %s, not permute", step.Kind))
	}
	if index < step.From || index >= step.To {
		panic(&IndexError{Op: "permutation", Index: index, Len: step.To})
	}
	return step.Permutation[index-step.From]
}

// detach returns a copy with its own cursor; steps are immutable and shared.
func (c *ListChange[E]) detach() *ListChange[E] {
	return &ListChange[E]{list: c.list, steps: c.steps, cursor: -1}
}

func (c *ListChange[E]) String() string {
	parts := make([]string, len(c.steps))
	for i, step := range c.steps {
		parts[i] = step.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// SetChange reports one element added to or removed from a set.
type SetChange[E comparable] struct {
	set     *Set[E]
	added   bool
	element E
}

// Set returns the set that changed.
func (c *SetChange[E]) Set() *Set[E] { return c.set }

func (c *SetChange[E]) WasAdded() bool   { return c.added }
func (c *SetChange[E]) WasRemoved() bool { return !c.added }
func (c *SetChange[E]) Element() E       { return c.element }

func (c *SetChange[E]) Kind() ChangeKind {
	if c.added {
		return KindAdd
	}
	return KindRemove
}

func (c *SetChange[E]) String() string {
	if c.added {
		return fmt.Sprintf("added %v", c.element)
	}
	return fmt.Sprintf("removed %v", c.element)
}
