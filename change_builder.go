package observable

import (
	"errors"
	"slices"

	"github.com/bits-and-blooms/bitset"
)

var (
	errUnbalancedChange = errors.New("observable: end change without begin change")
	errNoChange         = errors.New("observable: change step outside begin/end change")
	errMixedPermutation = errors.New("observable: permutation mixed with structural changes")
)

// subChange is a pending add/remove/replace range, in post-change positions.
type subChange[E any] struct {
	from    int
	to      int
	removed []E
}

// changeBuilder coalesces the low-level steps issued between beginChange and
// endChange into the smallest set of steps, then hands them to commit.
type changeBuilder[E any] struct {
	depth     int
	addRemove []*subChange[E]
	updated   *bitset.BitSet
	perm      []int
	permFrom  int

	snapshot func(from, to int) []E
	commit   func(steps []Step[E])
}

func newChangeBuilder[E any](snapshot func(from, to int) []E, commit func([]Step[E])) *changeBuilder[E] {
	return &changeBuilder[E]{snapshot: snapshot, commit: commit}
}

func (b *changeBuilder[E]) beginChange() {
	b.depth++
}

func (b *changeBuilder[E]) endChange() {
	if b.depth == 0 {
		illegalState("end change", errUnbalancedChange)
	}
	b.depth--
	if b.depth == 0 {
		b.finish()
	}
}

func (b *changeBuilder[E]) checkState() {
	if b.depth == 0 {
		illegalState("change builder", errNoChange)
	}
}

func (b *changeBuilder[E]) nextAdd(from, to int) {
	b.checkState()
	if from >= to {
		return
	}
	b.insertAdd(from, to)
	if b.updated != nil && uint(from) < b.updated.Len() {
		for i := from; i < to; i++ {
			b.updated.InsertAt(uint(from))
		}
	}
}

func (b *changeBuilder[E]) nextRemove(index int, removed E) {
	b.checkState()
	if n := len(b.addRemove); n > 0 {
		last := b.addRemove[n-1]
		switch {
		case last.to == index:
			last.removed = append(last.removed, removed)
			b.dropUpdate(index)
			return
		case last.from == index+1 && (n == 1 || b.addRemove[n-2].to <= index):
			last.from--
			last.to--
			last.removed = slices.Insert(last.removed, 0, removed)
			b.dropUpdate(index)
			return
		}
	}
	b.insertRemoved(index, removed)
	b.dropUpdate(index)
}

func (b *changeBuilder[E]) nextRemoveAll(index int, removed []E) {
	for _, element := range removed {
		b.nextRemove(index, element)
	}
}

func (b *changeBuilder[E]) nextSet(index int, old E) {
	b.nextReplace(index, index+1, []E{old})
}

func (b *changeBuilder[E]) nextReplace(from, to int, removed []E) {
	b.checkState()
	b.nextRemoveAll(from, removed)
	b.nextAdd(from, to)
}

func (b *changeBuilder[E]) nextUpdate(pos int) {
	b.checkState()
	if b.updated == nil {
		b.updated = bitset.New(uint(pos + 1))
	}
	b.updated.Set(uint(pos))
}

func (b *changeBuilder[E]) nextPermutation(from, to int, perm []int) {
	b.checkState()
	if len(b.addRemove) > 0 {
		illegalState("permutation", errMixedPermutation)
	}
	if b.updated != nil {
		b.remapUpdates(from, to, perm)
	}
	if b.perm == nil {
		b.permFrom = from
		b.perm = slices.Clone(perm)
		return
	}
	lo := min(b.permFrom, from)
	hi := max(b.permFrom+len(b.perm), to)
	composed := make([]int, hi-lo)
	for i := lo; i < hi; i++ {
		p := i
		if p >= b.permFrom && p < b.permFrom+len(b.perm) {
			p = b.perm[p-b.permFrom]
		}
		if p >= from && p < to {
			p = perm[p-from]
		}
		composed[i-lo] = p
	}
	b.permFrom, b.perm = lo, composed
}

func (b *changeBuilder[E]) insertAdd(from, to int) {
	count := to - from
	idx, found := findSubChange(b.addRemove, from)
	var target *subChange[E]
	switch {
	case found:
		target = b.addRemove[idx]
	case idx > 0 && b.addRemove[idx-1].to == from:
		idx--
		target = b.addRemove[idx]
	}
	if target != nil {
		target.to += count
	} else {
		b.addRemove = slices.Insert(b.addRemove, idx, &subChange[E]{from: from, to: to})
	}
	for _, change := range b.addRemove[idx+1:] {
		change.from += count
		change.to += count
	}
}

func (b *changeBuilder[E]) insertRemoved(pos int, removed E) {
	idx, found := findSubChange(b.addRemove, pos)
	if found {
		// the element was added in this bracket, so it simply disappears
		change := b.addRemove[idx]
		change.to--
		if change.from == change.to && len(change.removed) == 0 {
			b.addRemove = slices.Delete(b.addRemove, idx, idx+1)
			idx--
		}
	} else {
		b.addRemove = slices.Insert(b.addRemove, idx, &subChange[E]{from: pos, to: pos, removed: []E{removed}})
	}
	for _, change := range b.addRemove[idx+1:] {
		change.from--
		change.to--
	}
}

func (b *changeBuilder[E]) dropUpdate(pos int) {
	if b.updated != nil && uint(pos) < b.updated.Len() {
		b.updated.DeleteAt(uint(pos))
	}
}

func (b *changeBuilder[E]) remapUpdates(from, to int, perm []int) {
	remapped := bitset.New(b.updated.Len())
	for i, ok := b.updated.NextSet(0); ok; i, ok = b.updated.NextSet(i + 1) {
		pos := int(i)
		if pos >= from && pos < to {
			pos = perm[pos-from]
		}
		remapped.Set(uint(pos))
	}
	b.updated = remapped
}

func (b *changeBuilder[E]) finish() {
	var steps []Step[E]
	if b.perm != nil && !isIdentity(b.perm, b.permFrom) {
		steps = append(steps, Step[E]{
			Kind:        KindPermute,
			From:        b.permFrom,
			To:          b.permFrom + len(b.perm),
			Permutation: b.perm,
		})
	}
	first := len(steps)
	for _, change := range b.addRemove {
		step := Step[E]{From: change.from, To: change.to, Removed: change.removed}
		switch {
		case change.to > change.from && len(change.removed) > 0:
			step.Kind = KindReplace
		case change.to > change.from:
			step.Kind = KindAdd
		default:
			step.Kind = KindRemove
		}
		if change.to > change.from {
			step.Added = b.snapshot(change.from, change.to)
		}
		steps = append(steps, step)
	}
	if b.updated != nil {
		steps = append(steps, b.updateSteps()...)
	}
	slices.SortStableFunc(steps[first:], func(a, c Step[E]) int {
		return a.From - c.From
	})

	b.addRemove = nil
	b.updated = nil
	b.perm = nil
	b.permFrom = 0

	if len(steps) > 0 && b.commit != nil {
		b.commit(steps)
	}
}

func (b *changeBuilder[E]) updateSteps() []Step[E] {
	var steps []Step[E]
	start, prev := -1, -1
	emit := func() {
		if start >= 0 {
			steps = append(steps, Step[E]{
				Kind:  KindUpdate,
				From:  start,
				To:    prev + 1,
				Added: b.snapshot(start, prev+1),
			})
		}
	}
	for i, ok := b.updated.NextSet(0); ok; i, ok = b.updated.NextSet(i + 1) {
		pos := int(i)
		if b.coveredByAdd(pos) {
			continue
		}
		if start >= 0 && pos == prev+1 {
			prev = pos
			continue
		}
		emit()
		start, prev = pos, pos
	}
	emit()
	return steps
}

func (b *changeBuilder[E]) coveredByAdd(pos int) bool {
	for _, change := range b.addRemove {
		if pos >= change.from && pos < change.to {
			return true
		}
	}
	return false
}

// findSubChange locates the pending change whose added range contains pos,
// or the insertion point keeping changes ordered.
func findSubChange[E any](changes []*subChange[E], pos int) (int, bool) {
	lo, hi := 0, len(changes)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		change := changes[mid]
		switch {
		case pos >= change.to:
			lo = mid + 1
		case pos < change.from:
			hi = mid - 1
		default:
			return mid, true
		}
	}
	return lo, false
}

func isIdentity(perm []int, from int) bool {
	for i, p := range perm {
		if p != from+i {
			return false
		}
	}
	return true
}
