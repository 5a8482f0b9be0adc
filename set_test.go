package observable

import (
	"errors"
	"testing"

	"github.com/goliatone/go-observable/gate"
	"github.com/goliatone/go-observable/pkg/activity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type setRecorder struct {
	changes []string
}

func recordSet[E comparable](s *Set[E]) *setRecorder {
	rec := &setRecorder{}
	s.AddChangeListener(func(change *SetChange[E]) {
		rec.changes = append(rec.changes, change.String())
	})
	return rec
}

func TestSetIgnoresDuplicates(t *testing.T) {
	set := NewSet[string]()
	rec := recordSet(set)

	assert.True(t, set.Add("a"))
	assert.False(t, set.Add("a"))
	assert.True(t, set.AddAll("a", "b", "c"))

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []string{"a", "b", "c"}, set.Snapshot())
	assert.Len(t, rec.changes, 3)
}

func TestSetScopeDeliversOneChangePerMember(t *testing.T) {
	set := NewSetOf([]int{1, 2})
	var kinds []ChangeKind
	var elements []int
	set.AddChangeListener(func(change *SetChange[int]) {
		kinds = append(kinds, change.Kind())
		elements = append(elements, change.Element())
	})

	view := set.Lock()
	view.Add(3)
	view.Remove(1)
	assert.Empty(t, kinds)
	view.Close()

	assert.Equal(t, []ChangeKind{KindAdd, KindRemove}, kinds)
	assert.Equal(t, []int{3, 1}, elements)
}

func TestSetAddThenRemoveInScopeCancels(t *testing.T) {
	set := NewSet[string]()
	rec := recordSet(set)
	invalidations := 0
	set.AddInvalidationListener(func(Observable) { invalidations++ })

	view := set.Lock()
	view.Add("tmp")
	view.Remove("tmp")
	view.Close()

	assert.Empty(t, rec.changes)
	assert.Zero(t, invalidations)
	assert.True(t, set.IsEmpty())
}

func TestSortedSetKeepsOrder(t *testing.T) {
	set := NewSortedSet(func(a, b int) bool { return a < b })
	set.AddAll(5, 1, 3, 1)

	assert.Equal(t, []int{1, 3, 5}, set.Snapshot())
	var walked []int
	for v := range set.All() {
		walked = append(walked, v)
	}
	assert.Equal(t, []int{1, 3, 5}, walked)
	assert.True(t, set.Remove(3))
	assert.Equal(t, "[1, 5]", set.String())
	assert.Panics(t, func() { NewSortedSet[int](nil) })
}

func TestSetBulkOperations(t *testing.T) {
	set := NewSetOf([]int{1, 2, 3, 4, 5})

	assert.True(t, set.RemoveAll(1, 9))
	assert.True(t, set.RetainAll(2, 3, 4))
	assert.Equal(t, []int{2, 3, 4}, set.Snapshot())

	assert.True(t, set.RemoveIf(func(v int) bool { return v == 3 }))
	assert.True(t, set.ContainsAll(2, 4))
	assert.False(t, set.ContainsAll(2, 3))

	set.Clear()
	assert.True(t, set.IsEmpty())
}

func TestSetRemoveMatchingKeepsEarlierRemovals(t *testing.T) {
	boom := errors.New("boom")
	set := NewSetOf([]int{1, 2, 3})

	changed, err := set.RemoveMatching(func(v int) (bool, error) {
		if v == 3 {
			return false, boom
		}
		return v == 1, nil
	})

	assert.ErrorIs(t, err, boom)
	assert.True(t, changed)
	assert.Equal(t, []int{2, 3}, set.Snapshot())
}

func TestSetIteratorRemove(t *testing.T) {
	set := NewSetOf([]int{1, 2, 3, 4})
	view := set.Lock()

	it := view.Iterator()
	for it.Next() {
		if it.Value()%2 == 0 {
			require.NoError(t, it.Remove())
		}
	}
	require.NoError(t, it.Err())
	assert.ErrorIs(t, it.Remove(), ErrNoCurrentElement)
	view.Close()

	assert.Equal(t, []int{1, 3}, set.Snapshot())
}

func TestSetIteratorFailsFast(t *testing.T) {
	set := NewSetOf([]int{1, 2})
	view := set.Lock()
	defer view.Close()

	it := view.Iterator()
	require.True(t, it.Next())
	view.Add(9)

	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrConcurrentModification)
	requirePanicIs(t, ErrConcurrentModification, func() {
		for range view.All() {
			view.Add(10)
		}
	})
}

func TestSetViews(t *testing.T) {
	set := NewSetOf([]string{"x"})

	readOnly := set.LockReadOnly()
	assert.Equal(t, ModeReadOnly, readOnly.Mode())
	assert.True(t, readOnly.Contains("x"))
	requirePanicIs(t, ErrReadOnlyView, func() { readOnly.Add("y") })
	assert.ErrorIs(t, readOnly.ChangeOwner(0), ErrOwnerChange)
	readOnly.Close()
	readOnly.Close()
	requirePanicIs(t, ErrViewClosed, func() { readOnly.Len() })

	outer := set.Lock()
	inner := set.Lock()
	assert.Equal(t, ModeNested, inner.Mode())
	requirePanicIs(t, ErrReadOnlyView, func() { inner.Clear() })
	inner.Close()
	outer.Close()
}

func TestSetInitialize(t *testing.T) {
	set := NewSet[int]()
	assert.ErrorIs(t, set.Initialize(nil), ErrNilExecutor)
	require.NoError(t, set.Initialize(DirectExecutor))
	assert.ErrorIs(t, set.Initialize(DirectExecutor), ErrAlreadyInitialized)
}

func TestSetEquality(t *testing.T) {
	a := NewSetOf([]int{1, 2, 3})
	b := NewSortedSet(func(x, y int) bool { return x < y })
	b.AddAll(3, 2, 1)

	assert.True(t, a.Equal(b))
	b.Remove(2)
	assert.False(t, a.Equal(b))
}

func TestSetEmitsActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	set := NewSet[string](WithID("tags"), WithActivityHooks(activity.Hooks{capture}))

	set.Add("go")
	set.Remove("go")

	assert.Equal(t, []string{activity.VerbAdded, activity.VerbRemoved}, capture.Verbs())
	events := capture.Events()
	assert.Equal(t, activity.ObjectTypeSet, events[0].ObjectType)
	assert.Equal(t, "tags", events[0].ObjectID)
	assert.Equal(t, 1, events[1].Metadata["removed_count"])
}

func TestSetViewRejectsMutationAfterOwnerChange(t *testing.T) {
	set := NewSet[int]()
	view := set.Lock()
	view.Add(1)

	ids := make(chan int64)
	proceed := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ids <- gate.GoroutineID()
		<-proceed
		view.Add(2)
		view.Close()
	}()

	require.NoError(t, view.ChangeOwner(<-ids))
	requirePanicIs(t, ErrNotLocked, func() { view.Remove(1) })
	close(proceed)
	<-done

	assert.Equal(t, []int{1, 2}, set.Snapshot())
}
