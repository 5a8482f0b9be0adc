package observable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type intChange = *ListChange[int]

func TestRegistryShapeFollowsListenerCount(t *testing.T) {
	source := NewList[int]()
	var h listenerHelper[intChange]

	inv := invalidationEntry{id: NewListenerID(), fn: func(Observable) {}}
	h = addInvalidationListener(h, source, inv)
	assert.IsType(t, &singleInvalidation[intChange]{}, h)

	ch := changeEntry[intChange]{id: NewListenerID(), fn: func(intChange) {}}
	h = addChangeListener(h, source, ch)
	assert.IsType(t, &genericHelper[intChange]{}, h)

	h, removed := removeInvalidationListener(h, inv.id)
	assert.True(t, removed)
	assert.IsType(t, &singleChange[intChange]{}, h)

	h, removed = removeInvalidationListener(h, inv.id)
	assert.False(t, removed)

	h, removed = removeChangeListener(h, ch.id)
	assert.True(t, removed)
	assert.Nil(t, h)

	h, removed = removeSubInvalidationListener(h, ch.id)
	assert.False(t, removed)
	assert.Nil(t, h)
}

func TestFireRoutesByListenerKind(t *testing.T) {
	source := NewList[int]()
	var calls []string
	var h listenerHelper[intChange]
	h = addInvalidationListener(h, source, invalidationEntry{
		id: NewListenerID(),
		fn: func(Observable) { calls = append(calls, "invalidation") },
	})
	h = addSubInvalidationListener(h, source, subInvalidationEntry{
		id: NewListenerID(),
		fn: func(_ Observable, subOnly bool) { calls = append(calls, fmt.Sprintf("sub:%t", subOnly)) },
	})
	h = addChangeListener(h, source, changeEntry[intChange]{
		id: NewListenerID(),
		fn: func(intChange) { calls = append(calls, "change") },
	})
	change := newListChange(source, []Step[int]{{Kind: KindAdd, From: 0, To: 1}})

	fireChange(h, change, false)
	assert.Equal(t, []string{"invalidation", "change"}, calls)

	calls = nil
	fireChange(h, change, true)
	assert.Equal(t, []string{"invalidation", "change", "sub:false"}, calls)

	calls = nil
	fireChange[intChange](h, nil, true)
	assert.Equal(t, []string{"sub:true"}, calls)
}

func TestSingleSubInvalidationOnlySeesFinalAndPure(t *testing.T) {
	source := NewList[int]()
	var seen []bool
	h := addSubInvalidationListener[intChange](nil, source, subInvalidationEntry{
		id: NewListenerID(),
		fn: func(_ Observable, subOnly bool) { seen = append(seen, subOnly) },
	})
	change := newListChange(source, []Step[int]{{Kind: KindUpdate, From: 0, To: 1}})

	fireChange(h, change, false)
	fireChange(h, change, true)
	fireChange[intChange](h, nil, true)

	assert.Equal(t, []bool{false, true}, seen)
}

func TestRemovalDuringDispatchTakesEffectNextTime(t *testing.T) {
	source := NewList[int]()
	var calls []string
	var h listenerHelper[intChange]
	secondID := NewListenerID()

	h = addChangeListener(h, source, changeEntry[intChange]{
		id: NewListenerID(),
		fn: func(intChange) {
			calls = append(calls, "first")
			h, _ = removeChangeListener(h, secondID)
		},
	})
	h = addChangeListener(h, source, changeEntry[intChange]{
		id: secondID,
		fn: func(intChange) { calls = append(calls, "second") },
	})
	change := newListChange(source, []Step[int]{{Kind: KindAdd, From: 0, To: 1}})

	fireChange(h, change, false)
	assert.Equal(t, []string{"first", "second"}, calls)

	calls = nil
	fireChange(h, change, false)
	assert.Equal(t, []string{"first"}, calls)
}

func TestAdditionDuringDispatchTakesEffectNextTime(t *testing.T) {
	source := NewList[int]()
	var calls []string
	var h listenerHelper[intChange]
	added := false

	late := changeEntry[intChange]{id: NewListenerID(), fn: func(intChange) { calls = append(calls, "late") }}
	h = addInvalidationListener(h, source, invalidationEntry{id: NewListenerID(), fn: func(Observable) {}})
	h = addChangeListener(h, source, changeEntry[intChange]{
		id: NewListenerID(),
		fn: func(intChange) {
			calls = append(calls, "early")
			if !added {
				added = true
				h = h.addChange(late)
			}
		},
	})
	change := newListChange(source, []Step[int]{{Kind: KindAdd, From: 0, To: 1}})

	fireChange(h, change, false)
	assert.Equal(t, []string{"early"}, calls)

	calls = nil
	fireChange(h, change, false)
	assert.Equal(t, []string{"early", "late"}, calls)
}

func TestInvalidationListenerPanicIsReported(t *testing.T) {
	var reported []*ListenerPanicError
	previous := SetPanicHandler(func(err *ListenerPanicError) { reported = append(reported, err) })
	t.Cleanup(func() { SetPanicHandler(previous) })

	list := NewList[int]()
	badID := list.AddInvalidationListener(func(Observable) { panic(fmt.Errorf("bad listener")) })
	fired := 0
	list.AddInvalidationListener(func(Observable) { fired++ })

	list.Add(1)

	assert.Equal(t, 1, fired)
	require.Len(t, reported, 1)
	assert.Equal(t, badID, reported[0].ID)
	assert.Equal(t, kindInvalidation, reported[0].Kind)
	assert.ErrorContains(t, reported[0], "bad listener")
}

func TestNilListenerIsRejected(t *testing.T) {
	list := NewList[int]()
	assert.True(t, list.AddChangeListener(nil).IsZero())
	assert.True(t, list.AddInvalidationListener(nil).IsZero())
	assert.False(t, list.RemoveChangeListener(NewListenerID()))
}

func TestListenerOnExecutorGetsOwnCursor(t *testing.T) {
	var queued []func()
	executor := ExecutorFunc(func(task func()) { queued = append(queued, task) })

	list := NewList[int]()
	var deferred []Step[int]
	list.AddChangeListener(func(change *ListChange[int]) {
		for change.Next() {
			deferred = append(deferred, change.Step())
		}
	}, OnExecutor(executor))
	list.AddChangeListener(func(change *ListChange[int]) {
		for change.Next() {
		}
	})

	list.AddAll(1, 2)
	assert.Empty(t, deferred)
	require.Len(t, queued, 1)

	queued[0]()
	require.Len(t, deferred, 1)
	assert.Equal(t, []int{1, 2}, deferred[0].Added)
}

func TestRemovedListenerStopsReceiving(t *testing.T) {
	list := NewList[int]()
	count := 0
	id := list.AddChangeListener(func(*ListChange[int]) { count++ })

	list.Add(1)
	assert.True(t, list.RemoveChangeListener(id))
	list.Add(2)

	assert.Equal(t, 1, count)
}
