package observable

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialExecutorRunsTasksInOrder(t *testing.T) {
	executor := NewSerialExecutor(context.Background(), 8)

	var got []int
	for i := 0; i < 100; i++ {
		executor.Execute(func() { got = append(got, i) })
	}
	executor.Close()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}

	executor.Execute(func() { t.Error("task ran after close") })
	executor.Close()
}

func TestSerialExecutorTaskCanSubmitToItself(t *testing.T) {
	executor := NewSerialExecutor(context.Background(), 0)
	defer executor.Close()

	var got []string
	done := make(chan struct{})
	executor.Execute(func() {
		got = append(got, "outer")
		executor.Execute(func() {
			got = append(got, "inner")
			close(done)
		})
		got = append(got, "outer done")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nested task never ran")
	}
	assert.Equal(t, []string{"outer", "outer done", "inner"}, got)
}

func TestSerialExecutorReportsTaskPanics(t *testing.T) {
	var mu sync.Mutex
	var reported []*ListenerPanicError
	previous := SetPanicHandler(func(err *ListenerPanicError) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, err)
	})
	t.Cleanup(func() { SetPanicHandler(previous) })

	executor := NewSerialExecutor(context.Background(), 0)
	ran := false
	executor.Execute(func() { panic("task failed") })
	executor.Execute(func() { ran = true })
	executor.Close()

	assert.True(t, ran)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 1)
	assert.Equal(t, "executor task", reported[0].Kind)
	assert.True(t, reported[0].ID.IsZero())
}

func TestSerialExecutorStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	executor := NewSerialExecutor(ctx, 0)
	cancel()

	select {
	case <-executor.Done():
	case <-time.After(time.Second):
		t.Fatal("executor did not stop")
	}

	executor.Execute(func() { t.Error("task ran after cancel") })
}

func TestListenersOnSerialExecutor(t *testing.T) {
	executor := NewSerialExecutor(context.Background(), 16)
	list := NewList[int]()

	var got [][]int
	list.AddChangeListener(func(change *ListChange[int]) {
		for change.Next() {
			got = append(got, change.Added())
		}
	}, OnExecutor(executor))

	list.Add(1)
	view := list.Lock()
	view.AddAll(2, 3)
	view.Close()
	executor.Close()

	assert.Equal(t, [][]int{{1}, {2, 3}}, got)
}

func TestExecutorFuncIgnoresNil(t *testing.T) {
	var nilFunc ExecutorFunc
	assert.NotPanics(t, func() { nilFunc.Execute(func() {}) })

	calls := 0
	DirectExecutor.Execute(func() { calls++ })
	DirectExecutor.Execute(nil)
	assert.Equal(t, 1, calls)
}
