package observable

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-observable/gate"
)

// Executor decides where a listener invocation runs.
type Executor interface {
	Execute(task func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(task func())

// Execute implements Executor.
func (f ExecutorFunc) Execute(task func()) {
	if f != nil && task != nil {
		f(task)
	}
}

// DirectExecutor runs every task inline on the calling goroutine.
var DirectExecutor Executor = ExecutorFunc(func(task func()) { task() })

// SerialExecutor runs tasks one at a time, in submission order, on a single
// goroutine. It plays the role of a UI thread for listeners that must not run
// on the mutating goroutine.
//
// Tasks submitted from the executor goroutine itself are queued locally and
// run after the current task, so a task never blocks on its own executor.
type SerialExecutor struct {
	tasks chan func()
	done  chan struct{}

	loopID atomic.Int64
	local  []func()

	mu     sync.RWMutex
	closed bool
}

// NewSerialExecutor starts the executor goroutine. It stops when ctx is
// cancelled or Close is called; queued tasks still run on Close.
func NewSerialExecutor(ctx context.Context, buffer int) *SerialExecutor {
	if ctx == nil {
		ctx = context.Background()
	}
	if buffer < 0 {
		buffer = 0
	}
	e := &SerialExecutor{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
	go e.loop(ctx)
	return e
}

// Execute queues task. Tasks submitted after the executor stopped are dropped.
func (e *SerialExecutor) Execute(task func()) {
	if task == nil {
		return
	}
	if id := e.loopID.Load(); id != 0 && id == gate.GoroutineID() {
		e.local = append(e.local, task)
		return
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	select {
	case e.tasks <- task:
	case <-e.done:
	}
}

// Close stops accepting tasks and waits for the queued ones to finish.
func (e *SerialExecutor) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.tasks)
	}
	e.mu.Unlock()
	<-e.done
}

// Done is closed once the executor goroutine exits.
func (e *SerialExecutor) Done() <-chan struct{} {
	return e.done
}

func (e *SerialExecutor) loop(ctx context.Context) {
	defer close(e.done)
	e.loopID.Store(gate.GoroutineID())
	for {
		select {
		case task, ok := <-e.tasks:
			if !ok {
				return
			}
			e.run(task)
		case <-ctx.Done():
			return
		}
	}
}

// run executes task and then everything it queued on this goroutine.
func (e *SerialExecutor) run(task func()) {
	runTask(task)
	for len(e.local) > 0 {
		next := e.local[0]
		e.local[0] = nil
		e.local = e.local[1:]
		runTask(next)
	}
}

func runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			reportPanic(&ListenerPanicError{Kind: "executor task", Value: r, Stack: debug.Stack()})
		}
	}()
	task()
}
