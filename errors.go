package observable

import (
	"errors"
	"fmt"
)

var (
	// ErrConcurrentModification reports that the backing store changed
	// underneath an iterator or sublist.
	ErrConcurrentModification = errors.New("observable: concurrent modification")
	// ErrReadOnlyView reports a mutation through a read-only or nested view.
	ErrReadOnlyView = errors.New("observable: view is read-only")
	// ErrViewClosed reports use of a view after Close.
	ErrViewClosed = errors.New("observable: view is closed")
	// ErrNotInitialized reports an observable element inserted before the
	// collection executor was initialized.
	ErrNotInitialized = errors.New("observable: executor not initialized")
	// ErrAlreadyInitialized reports a second Initialize call.
	ErrAlreadyInitialized = errors.New("observable: executor already initialized")
	// ErrNilExecutor reports Initialize called without an executor.
	ErrNilExecutor = errors.New("observable: executor must not be nil")
	// ErrOwnerChange reports an ownership transfer of a read-only or nested view.
	ErrOwnerChange = errors.New("observable: ownership of a read-only view cannot change")
	// ErrNotLocked reports use of a writable view or its iterator by a goroutine that
	// does not own the write lock.
	ErrNotLocked = errors.New("observable: write lock not held by current goroutine")
	// ErrNoCurrentElement reports an iterator mutation without a preceding
	// successful Next or Previous.
	ErrNoCurrentElement = errors.New("observable: iterator has no current element")
	// ErrIndexOutOfRange is wrapped by IndexError.
	ErrIndexOutOfRange = errors.New("observable: index out of range")
)

// StateError describes an operation rejected because of the state of a view,
// collection, or change record. It is raised as a panic value.
type StateError struct {
	Op  string
	Err error
}

func (e *StateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StateError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IndexError is the panic value for an index outside the collection bounds.
type IndexError struct {
	Op    string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("observable: %s: index %d out of range [0:%d]", e.Op, e.Index, e.Len)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// ListenerPanicError carries a panic recovered from a listener or executor
// task to the panic handler.
type ListenerPanicError struct {
	Kind  string
	ID    ListenerID
	Value any
	Stack []byte
}

func (e *ListenerPanicError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.ID.IsZero() {
		return fmt.Sprintf("observable: %s panicked: %v", e.Kind, e.Value)
	}
	return fmt.Sprintf("observable: %s listener %s panicked: %v", e.Kind, e.ID, e.Value)
}

func (e *ListenerPanicError) Unwrap() error {
	if e == nil {
		return nil
	}
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func illegalState(op string, err error) {
	panic(&StateError{Op: op, Err: err})
}

func checkIndex(op string, index, length int) {
	if index < 0 || index >= length {
		panic(&IndexError{Op: op, Index: index, Len: length})
	}
}

func checkPosition(op string, index, length int) {
	if index < 0 || index > length {
		panic(&IndexError{Op: op, Index: index, Len: length})
	}
}

func checkRange(op string, from, to, length int) {
	if from < 0 || from > to {
		panic(&IndexError{Op: op, Index: from, Len: length})
	}
	if to > length {
		panic(&IndexError{Op: op, Index: to, Len: length})
	}
}
