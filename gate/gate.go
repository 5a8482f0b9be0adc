// Package gate provides the read/write gate guarding observable collections.
//
// A Gate hands out stamps. Write acquisition is exclusive and reentrant for
// the goroutine that owns it, read acquisition is shared, and optimistic reads
// never block: the caller validates the stamp after reading and falls back to
// a read lock when a write happened in between.
package gate

import (
	"errors"

	"github.com/petermattis/goid"
)

var (
	// ErrNotOwner reports a write release or ownership change attempted by a
	// goroutine that does not own the write lock.
	ErrNotOwner = errors.New("gate: write lock not held by current goroutine")
	// ErrUpgrade reports a write acquisition by a goroutine holding a read lock.
	ErrUpgrade = errors.New("gate: cannot upgrade a read lock to a write lock")
	// ErrInvalidStamp reports a release with a stamp of the wrong kind.
	ErrInvalidStamp = errors.New("gate: invalid stamp")
	// ErrInvalidOwner reports an ownership transfer to an unknown goroutine id.
	ErrInvalidOwner = errors.New("gate: invalid owner goroutine id")
)

// Gate is the locking contract consumed by collections.
type Gate interface {
	// WriteLock blocks until the gate is exclusively held. A goroutine that
	// already owns the write lock receives a nested stamp immediately.
	WriteLock() Stamp
	UnlockWrite(stamp Stamp)
	// ReadLock blocks while another goroutine writes. The owning writer and
	// goroutines already holding a read stamp receive a nested stamp.
	ReadLock() Stamp
	UnlockRead(stamp Stamp)
	// TryOptimisticRead returns a zero stamp while a writer holds the gate.
	TryOptimisticRead() Stamp
	// Validate reports whether no write happened since stamp was issued.
	Validate(stamp Stamp) bool
	IsWriteLocked() bool
	IsWriteLockedByCurrentGoroutine() bool
	// ChangeOwner hands the write lock to another goroutine. Only the current
	// owner may call it.
	ChangeOwner(goroutineID int64) error
}

// GoroutineID returns the id of the calling goroutine, suitable for
// ChangeOwner.
func GoroutineID() int64 {
	return goid.Get()
}

// Stamp identifies one acquisition of a Gate.
type Stamp uint64

const (
	kindBits = 3
	kindMask = Stamp(1)<<kindBits - 1

	kindOptimistic Stamp = 1
	kindRead       Stamp = 2
	kindWrite      Stamp = 3
	kindNested     Stamp = 4
)

func makeStamp(seq uint64, kind Stamp) Stamp {
	return Stamp(seq)<<kindBits | kind
}

func (s Stamp) kind() Stamp {
	return s & kindMask
}

// IsValid reports whether the stamp came from a successful acquisition.
func (s Stamp) IsValid() bool { return s.kind() != 0 }

// IsOptimistic reports whether the stamp came from TryOptimisticRead.
func (s Stamp) IsOptimistic() bool { return s.kind() == kindOptimistic }

// IsRead reports whether the stamp is an outermost shared hold.
func (s Stamp) IsRead() bool { return s.kind() == kindRead }

// IsWrite reports whether the stamp is an outermost exclusive hold. Only the
// holder of such a stamp actually releases the gate.
func (s Stamp) IsWrite() bool { return s.kind() == kindWrite }

// IsNested reports whether the stamp rides on a hold the goroutine already had.
func (s Stamp) IsNested() bool { return s.kind() == kindNested }
