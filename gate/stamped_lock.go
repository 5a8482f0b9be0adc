package gate

import (
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// StampedLock is the default Gate. A sequence counter, odd while a writer
// holds the lock, backs optimistic reads; a sync.RWMutex does the blocking.
type StampedLock struct {
	mu    sync.RWMutex
	seq   atomic.Uint64
	owner atomic.Int64
	holds int

	readersMu sync.Mutex
	readers   map[int64]int
}

var _ Gate = (*StampedLock)(nil)

// NewStampedLock returns an unlocked StampedLock.
func NewStampedLock() *StampedLock {
	return &StampedLock{readers: make(map[int64]int)}
}

func (l *StampedLock) WriteLock() Stamp {
	id := goid.Get()
	if l.owner.Load() == id {
		l.holds++
		return makeStamp(l.seq.Load(), kindNested)
	}
	if l.readHolds(id) > 0 {
		panic(ErrUpgrade)
	}
	l.mu.Lock()
	l.owner.Store(id)
	return makeStamp(l.seq.Add(1), kindWrite)
}

func (l *StampedLock) UnlockWrite(stamp Stamp) {
	if l.owner.Load() != goid.Get() {
		panic(ErrNotOwner)
	}
	switch stamp.kind() {
	case kindNested:
		if l.holds > 0 {
			l.holds--
		}
		return
	case kindWrite:
	default:
		panic(ErrInvalidStamp)
	}
	l.holds = 0
	l.owner.Store(0)
	l.seq.Add(1)
	l.mu.Unlock()
}

func (l *StampedLock) ReadLock() Stamp {
	id := goid.Get()
	if l.owner.Load() == id {
		return makeStamp(l.seq.Load(), kindNested)
	}

	l.readersMu.Lock()
	if n := l.readers[id]; n > 0 {
		l.readers[id] = n + 1
		l.readersMu.Unlock()
		return makeStamp(l.seq.Load(), kindNested)
	}
	l.readersMu.Unlock()

	l.mu.RLock()
	l.readersMu.Lock()
	if l.readers == nil {
		l.readers = make(map[int64]int)
	}
	l.readers[id] = 1
	l.readersMu.Unlock()
	return makeStamp(l.seq.Load(), kindRead)
}

func (l *StampedLock) UnlockRead(stamp Stamp) {
	id := goid.Get()
	switch stamp.kind() {
	case kindNested:
		if l.owner.Load() == id {
			return
		}
		l.releaseRead(id)
	case kindRead:
		l.releaseRead(id)
		l.mu.RUnlock()
	default:
		panic(ErrInvalidStamp)
	}
}

func (l *StampedLock) TryOptimisticRead() Stamp {
	seq := l.seq.Load()
	if seq&1 == 1 {
		return 0
	}
	return makeStamp(seq, kindOptimistic)
}

func (l *StampedLock) Validate(stamp Stamp) bool {
	switch stamp.kind() {
	case kindOptimistic:
		return makeStamp(l.seq.Load(), kindOptimistic) == stamp
	case kindRead, kindWrite, kindNested:
		return true
	default:
		return false
	}
}

func (l *StampedLock) IsWriteLocked() bool {
	return l.seq.Load()&1 == 1
}

func (l *StampedLock) IsWriteLockedByCurrentGoroutine() bool {
	return l.owner.Load() == goid.Get()
}

func (l *StampedLock) ChangeOwner(goroutineID int64) error {
	if goroutineID <= 0 {
		return ErrInvalidOwner
	}
	if !l.owner.CompareAndSwap(goid.Get(), goroutineID) {
		return ErrNotOwner
	}
	return nil
}

func (l *StampedLock) readHolds(id int64) int {
	l.readersMu.Lock()
	defer l.readersMu.Unlock()
	return l.readers[id]
}

func (l *StampedLock) releaseRead(id int64) {
	l.readersMu.Lock()
	defer l.readersMu.Unlock()
	switch n := l.readers[id]; {
	case n > 1:
		l.readers[id] = n - 1
	case n == 1:
		delete(l.readers, id)
	}
}
