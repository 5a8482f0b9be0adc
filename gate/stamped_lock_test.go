package gate

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLockIsReentrantForOwner(t *testing.T) {
	lock := NewStampedLock()

	outer := lock.WriteLock()
	require.True(t, outer.IsWrite())

	inner := lock.WriteLock()
	assert.True(t, inner.IsNested())

	read := lock.ReadLock()
	assert.True(t, read.IsNested())
	lock.UnlockRead(read)

	lock.UnlockWrite(inner)
	assert.True(t, lock.IsWriteLocked(), "nested release must keep the gate held")
	assert.True(t, lock.IsWriteLockedByCurrentGoroutine())

	lock.UnlockWrite(outer)
	assert.False(t, lock.IsWriteLocked())
	assert.False(t, lock.IsWriteLockedByCurrentGoroutine())
}

func TestOptimisticReadInvalidatedByWrite(t *testing.T) {
	lock := NewStampedLock()

	stamp := lock.TryOptimisticRead()
	require.True(t, stamp.IsOptimistic())
	assert.True(t, lock.Validate(stamp))

	w := lock.WriteLock()
	assert.Equal(t, Stamp(0), lock.TryOptimisticRead(), "optimistic reads fail while write locked")
	lock.UnlockWrite(w)

	assert.False(t, lock.Validate(stamp))
	assert.True(t, lock.Validate(lock.TryOptimisticRead()))
}

func TestReadLocksAreShared(t *testing.T) {
	lock := NewStampedLock()
	first := lock.ReadLock()
	require.True(t, first.IsRead())

	acquired := make(chan bool)
	release := make(chan struct{})
	go func() {
		s := lock.ReadLock()
		acquired <- s.IsRead()
		<-release
		lock.UnlockRead(s)
	}()

	select {
	case isRead := <-acquired:
		assert.True(t, isRead)
	case <-time.After(time.Second):
		t.Fatal("second reader blocked")
	}
	close(release)
	lock.UnlockRead(first)
}

func TestRepeatedReadLockIsNested(t *testing.T) {
	lock := NewStampedLock()
	outer := lock.ReadLock()
	inner := lock.ReadLock()
	assert.True(t, inner.IsNested())
	lock.UnlockRead(inner)
	lock.UnlockRead(outer)

	w := lock.WriteLock()
	assert.True(t, w.IsWrite())
	lock.UnlockWrite(w)
}

func TestWriteLockWhileReadingPanics(t *testing.T) {
	lock := NewStampedLock()
	read := lock.ReadLock()
	defer lock.UnlockRead(read)

	assert.PanicsWithValue(t, ErrUpgrade, func() {
		lock.WriteLock()
	})
}

func TestWriterExcludesReaders(t *testing.T) {
	lock := NewStampedLock()
	w := lock.WriteLock()

	var entered atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		s := lock.ReadLock()
		entered.Store(true)
		lock.UnlockRead(s)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, entered.Load())
	lock.UnlockWrite(w)
	<-done
	assert.True(t, entered.Load())
}

func TestUnlockWriteByStrangerPanics(t *testing.T) {
	lock := NewStampedLock()
	w := lock.WriteLock()
	defer lock.UnlockWrite(w)

	recovered := make(chan any, 1)
	go func() {
		defer func() { recovered <- recover() }()
		lock.UnlockWrite(w)
	}()
	assert.Equal(t, ErrNotOwner, <-recovered)
}

func TestChangeOwnerTransfersWriteLock(t *testing.T) {
	lock := NewStampedLock()
	w := lock.WriteLock()

	ids := make(chan int64)
	proceed := make(chan struct{})
	result := make(chan bool, 1)
	go func() {
		ids <- GoroutineID()
		<-proceed
		owned := lock.IsWriteLockedByCurrentGoroutine()
		lock.UnlockWrite(w)
		result <- owned
	}()

	require.NoError(t, lock.ChangeOwner(<-ids))
	assert.False(t, lock.IsWriteLockedByCurrentGoroutine())
	close(proceed)

	assert.True(t, <-result)
	assert.False(t, lock.IsWriteLocked())
}

func TestChangeOwnerRequiresOwnership(t *testing.T) {
	lock := NewStampedLock()
	assert.ErrorIs(t, lock.ChangeOwner(GoroutineID()+1), ErrNotOwner)
	assert.ErrorIs(t, lock.ChangeOwner(0), ErrInvalidOwner)
}

func TestConcurrentWritersSerialize(t *testing.T) {
	lock := NewStampedLock()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s := lock.WriteLock()
				counter++
				lock.UnlockWrite(s)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1600, counter)
}

func BenchmarkOptimisticRead(b *testing.B) {
	lock := NewStampedLock()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s := lock.TryOptimisticRead()
			if !lock.Validate(s) {
				r := lock.ReadLock()
				lock.UnlockRead(r)
			}
		}
	})
}

func BenchmarkWriteLock(b *testing.B) {
	lock := NewStampedLock()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s := lock.WriteLock()
		lock.UnlockWrite(s)
	}
}
