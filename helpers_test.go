package observable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// requirePanicIs runs fn and requires a panic whose value is an error matching
// target.
func requirePanicIs(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.ErrorIs(t, err, target)
	}()
	fn()
}

// recorder collects list changes as flat step slices, one per change.
type recorder[E any] struct {
	changes [][]Step[E]
}

func (r *recorder[E]) listen(change *ListChange[E]) {
	var steps []Step[E]
	for change.Next() {
		steps = append(steps, change.Step())
	}
	r.changes = append(r.changes, steps)
}

func recordList[E any](l *List[E]) *recorder[E] {
	rec := &recorder[E]{}
	l.AddChangeListener(rec.listen)
	return rec
}
