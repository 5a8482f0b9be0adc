package observable

import (
	"runtime/debug"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// PanicHandler receives panics recovered from listeners and executor tasks.
type PanicHandler func(err *ListenerPanicError)

var panicHandler atomic.Pointer[PanicHandler]

// SetPanicHandler installs the process-wide handler for recovered listener
// panics and returns the previous one. A nil handler restores the default,
// which logs through the global zerolog logger.
func SetPanicHandler(handler PanicHandler) PanicHandler {
	var previous *PanicHandler
	if handler == nil {
		previous = panicHandler.Swap(nil)
	} else {
		previous = panicHandler.Swap(&handler)
	}
	if previous == nil {
		return nil
	}
	return *previous
}

func reportPanic(err *ListenerPanicError) {
	if handler := panicHandler.Load(); handler != nil && *handler != nil {
		(*handler)(err)
		return
	}
	log.Error().
		Str("kind", err.Kind).
		Str("listener_id", err.ID.String()).
		Interface("panic", err.Value).
		Bytes("stack", err.Stack).
		Msg("observable: listener panicked")
}

// invokeListener runs call, containing any panic so dispatch continues.
func invokeListener(kind string, id ListenerID, call func()) {
	defer func() {
		if r := recover(); r != nil {
			reportPanic(&ListenerPanicError{Kind: kind, ID: id, Value: r, Stack: debug.Stack()})
		}
	}()
	call()
}
