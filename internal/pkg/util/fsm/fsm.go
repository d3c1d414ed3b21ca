// Package fsm carries small helpers around github.com/looplab/fsm.
package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning callback into an fsm.Callback so
// transition failures surface through Event.Err.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// IsNoTransition reports whether err only signals a canceled or self
// transition rather than a real failure.
func IsNoTransition(err error) bool {
	var noTransition fsm.NoTransitionError
	var canceled fsm.CanceledError
	return errors.As(err, &noTransition) || errors.As(err, &canceled)
}
