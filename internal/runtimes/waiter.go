package runtimes

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrWaitTimeout reports that no matching registration arrived in time.
// It is distinct from a process-exit error so callers can tell "never
// registered" apart from "crashed first".
var ErrWaitTimeout = errors.New("timed out waiting for runtime registration")

// WaitForRegistration resolves once the runtime named by targetID is
// registered. An empty targetID matches the first runtime to register.
// proc carries the launched process's lifecycle: a non-nil value means
// it exited abnormally, a nil value a normal exit. Either way a
// finished process can never register, so the wait fails. The registry
// subscription is always torn down before returning.
func WaitForRegistration(ctx context.Context, registry *Registry, targetID string, proc <-chan error, timeout time.Duration) error {
	matches := func(id string) bool { return targetID == "" || id == targetID }
	added := make(chan struct{}, 1)
	cancel := registry.Subscribe(func(event Event) {
		if event.Kind == EventAdded && matches(event.Runtime.ID) {
			select {
			case added <- struct{}{}:
			default:
			}
		}
	})
	defer cancel()

	// Registration may have raced ahead of this call; check only after
	// subscribing so no add event can slip between the two.
	if targetID == "" {
		if len(registry.List()) > 0 {
			return nil
		}
	} else if _, ok := registry.GetByID(targetID); ok {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-added:
		return nil
	case err := <-proc:
		if err != nil {
			return err
		}
		return fmt.Errorf("process exited before runtime %q registered", targetID)
	case <-timer.C:
		return fmt.Errorf("%w: %q after %s", ErrWaitTimeout, targetID, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
