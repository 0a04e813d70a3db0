// Package poll implements the single "wait for remote state" primitive
// Design Note §9 calls for: "model each wait as a function of (probe,
// predicate, period, on-tick) so that the HA-mode wait, guest-drain
// wait, task-idle wait, reboot-up wait, and service-active wait share
// a single implementation." It generalizes the teacher's
// internal/util/retry.WithExponentialBackoff — same context-cancellable
// loop shape — to fixed-cadence polling of observed state rather than
// backoff-on-error.
package poll

import (
	"context"
	"fmt"
	"time"
)

// Until repeatedly calls probe at the given period until it returns a
// value for which predicate is true, calling onTick with every
// observed value (including the first, even if it already satisfies
// predicate — spec §8.6 "drain idempotence": if the state is already
// satisfied, Until returns immediately with no sleep). It stops and
// returns an error if ctx is cancelled, and immediately propagates any
// error from probe itself — a transient probe error is the caller's
// concern (spec §7 treats unrecognised/missing fields as "not yet the
// target state", which belongs in predicate, not probe).
func Until[T any](ctx context.Context, probe func(context.Context) (T, error), predicate func(T) bool, period time.Duration, onTick func(T)) error {
	for {
		val, err := probe(ctx)
		if err != nil {
			return fmt.Errorf("poll probe failed: %w", err)
		}

		if onTick != nil {
			onTick(val)
		}

		if predicate(val) {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("poll cancelled: %w", ctx.Err())
		case <-time.After(period):
		}
	}
}
