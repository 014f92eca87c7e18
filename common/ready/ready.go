// Package ready implements a bounded "wait until ready, then hand off"
// primitive: a probe is polled on a fixed interval, and re-run early whenever
// the optional watch channel fires, until it reports readiness or the attempt
// ceiling is reached.
package ready

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotReady is returned when the probe never reported readiness within the
// configured number of attempts.
var ErrNotReady = errors.New("not ready")

// Probe checks readiness once. It returns the handed-off value and true when
// ready. A non-nil error aborts the wait immediately.
type Probe[T any] func(ctx context.Context) (T, bool, error)

// Config bounds the wait.
type Config struct {
	// Interval between polls. Defaults to 500ms.
	Interval time.Duration
	// MaxAttempts caps the number of probe calls. Defaults to 20.
	MaxAttempts int
	// Watch, when non-nil, triggers an immediate re-probe on every receive
	// (e.g. "the page changed"). A closed channel is ignored from then on.
	Watch <-chan struct{}
}

const (
	defaultInterval    = 500 * time.Millisecond
	defaultMaxAttempts = 20
)

// Wait runs probe until it reports ready, returns an error, the attempt
// ceiling is reached, or ctx is done.
func Wait[T any](ctx context.Context, cfg Config, probe Probe[T]) (T, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	var zero T
	watch := cfg.Watch
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		v, ok, err := probe(ctx)
		if err != nil {
			return zero, err
		}
		if ok {
			return v, nil
		}
		if attempt >= cfg.MaxAttempts {
			return zero, fmt.Errorf("%w after %d attempts", ErrNotReady, attempt)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
		case _, open := <-watch:
			if !open {
				watch = nil
			}
		}
	}
}
