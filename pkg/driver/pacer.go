package driver

import (
	"context"
	"time"
)

// Pacer suspends the driver between steps.
// It is the only designed suspension point of a run and must return ctx.Err()
// promptly when the run is cancelled.
type Pacer interface {
	Pause(ctx context.Context, d time.Duration) error
}

// PacerFunc adapts a function to the Pacer interface.
type PacerFunc func(ctx context.Context, d time.Duration) error

// Pause calls f.
func (f PacerFunc) Pause(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerPacer waits on a real timer.
type TimerPacer struct{}

// Pause blocks for d or until ctx is done.
func (TimerPacer) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoopPacer never waits. It still reports cancellation.
type NoopPacer struct{}

// Pause returns immediately.
func (NoopPacer) Pause(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
