// Package clockctx threads an injectable time source through a
// context.Context, the way the pack's other domains isolate "now" behind
// a Clock interface for deterministic tests. Callers needing the current
// time pull it from the context rather than calling time.Now() directly,
// so a test can pin the clock without a wall-clock sleep.
package clockctx

import (
	"context"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// RealClock is the default Clock, backed by time.Now.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock is a Clock that always reports the same instant, for tests
// that need a deterministic timestamp.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

type contextKey string

const clockKey contextKey = "compliance_clock"

// WithClock attaches clock to ctx, overriding the default RealClock for
// any code downstream that reads From(ctx).
func WithClock(ctx context.Context, clock Clock) context.Context {
	return context.WithValue(ctx, clockKey, clock)
}

// From returns the Clock attached to ctx, or RealClock{} if none was
// attached.
func From(ctx context.Context) Clock {
	if clock, ok := ctx.Value(clockKey).(Clock); ok && clock != nil {
		return clock
	}
	return RealClock{}
}

// Now is shorthand for From(ctx).Now().
func Now(ctx context.Context) time.Time {
	return From(ctx).Now()
}
