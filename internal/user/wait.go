package user

import (
	"context"
	"math/rand"
	"time"

	"github.com/torosent/crankset/internal/config"
)

// WaitFunc returns how long a user pauses after a task. It draws from the
// user's own random source.
type WaitFunc func(rnd *rand.Rand) time.Duration

// None never waits.
func None() WaitFunc {
	return func(*rand.Rand) time.Duration { return 0 }
}

// Constant always waits d.
func Constant(d time.Duration) WaitFunc {
	return func(*rand.Rand) time.Duration { return d }
}

// Between waits a uniformly drawn duration in [min, max].
func Between(min, max time.Duration) WaitFunc {
	if max < min {
		min, max = max, min
	}
	span := int64(max - min)
	return func(rnd *rand.Rand) time.Duration {
		if span == 0 {
			return min
		}
		return min + time.Duration(rnd.Int63n(span+1))
	}
}

// WaitFromConfig maps the declared wait time onto a WaitFunc.
func WaitFromConfig(w config.WaitTime) WaitFunc {
	switch w.Type {
	case config.WaitTimeConstant:
		return Constant(w.Min)
	case config.WaitTimeBetween:
		return Between(w.Min, w.Max)
	default:
		return None()
	}
}

// sleep blocks for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
