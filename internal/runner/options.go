package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/crankset/internal/config"
)

// Executor runs one iteration for one user. Each user gets its own Executor,
// so implementations need not be safe for concurrent use.
type Executor interface {
	Do(ctx context.Context) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context) error

func (f ExecutorFunc) Do(ctx context.Context) error { return f(ctx) }

// Looper is an Executor that can drive its own iteration loop. When a run is
// neither paced nor capped, the runner hands each user's loop to Run and
// takes the iteration and failure counts it returns.
type Looper interface {
	Executor
	Run(ctx context.Context) (iterations, failures int64)
}

type (
	ArrivalModel    = config.ArrivalModel
	RatePattern     = config.RatePattern
	RatePatternType = config.RatePatternType
	RateStep        = config.RateStep
)

const (
	ArrivalModelUniform = config.ArrivalModelUniform
	ArrivalModelPoisson = config.ArrivalModelPoisson

	RatePatternTypeRamp  = config.RatePatternTypeRamp
	RatePatternTypeStep  = config.RatePatternTypeStep
	RatePatternTypeSpike = config.RatePatternTypeSpike
)

// Options configure the Runner.
type Options struct {
	Users          int                              // fixed number of user goroutines
	Iterations     int                              // total iterations across users (0 means unlimited)
	Duration       time.Duration                    // overall time limit (0 means no duration cap)
	Rate           int                              // iterations per second across users (0 means unpaced)
	ArrivalModel   ArrivalModel                     // uniform or poisson pacing
	RatePatterns   []RatePattern                    // iteration rate over time; the run ends with the schedule
	NewExecutor    func(user int) (Executor, error) // builds the executor for user i (required)
	LimiterFactory func(perSec int) *rate.Limiter   // builds the limiter for a fixed uniform rate
	RandomSeed     int64                            // seeds poisson gaps; 0 uses the clock
}

func (o *Options) normalize() {
	if o.Users <= 0 {
		o.Users = 1
	}
	if o.Iterations < 0 {
		o.Iterations = 0
	}
	if o.Rate < 0 {
		o.Rate = 0
	}
	if o.ArrivalModel == "" {
		o.ArrivalModel = ArrivalModelUniform
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(perSec int) *rate.Limiter {
			if perSec <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst of one keeps iterations evenly spaced from the first.
			return rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}
