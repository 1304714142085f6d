package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Result captures execution summary.
type Result struct {
	Total    int64 // iterations started, including ones cut short by the end of the run
	Errors   int64 // iterations that failed; interrupted ones are not errors
	Planned  int64 // iterations the rate schedule planned, 0 without one
	Duration time.Duration
}

// Runner drives a fixed pool of users.
type Runner struct {
	opt   Options
	sched *schedule
	clock clock
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, sched: compileSchedule(opt.RatePatterns), clock: wallClock()}
}

// Run builds one executor per user and runs them until the iteration cap,
// the duration or the rate schedule is exhausted, or ctx is done.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.opt.NewExecutor == nil {
		return Result{}, errors.New("runner: NewExecutor is required")
	}
	executors := make([]Executor, r.opt.Users)
	for i := range executors {
		exec, err := r.opt.NewExecutor(i)
		if err != nil {
			return Result{}, fmt.Errorf("user %d: %w", i, err)
		}
		executors[i] = exec
	}

	start := time.Now()
	if r.opt.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opt.Duration)
		defer cancel()
	}

	var t tally
	if pace := newPacer(r.opt, r.sched, r.clock); pace != nil || r.opt.Iterations > 0 {
		r.runPaced(ctx, executors, pace, &t)
	} else {
		runFree(ctx, executors, &t)
	}

	res := Result{
		Total:    atomic.LoadInt64(&t.total),
		Errors:   atomic.LoadInt64(&t.errors),
		Duration: time.Since(start),
	}
	if r.sched != nil {
		res.Planned = r.sched.iterations()
	}
	return res, nil
}

type tally struct {
	total  int64
	errors int64
}

func (t *tally) add(total, errs int64) {
	atomic.AddInt64(&t.total, total)
	atomic.AddInt64(&t.errors, errs)
}

// runPaced hands out one permit per iteration from a single scheduler, so
// the pace and the iteration cap hold across all users. In-flight iterations
// finish when the scheduler stops issuing.
func (r *Runner) runPaced(ctx context.Context, executors []Executor, pace pacer, t *tally) {
	permits := make(chan struct{})

	go func() {
		defer close(permits)
		for issued := 0; r.opt.Iterations == 0 || issued < r.opt.Iterations; issued++ {
			if ctx.Err() != nil {
				return
			}
			if pace != nil {
				if err := pace.wait(ctx); err != nil {
					return
				}
			}
			select {
			case permits <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(len(executors))
	for _, exec := range executors {
		go func(exec Executor) {
			defer wg.Done()
			for range permits {
				if ctx.Err() != nil {
					continue
				}
				err := exec.Do(ctx)
				t.add(1, failed(ctx, err))
			}
		}(exec)
	}
	wg.Wait()
}

// runFree lets every user loop on its own until ctx is done.
func runFree(ctx context.Context, executors []Executor, t *tally) {
	var wg sync.WaitGroup
	wg.Add(len(executors))
	for _, exec := range executors {
		go func(exec Executor) {
			defer wg.Done()
			if looper, ok := exec.(Looper); ok {
				t.add(looper.Run(ctx))
				return
			}
			for ctx.Err() == nil {
				err := exec.Do(ctx)
				t.add(1, failed(ctx, err))
			}
		}(exec)
	}
	wg.Wait()
}

// failed counts err unless it only reports that ctx ended.
func failed(ctx context.Context, err error) int64 {
	if err == nil {
		return 0
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return 0
	}
	return 1
}
