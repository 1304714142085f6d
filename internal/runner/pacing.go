package runner

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// errScheduleDone stops the scheduler once a rate schedule has no
// iterations left.
var errScheduleDone = errors.New("rate schedule exhausted")

// idleStep is how far a poisson pacer looks ahead while the scheduled rate
// is zero.
const idleStep = 10 * time.Millisecond

// pacer blocks until the next iteration may start. Only the scheduler
// goroutine calls it.
type pacer interface {
	wait(ctx context.Context) error
}

type clock struct {
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func wallClock() clock {
	return clock{now: time.Now, sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
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

// newPacer picks the pacing for opt. It returns nil when iterations are not
// paced at all.
func newPacer(opt Options, sched *schedule, clk clock) pacer {
	switch {
	case opt.ArrivalModel == ArrivalModelPoisson && (sched != nil || opt.Rate > 0):
		return &poissonPacer{
			rnd:   rand.New(rand.NewSource(opt.RandomSeed)),
			rate:  float64(opt.Rate),
			sched: sched,
			clock: clk,
		}
	case sched != nil:
		return &schedulePacer{sched: sched, clock: clk}
	case opt.Rate > 0:
		return &limiterPacer{limiter: opt.LimiterFactory(opt.Rate)}
	default:
		return nil
	}
}

// limiterPacer spaces iterations evenly at a fixed rate.
type limiterPacer struct {
	limiter *rate.Limiter
}

func (p *limiterPacer) wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// schedulePacer starts iteration k at the offset the schedule plans for it.
type schedulePacer struct {
	sched *schedule
	clock clock
	start time.Time
	next  int64
}

func (p *schedulePacer) wait(ctx context.Context) error {
	if p.start.IsZero() {
		p.start = p.clock.now()
	}
	at, ok := p.sched.due(p.next)
	if !ok {
		return errScheduleDone
	}
	p.next++
	return p.clock.sleep(ctx, at-p.clock.now().Sub(p.start))
}

// poissonPacer draws exponential gaps from a seeded source, so the same seed
// replays the same arrival offsets. Offsets accumulate from the run start, so
// a late wake-up is caught up rather than lowering the rate.
type poissonPacer struct {
	rnd   *rand.Rand
	rate  float64 // used when sched is nil
	sched *schedule
	clock clock
	start time.Time
	at    time.Duration
}

func (p *poissonPacer) wait(ctx context.Context) error {
	if p.start.IsZero() {
		p.start = p.clock.now()
	}
	at, err := p.advance()
	if err != nil {
		return err
	}
	return p.clock.sleep(ctx, at-p.clock.now().Sub(p.start))
}

// advance draws the offset of the next arrival.
func (p *poissonPacer) advance() (time.Duration, error) {
	for {
		perSec := p.rate
		if p.sched != nil {
			current, ok := p.sched.rateAt(p.at)
			if !ok {
				return 0, errScheduleDone
			}
			perSec = current
		}
		if perSec <= 0 {
			p.at += idleStep
			continue
		}
		p.at += time.Duration(p.rnd.ExpFloat64() / perSec * float64(time.Second))
		if p.sched != nil && p.at >= p.sched.length {
			return 0, errScheduleDone
		}
		return p.at, nil
	}
}
