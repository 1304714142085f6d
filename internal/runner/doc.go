// Package runner drives a fixed pool of simulated users for crankset.
//
// Each user goroutine owns one [Executor], built up front by
// [Options.NewExecutor]. How iterations are handed out depends on the
// options:
//   - with a rate, a rate schedule or an iteration cap, a single scheduler
//     issues one permit per iteration so pacing and the cap hold across users
//   - otherwise every user loops on its own, through [Looper.Run] when the
//     executor provides it
//
// Pacing:
//   - [ArrivalModelUniform] at a fixed rate spaces iterations with a
//     rate.Limiter
//   - [RatePattern] schedules (ramp, step, spike) start iteration k when the
//     integral of the rate reaches k, and the run ends with the schedule
//   - [ArrivalModelPoisson] draws exponential gaps from [Options.RandomSeed],
//     so a seed replays the arrival offsets
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		Users:      10,
//		Iterations: 1000,
//		Rate:       100,
//		NewExecutor: func(i int) (runner.Executor, error) {
//			return user.New(set, user.Options{Seed: seed + int64(i)}), nil
//		},
//	})
//	result, err := r.Run(ctx)
//
// The runner never changes the number of users while running.
package runner
