// Package user implements simulated users that repeatedly draw and run tasks
// from their task set.
package user

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/torosent/crankset/internal/metrics"
	"github.com/torosent/crankset/internal/taskset"
	"github.com/torosent/crankset/internal/tracing"
)

// Recorder receives one record per task execution.
type Recorder interface {
	RecordTask(rec metrics.Record)
}

// Options configure an Actor. Zero values are usable.
type Options struct {
	ID       string     // defaults to a fresh ULID
	Seed     int64      // 0 seeds from the clock; ignored when Rand is set
	Rand     *rand.Rand // private source; must not be shared with other actors
	Wait     WaitFunc
	Recorder Recorder
	Tracer   trace.Tracer
	Logger   *zap.Logger
}

// Actor is one simulated user. It owns its selectors and random source, so
// an Actor must only be driven from one goroutine.
type Actor struct {
	id       string
	set      *taskset.TaskSet
	rnd      *rand.Rand
	selector taskset.Selector
	children map[*taskset.TaskSet]taskset.Selector
	wait     WaitFunc
	recorder Recorder
	tracer   trace.Tracer
	logger   *zap.Logger
}

// New creates an actor bound to set.
func New(set *taskset.TaskSet, opts Options) *Actor {
	rnd := opts.Rand
	if rnd == nil {
		seed := opts.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rnd = rand.New(rand.NewSource(seed))
	}
	id := opts.ID
	if id == "" {
		id = ulid.Make().String()
	}
	wait := opts.Wait
	if wait == nil {
		wait = None()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Actor{
		id:       id,
		set:      set,
		rnd:      rnd,
		selector: set.NewSelector(rnd),
		children: make(map[*taskset.TaskSet]taskset.Selector),
		wait:     wait,
		recorder: opts.Recorder,
		tracer:   tracer,
		logger:   logger.With(zap.String("user", id)),
	}
}

func (a *Actor) ID() string { return a.id }

// Do runs one iteration: draw a task, execute it, then wait. A failed or
// panicking task is returned as a *TaskError. A task that returns the
// context's error after ctx is done is recorded as interrupted and its error
// is returned unwrapped.
func (a *Actor) Do(ctx context.Context) error {
	selected := a.selector.Select()
	leaf, path := a.resolve(selected)

	spanCtx, span := tracing.StartTaskSpan(ctx, a.tracer, a.id, a.set.Name(), path, leaf.Weight())
	start := time.Now()
	err := execute(spanCtx, leaf)
	latency := time.Since(start)
	tracing.EndSpan(span, err)

	rec := metrics.Record{
		Selected: selected.Name(),
		Task:     path,
		Latency:  latency,
		Err:      err,
	}
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		rec.Interrupted = true
		a.record(rec)
		return err
	}
	a.record(rec)

	if err != nil {
		a.logger.Debug("task failed",
			zap.String("task", path),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
		err = &TaskError{User: a.id, Task: path, Err: err}
	}

	sleep(ctx, a.wait(a.rnd))
	return err
}

// Run calls Do until ctx is done and reports how many iterations started and
// how many of them failed. Task failures do not stop the loop.
func (a *Actor) Run(ctx context.Context) (iterations, failures int64) {
	a.logger.Debug("user started", zap.String("task_set", a.set.Name()))
	for ctx.Err() == nil {
		err := a.Do(ctx)
		iterations++
		var taskErr *TaskError
		if errors.As(err, &taskErr) {
			failures++
		}
	}
	a.logger.Debug("user stopped", zap.Int64("iterations", iterations), zap.Int64("failures", failures))
	return iterations, failures
}

func (a *Actor) record(rec metrics.Record) {
	if a.recorder != nil {
		a.recorder.RecordTask(rec)
	}
}

// resolve descends through nested task sets with this actor's selectors
// until it reaches a leaf task. path joins the names on the way with "/".
func (a *Actor) resolve(task taskset.Task) (leaf taskset.Task, path string) {
	path = task.Name()
	for {
		nested, ok := task.(*taskset.TaskSet)
		if !ok {
			return task, path
		}
		sel, ok := a.children[nested]
		if !ok {
			sel = nested.NewSelector(a.rnd)
			a.children[nested] = sel
		}
		task = sel.Select()
		path += "/" + task.Name()
	}
}

func execute(ctx context.Context, task taskset.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return task.Execute(ctx)
}
