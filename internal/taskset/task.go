package taskset

import (
	"context"
	"math"
	"strings"
)

// Task is a unit of schedulable work with a relative execution weight.
type Task interface {
	Name() string
	Weight() int
	Execute(ctx context.Context) error
}

// Func is the body of a task.
type Func func(ctx context.Context) error

// Noop does nothing. It is the body of the reference declaration.
func Noop(context.Context) error { return nil }

type funcTask struct {
	name   string
	weight int
	fn     Func
}

// NewTask returns a Task with a fixed name, weight and body. Validation
// happens when the task is placed in a set or selector.
func NewTask(name string, weight int, fn Func) Task {
	return &funcTask{name: strings.TrimSpace(name), weight: weight, fn: fn}
}

func (t *funcTask) Name() string { return t.name }

func (t *funcTask) Weight() int { return t.weight }

func (t *funcTask) Execute(ctx context.Context) error {
	if t.fn == nil {
		return nil
	}
	return t.fn(ctx)
}

// validateTasks checks the shared declaration rules for any selector input.
func validateTasks(owner string, tasks []Task) error {
	if len(tasks) == 0 {
		return configErrorf(owner, "task set must contain at least one task")
	}
	seen := make(map[string]struct{}, len(tasks))
	total := 0
	for idx, task := range tasks {
		if task == nil {
			return configErrorf(owner, "task at index %d is nil", idx)
		}
		name := task.Name()
		if strings.TrimSpace(name) == "" {
			return configErrorf(owner, "task at index %d has no name", idx)
		}
		if task.Weight() <= 0 {
			return configErrorf(name, "weight must be >= 1, got %d", task.Weight())
		}
		if total > math.MaxInt-task.Weight() {
			return configErrorf(owner, "total weight overflows at task %s", name)
		}
		total += task.Weight()
		if _, dup := seen[name]; dup {
			return configErrorf(name, "duplicate task name in %s", describeOwner(owner))
		}
		seen[name] = struct{}{}
	}
	return nil
}

func describeOwner(owner string) string {
	if owner == "" {
		return "task set"
	}
	return "task set " + owner
}
