// Package registry assembles task sets from an explicit registration list
// instead of discovering annotated methods at runtime.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/torosent/crankset/internal/taskset"
)

// ErrFrozen is returned when registering after the registry was built.
var ErrFrozen = errors.New("registry is frozen")

// Registry is an ordered mapping from task identifier to body and weight.
// It is filled once at startup and frozen by Build.
type Registry struct {
	mu     sync.Mutex
	tasks  []taskset.Task
	index  map[string]int
	frozen bool
}

// BuildOptions names the task set produced by Build.
type BuildOptions struct {
	Name              string
	Weight            int
	Mode              taskset.Mode
	DistributeWeights bool
}

func New() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds a task body under id.
func (r *Registry) Register(id string, weight int, fn taskset.Func) error {
	id = strings.TrimSpace(id)
	if fn == nil {
		return &taskset.ConfigurationError{Subject: id, Reason: "task body is nil"}
	}
	return r.RegisterTask(taskset.NewTask(id, weight, fn))
}

// MustRegister is Register for static declarations; it panics on error.
func (r *Registry) MustRegister(id string, weight int, fn taskset.Func) {
	if err := r.Register(id, weight, fn); err != nil {
		panic(err)
	}
}

// RegisterTask adds an already built task, typically a nested *taskset.TaskSet.
func (r *Registry) RegisterTask(task taskset.Task) error {
	if task == nil {
		return &taskset.ConfigurationError{Reason: "task is nil"}
	}
	id := task.Name()
	if strings.TrimSpace(id) == "" {
		return &taskset.ConfigurationError{Reason: "task id is required"}
	}
	if task.Weight() <= 0 {
		return &taskset.ConfigurationError{Subject: id, Reason: fmt.Sprintf("weight must be >= 1, got %d", task.Weight())}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("register %s: %w", id, ErrFrozen)
	}
	if _, dup := r.index[id]; dup {
		return &taskset.ConfigurationError{Subject: id, Reason: "task id already registered"}
	}
	r.index[id] = len(r.tasks)
	r.tasks = append(r.tasks, task)
	return nil
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Build freezes the registry and returns the immutable task set.
// A failed build leaves the registry open.
func (r *Registry) Build(opts BuildOptions) (*taskset.TaskSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	weight := opts.Weight
	if weight == 0 {
		weight = 1
	}
	set, err := taskset.Define(taskset.Definition{
		Name:              opts.Name,
		Weight:            weight,
		Mode:              opts.Mode,
		DistributeWeights: opts.DistributeWeights,
		Tasks:             r.tasks,
	})
	if err != nil {
		return nil, err
	}
	r.frozen = true
	return set, nil
}
