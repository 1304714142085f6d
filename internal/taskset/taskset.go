package taskset

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Mode controls how a task set picks its next task.
type Mode string

const (
	ModeRandom     Mode = "random"
	ModeSequential Mode = "sequential"
)

// ParseMode converts a declaration string into a Mode. Empty means random.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeRandom:
		return ModeRandom, nil
	case ModeSequential:
		return ModeSequential, nil
	default:
		return "", fmt.Errorf("unknown task set mode %q (use random or sequential)", value)
	}
}

// Definition describes a task set before validation.
type Definition struct {
	Name              string
	Weight            int
	Mode              Mode
	DistributeWeights bool // sequential mode only
	Tasks             []Task
}

// TaskSet is an ordered, immutable collection of tasks. It implements Task so
// sets can be nested.
type TaskSet struct {
	name       string
	weight     int
	mode       Mode
	distribute bool
	tasks      []Task

	// shared is only used by Execute; actors use their own selectors.
	sharedOnce sync.Once
	sharedMu   sync.Mutex
	shared     Selector
}

var _ Task = (*TaskSet)(nil)

// New validates and returns a task set.
func New(name string, weight int, mode Mode, tasks ...Task) (*TaskSet, error) {
	return Define(Definition{Name: name, Weight: weight, Mode: mode, Tasks: tasks})
}

// Define validates def and returns the resulting task set.
func Define(def Definition) (*TaskSet, error) {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return nil, configErrorf("", "task set has no name")
	}
	if def.Weight <= 0 {
		return nil, configErrorf(name, "weight must be >= 1, got %d", def.Weight)
	}
	mode := def.Mode
	if mode == "" {
		mode = ModeRandom
	}
	if mode != ModeRandom && mode != ModeSequential {
		return nil, configErrorf(name, "unknown mode %q", mode)
	}
	if err := validateTasks(name, def.Tasks); err != nil {
		return nil, err
	}
	return &TaskSet{
		name:       name,
		weight:     def.Weight,
		mode:       mode,
		distribute: def.DistributeWeights,
		tasks:      append([]Task(nil), def.Tasks...),
	}, nil
}

func (s *TaskSet) Name() string { return s.name }

func (s *TaskSet) Weight() int { return s.weight }

func (s *TaskSet) Mode() Mode { return s.mode }

// DistributesWeights reports whether sequential cycles repeat tasks by weight.
func (s *TaskSet) DistributesWeights() bool { return s.distribute }

// Tasks returns a copy of the tasks in declaration order.
func (s *TaskSet) Tasks() []Task {
	return append([]Task(nil), s.tasks...)
}

// Weights maps each direct child's name to its weight.
func (s *TaskSet) Weights() map[string]int {
	out := make(map[string]int, len(s.tasks))
	for _, task := range s.tasks {
		out[task.Name()] = task.Weight()
	}
	return out
}

// NewSelector returns a selector for this set drawing from rnd. Each caller
// gets an independent selector.
func (s *TaskSet) NewSelector(rnd *rand.Rand) Selector {
	var (
		sel Selector
		err error
	)
	switch s.mode {
	case ModeSequential:
		sel, err = NewSequential(s.tasks, s.distribute)
	default:
		sel, err = NewWeighted(s.tasks, WithRand(rnd))
	}
	if err != nil {
		// tasks were validated in Define
		panic(fmt.Sprintf("taskset %s: %v", s.name, err))
	}
	return sel
}

// Execute picks one task from the set and executes it. The draw goes through a
// selector shared by every caller of Execute and serialized by a mutex.
func (s *TaskSet) Execute(ctx context.Context) error {
	s.sharedOnce.Do(func() {
		s.shared = s.NewSelector(rand.New(rand.NewSource(time.Now().UnixNano())))
	})
	s.sharedMu.Lock()
	task := s.shared.Select()
	s.sharedMu.Unlock()
	return task.Execute(ctx)
}
