package taskset

import (
	"math/rand"
	"sort"
	"time"
)

// Selector picks the next task a simulated user should execute.
type Selector interface {
	Select() Task
}

// Option configures a WeightedSelector.
type Option func(*selectorOptions)

type selectorOptions struct {
	rnd *rand.Rand
}

// WithSeed seeds the selector's private random source.
func WithSeed(seed int64) Option {
	return func(o *selectorOptions) {
		o.rnd = rand.New(rand.NewSource(seed))
	}
}

// WithRand makes the selector draw from rnd. The caller must not share rnd
// with another goroutine.
func WithRand(rnd *rand.Rand) Option {
	return func(o *selectorOptions) {
		if rnd != nil {
			o.rnd = rnd
		}
	}
}

// WeightedSelector draws tasks at random with probability proportional to
// their weight. Every draw is independent of the previous ones.
type WeightedSelector struct {
	tasks      []Task
	cumulative []int // cumulative[i] is the exclusive upper bound of tasks[i]'s partition
	total      int
	rnd        *rand.Rand
}

// NewWeighted builds a selector over tasks. It fails with a *ConfigurationError
// when tasks is empty, any weight is below 1 or the weights do not sum to an
// int.
func NewWeighted(tasks []Task, opts ...Option) (*WeightedSelector, error) {
	if err := validateTasks("", tasks); err != nil {
		return nil, err
	}

	o := selectorOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rnd == nil {
		o.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	owned := append([]Task(nil), tasks...)
	cumulative := make([]int, len(owned))
	total := 0
	for i, task := range owned {
		total += task.Weight()
		cumulative[i] = total
	}

	return &WeightedSelector{
		tasks:      owned,
		cumulative: cumulative,
		total:      total,
		rnd:        o.rnd,
	}, nil
}

// Select returns one task, chosen by a uniform draw over [0, total weight).
func (s *WeightedSelector) Select() Task {
	if len(s.tasks) == 1 {
		return s.tasks[0]
	}
	return s.taskAt(s.rnd.Intn(s.total))
}

// taskAt returns the task whose partition contains roll.
func (s *WeightedSelector) taskAt(roll int) Task {
	idx := sort.Search(len(s.cumulative), func(i int) bool {
		return s.cumulative[i] > roll
	})
	if idx >= len(s.tasks) {
		return s.tasks[len(s.tasks)-1]
	}
	return s.tasks[idx]
}

// TotalWeight returns the sum of all task weights.
func (s *WeightedSelector) TotalWeight() int { return s.total }
