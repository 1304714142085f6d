package taskset

import "sort"

// SequentialSelector returns tasks in declaration order and wraps around.
// When weights are distributed, each task occupies weight consecutive slots
// in the cycle.
type SequentialSelector struct {
	tasks  []Task
	bounds []int // bounds[i] is the exclusive end of tasks[i]'s slots
	length int
	slot   int
}

// NewSequential builds a cyclic selector over tasks. Slots are located by
// search, so a large weight costs no memory.
func NewSequential(tasks []Task, distributeWeights bool) (*SequentialSelector, error) {
	if err := validateTasks("", tasks); err != nil {
		return nil, err
	}

	owned := append([]Task(nil), tasks...)
	bounds := make([]int, len(owned))
	length := 0
	for i, task := range owned {
		if distributeWeights {
			length += task.Weight()
		} else {
			length++
		}
		bounds[i] = length
	}
	return &SequentialSelector{tasks: owned, bounds: bounds, length: length}, nil
}

// Select returns the task owning the current slot and advances the cursor.
func (s *SequentialSelector) Select() Task {
	slot := s.slot
	idx := sort.Search(len(s.bounds), func(i int) bool { return s.bounds[i] > slot })
	s.slot++
	if s.slot == s.length {
		s.slot = 0
	}
	return s.tasks[idx]
}
