// Package taskset holds the declaration model for simulated users and the
// selectors that decide which task a user runs next.
//
// # Tasks
//
// A [Task] is a named unit of work with a positive integer weight. Weights are
// relative: a task's share of selections is its weight divided by the sum of
// all weights in the same set.
//
//	hello := taskset.NewTask("hello", 20, taskset.Noop)
//
// # Task Sets
//
// A [TaskSet] is an ordered, immutable, non-empty collection of tasks. Sets
// are themselves tasks and can be nested inside other sets.
//
//	set, err := taskset.New("MyTaskSet", 1, taskset.ModeRandom, hello)
//
// # Selectors
//
// [WeightedSelector] draws each task independently with probability
// weight/total. [SequentialSelector] cycles through tasks in declaration order,
// optionally repeating each task weight times per cycle.
//
// Selectors are not safe for concurrent use. Every simulated user builds its
// own with [TaskSet.NewSelector] and a random source it does not share.
//
// # Errors
//
// Invalid declarations (empty sets, non-positive weights, blank or duplicate
// names) fail at construction with a [*ConfigurationError].
package taskset
