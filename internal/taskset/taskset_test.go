package taskset_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/torosent/crankset/internal/taskset"
)

func TestSequentialCyclesInOrder(t *testing.T) {
	tasks := namedTasks(map[string]int{"a": 3, "b": 1, "c": 2}, "a", "b", "c")
	sel, err := taskset.NewSequential(tasks, false)
	if err != nil {
		t.Fatalf("NewSequential() error = %v", err)
	}
	want := []string{"a", "b", "c", "a", "b", "c", "a"}
	for i, name := range want {
		if got := sel.Select().Name(); got != name {
			t.Fatalf("draw %d = %s, want %s", i, got, name)
		}
	}
}

func TestSequentialDistributesWeights(t *testing.T) {
	tasks := namedTasks(map[string]int{"a": 2, "b": 1, "c": 3}, "a", "b", "c")
	sel, err := taskset.NewSequential(tasks, true)
	if err != nil {
		t.Fatalf("NewSequential() error = %v", err)
	}
	want := []string{"a", "a", "b", "c", "c", "c", "a", "a", "b"}
	for i, name := range want {
		if got := sel.Select().Name(); got != name {
			t.Fatalf("draw %d = %s, want %s", i, got, name)
		}
	}
}

func TestSequentialHugeDistributedWeight(t *testing.T) {
	tasks := namedTasks(map[string]int{"bulk": 1_000_000_000, "tail": 1}, "bulk", "tail")
	sel, err := taskset.NewSequential(tasks, true)
	if err != nil {
		t.Fatalf("NewSequential() error = %v", err)
	}
	for i := 0; i < 1000; i++ {
		if got := sel.Select().Name(); got != "bulk" {
			t.Fatalf("draw %d = %s, want bulk", i, got)
		}
	}
}

func TestDefineValidation(t *testing.T) {
	noop := taskset.NewTask("hello", 20, taskset.Noop)
	tests := []struct {
		name string
		def  taskset.Definition
	}{
		{"blank name", taskset.Definition{Weight: 1, Tasks: []taskset.Task{noop}}},
		{"zero weight", taskset.Definition{Name: "set", Tasks: []taskset.Task{noop}}},
		{"no tasks", taskset.Definition{Name: "set", Weight: 1}},
		{"bad mode", taskset.Definition{Name: "set", Weight: 1, Mode: "chaotic", Tasks: []taskset.Task{noop}}},
		{"total weight overflows", taskset.Definition{Name: "set", Weight: 1, Tasks: []taskset.Task{
			noop,
			taskset.NewTask("huge", math.MaxInt, taskset.Noop),
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := taskset.Define(tt.def)
			var cfgErr *taskset.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Define() error = %v, want ConfigurationError", err)
			}
		})
	}
}

func TestTaskSetIsImmutable(t *testing.T) {
	tasks := namedTasks(map[string]int{"a": 1, "b": 2}, "a", "b")
	set, err := taskset.New("set", 1, taskset.ModeRandom, tasks...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tasks[0] = taskset.NewTask("x", 99, taskset.Noop)
	got := set.Tasks()
	got[1] = nil
	if names := set.Tasks(); names[0].Name() != "a" || names[1] == nil {
		t.Fatalf("task set was mutated through a caller slice")
	}
	if w := set.Weights(); w["a"] != 1 || w["b"] != 2 || len(w) != 2 {
		t.Fatalf("Weights() = %v", w)
	}
}

func TestNewSelectorFollowsMode(t *testing.T) {
	tasks := namedTasks(map[string]int{"a": 1, "b": 1}, "a", "b")
	random, _ := taskset.New("r", 1, taskset.ModeRandom, tasks...)
	if _, ok := random.NewSelector(rand.New(rand.NewSource(1))).(*taskset.WeightedSelector); !ok {
		t.Fatalf("random mode did not build a WeightedSelector")
	}
	seq, _ := taskset.Define(taskset.Definition{Name: "s", Weight: 1, Mode: taskset.ModeSequential, Tasks: tasks})
	if _, ok := seq.NewSelector(rand.New(rand.NewSource(1))).(*taskset.SequentialSelector); !ok {
		t.Fatalf("sequential mode did not build a SequentialSelector")
	}
}

func TestNestedTaskSetExecuteIsConcurrencySafe(t *testing.T) {
	var inner, outer int64
	child, err := taskset.New("child", 3, taskset.ModeRandom,
		taskset.NewTask("inner", 1, func(context.Context) error {
			atomic.AddInt64(&inner, 1)
			return nil
		}),
	)
	if err != nil {
		t.Fatalf("New(child) error = %v", err)
	}
	parent, err := taskset.New("parent", 1, taskset.ModeRandom,
		child,
		taskset.NewTask("outer", 1, func(context.Context) error {
			atomic.AddInt64(&outer, 1)
			return nil
		}),
	)
	if err != nil {
		t.Fatalf("New(parent) error = %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if err := parent.Execute(context.Background()); err != nil {
					t.Errorf("Execute() error = %v", err)
				}
			}
		}()
	}
	wg.Wait()
	if inner+outer != 800 {
		t.Fatalf("executed %d leaf tasks, want 800", inner+outer)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := taskset.ParseMode(""); err != nil || m != taskset.ModeRandom {
		t.Fatalf("ParseMode(\"\") = %q, %v", m, err)
	}
	if m, err := taskset.ParseMode("Sequential"); err != nil || m != taskset.ModeSequential {
		t.Fatalf("ParseMode(Sequential) = %q, %v", m, err)
	}
	if _, err := taskset.ParseMode("nope"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
