package registry

import (
	"fmt"

	"github.com/torosent/crankset/internal/config"
	"github.com/torosent/crankset/internal/taskset"
)

const (
	dummySetName  = "MyTaskSet"
	dummyTaskName = "hello"
	dummyWeight   = 20
)

// Dummy returns the reference declaration: one no-op task weighted 20.
func Dummy() (*taskset.TaskSet, error) {
	r := New()
	r.MustRegister(dummyTaskName, dummyWeight, taskset.Noop)
	return r.Build(BuildOptions{Name: dummySetName, Mode: taskset.ModeRandom})
}

// FromConfig registers every declared task and builds the task set. With no
// declared tasks it falls back to Dummy.
func FromConfig(cfg *config.Config) (*taskset.TaskSet, error) {
	if len(cfg.Tasks) == 0 {
		return Dummy()
	}

	mode, err := taskset.ParseMode(cfg.TaskSet.Mode)
	if err != nil {
		return nil, err
	}

	r := New()
	for idx, decl := range cfg.Tasks {
		fn, err := NewAction(decl.Action, ActionParams{Sleep: decl.Sleep, Message: decl.Message})
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", declName(decl, idx), err)
		}
		if err := r.Register(decl.Name, decl.Weight, fn); err != nil {
			return nil, err
		}
	}

	name := cfg.TaskSet.Name
	if name == "" {
		name = dummySetName
	}
	return r.Build(BuildOptions{
		Name:              name,
		Mode:              mode,
		DistributeWeights: cfg.TaskSet.DistributeWeights,
	})
}

func declName(decl config.Task, idx int) string {
	if decl.Name != "" {
		return decl.Name
	}
	return fmt.Sprintf("index %d", idx)
}
