package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/torosent/crankset/internal/taskset"
)

type declaredTask struct {
	Name              string         `yaml:"name"`
	Weight            int            `yaml:"weight"`
	Probability       string         `yaml:"probability,omitempty"`
	Mode              string         `yaml:"mode,omitempty"`
	DistributeWeights bool           `yaml:"distribute_weights,omitempty"`
	Tasks             []declaredTask `yaml:"tasks,omitempty"`
}

// PrintDeclaration writes the effective task declaration as YAML, with each
// task's selection probability within its set.
func PrintDeclaration(w io.Writer, set *taskset.TaskSet) error {
	doc := map[string]declaredTask{"task_set": describe(set, "")}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode declaration: %w", err)
	}
	return enc.Close()
}

func describe(task taskset.Task, probability string) declaredTask {
	out := declaredTask{
		Name:        task.Name(),
		Weight:      task.Weight(),
		Probability: probability,
	}
	set, ok := task.(*taskset.TaskSet)
	if !ok {
		return out
	}
	out.Mode = string(set.Mode())
	out.DistributeWeights = set.DistributesWeights()

	children := set.Tasks()
	var total int
	for _, child := range children {
		total += child.Weight()
	}
	for _, child := range children {
		p := ""
		if set.Mode() == taskset.ModeRandom {
			p = formatShare(float64(child.Weight()) / float64(total))
		}
		out.Tasks = append(out.Tasks, describe(child, p))
	}
	return out
}
