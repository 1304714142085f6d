package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Users              int           `mapstructure:"users" yaml:"users"`
	Iterations         int           `mapstructure:"iterations" yaml:"iterations,omitempty"`
	Duration           time.Duration `mapstructure:"duration" yaml:"duration,omitempty"`
	Rate               int           `mapstructure:"rate" yaml:"rate,omitempty"`
	Seed               int64         `mapstructure:"seed" yaml:"seed,omitempty"`
	Arrival            ArrivalConfig `mapstructure:"arrival" yaml:"arrival"`
	RatePatterns       []RatePattern `mapstructure:"rate_patterns" yaml:"rate_patterns,omitempty"`
	WaitTime           WaitTime      `mapstructure:"wait_time" yaml:"wait_time"`
	TaskSet            TaskSetConfig `mapstructure:"task_set" yaml:"task_set"`
	Tasks              []Task        `mapstructure:"tasks" yaml:"tasks,omitempty"`
	JSONOutput         bool          `mapstructure:"json_output" yaml:"json_output,omitempty"`
	PrintDeclaration   bool          `mapstructure:"-" yaml:"-"`
	StrictDistribution bool          `mapstructure:"strict_distribution" yaml:"strict_distribution,omitempty"`
	Alpha              float64       `mapstructure:"alpha" yaml:"alpha,omitempty"`
	Thresholds         []string      `mapstructure:"thresholds" yaml:"thresholds,omitempty"`
	Log                LogConfig     `mapstructure:"log" yaml:"log"`
	Tracing            TracingConfig `mapstructure:"tracing" yaml:"tracing,omitempty"`
	ConfigFile         string        `mapstructure:"-" yaml:"-"`
}

// Task declares one weighted task and the built-in body it runs.
type Task struct {
	Name    string        `mapstructure:"name" yaml:"name"`
	Weight  int           `mapstructure:"weight" yaml:"weight"`
	Action  string        `mapstructure:"action" yaml:"action,omitempty"`
	Sleep   time.Duration `mapstructure:"sleep" yaml:"sleep,omitempty"`
	Message string        `mapstructure:"message" yaml:"message,omitempty"`
}

type TaskSetConfig struct {
	Name              string `mapstructure:"name" yaml:"name,omitempty"`
	Mode              string `mapstructure:"mode" yaml:"mode,omitempty"` // "random" or "sequential"
	DistributeWeights bool   `mapstructure:"distribute_weights" yaml:"distribute_weights,omitempty"`
}

type WaitTimeType string

const (
	WaitTimeNone     WaitTimeType = "none"
	WaitTimeConstant WaitTimeType = "constant"
	WaitTimeBetween  WaitTimeType = "between"
)

type WaitTime struct {
	Type WaitTimeType  `mapstructure:"type" yaml:"type,omitempty"`
	Min  time.Duration `mapstructure:"min" yaml:"min,omitempty"` // also the constant wait
	Max  time.Duration `mapstructure:"max" yaml:"max,omitempty"`
}

type RatePatternType string

const (
	RatePatternTypeRamp  RatePatternType = "ramp"
	RatePatternTypeStep  RatePatternType = "step"
	RatePatternTypeSpike RatePatternType = "spike"
)

type RatePattern struct {
	Name     string          `mapstructure:"name" yaml:"name,omitempty"`
	Type     RatePatternType `mapstructure:"type" yaml:"type"`
	From     int             `mapstructure:"from" yaml:"from,omitempty"`
	To       int             `mapstructure:"to" yaml:"to,omitempty"`
	Duration time.Duration   `mapstructure:"duration" yaml:"duration,omitempty"`
	Steps    []RateStep      `mapstructure:"steps" yaml:"steps,omitempty"`
	Rate     int             `mapstructure:"rate" yaml:"rate,omitempty"`
}

type RateStep struct {
	Rate     int           `mapstructure:"rate" yaml:"rate"`
	Duration time.Duration `mapstructure:"duration" yaml:"duration"`
}

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

type ArrivalConfig struct {
	Model ArrivalModel `mapstructure:"model" yaml:"model,omitempty"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level,omitempty"`
	Format string `mapstructure:"format" yaml:"format,omitempty"` // "console" or "json"
}

// TracingConfig configures OTLP export of per-task spans.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Protocol    string  `mapstructure:"protocol" yaml:"protocol,omitempty"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name" yaml:"service_name,omitempty"`
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate,omitempty"`
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure,omitempty"`
}

// Enabled reports whether an exporter endpoint was configured, directly or
// through OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if c.Users < 1 {
		issues = append(issues, "users must be >= 1")
	}
	if c.Iterations < 0 {
		issues = append(issues, "iterations must be >= 0")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if !c.PrintDeclaration && c.Iterations == 0 && c.Duration == 0 && len(c.RatePatterns) == 0 {
		issues = append(issues, "one of iterations, duration or rate_patterns is required to stop the run")
	}
	if c.Alpha < 0 || c.Alpha >= 1 {
		issues = append(issues, "alpha must be in [0, 1)")
	}

	switch c.Arrival.Model {
	case "", ArrivalModelUniform, ArrivalModelPoisson:
	default:
		issues = append(issues, fmt.Sprintf("arrival model %q is not supported (use uniform or poisson)", c.Arrival.Model))
	}

	switch strings.ToLower(c.TaskSet.Mode) {
	case "", "random", "sequential":
	default:
		issues = append(issues, fmt.Sprintf("task_set mode %q is not supported (use random or sequential)", c.TaskSet.Mode))
	}

	issues = append(issues, validateWaitTime(c.WaitTime)...)
	issues = append(issues, validateTasks(c.Tasks)...)
	issues = append(issues, validatePatterns(c.RatePatterns)...)

	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		issues = append(issues, fmt.Sprintf("log format %q is not supported (use console or json)", c.Log.Format))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing sample_rate must be between 0.0 and 1.0")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateWaitTime(w WaitTime) []string {
	var issues []string
	if w.Min < 0 || w.Max < 0 {
		issues = append(issues, "wait_time durations must be >= 0")
	}
	switch w.Type {
	case "", WaitTimeNone, WaitTimeConstant:
	case WaitTimeBetween:
		if w.Max < w.Min {
			issues = append(issues, "wait_time max must be >= min")
		}
	default:
		issues = append(issues, fmt.Sprintf("wait_time type %q is not supported (use none, constant or between)", w.Type))
	}
	return issues
}

func validateTasks(tasks []Task) []string {
	var issues []string
	seen := make(map[string]struct{}, len(tasks))
	for idx, t := range tasks {
		label := t.Name
		if strings.TrimSpace(label) == "" {
			label = fmt.Sprintf("index %d", idx)
			issues = append(issues, fmt.Sprintf("tasks[%d]: name is required", idx))
		}
		if t.Weight < 1 {
			issues = append(issues, fmt.Sprintf("task %s: weight must be >= 1", label))
		}
		if t.Sleep < 0 {
			issues = append(issues, fmt.Sprintf("task %s: sleep must be >= 0", label))
		}
		if _, dup := seen[t.Name]; dup && t.Name != "" {
			issues = append(issues, fmt.Sprintf("task %s: declared more than once", label))
		}
		seen[t.Name] = struct{}{}
	}
	return issues
}

func validatePatterns(patterns []RatePattern) []string {
	var issues []string
	for idx, p := range patterns {
		label := p.Name
		if label == "" {
			label = fmt.Sprintf("index %d", idx)
		}
		switch p.Type {
		case RatePatternTypeRamp:
			if p.Duration <= 0 {
				issues = append(issues, fmt.Sprintf("rate_patterns %s: ramp duration must be > 0", label))
			}
			if p.From < 0 || p.To < 0 {
				issues = append(issues, fmt.Sprintf("rate_patterns %s: ramp rates must be >= 0", label))
			}
		case RatePatternTypeStep:
			if len(p.Steps) == 0 {
				issues = append(issues, fmt.Sprintf("rate_patterns %s: step pattern needs steps", label))
			}
			for sIdx, step := range p.Steps {
				if step.Duration <= 0 || step.Rate < 0 {
					issues = append(issues, fmt.Sprintf("rate_patterns %s: step %d needs rate >= 0 and duration > 0", label, sIdx))
				}
			}
		case RatePatternTypeSpike:
			if p.Duration <= 0 || p.Rate <= 0 {
				issues = append(issues, fmt.Sprintf("rate_patterns %s: spike needs rate > 0 and duration > 0", label))
			}
		default:
			issues = append(issues, fmt.Sprintf("rate_patterns %s: unknown type %q", label, p.Type))
		}
	}
	return issues
}
