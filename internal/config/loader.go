package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// Defaults applied before the config file and flags.
const (
	DefaultUsers    = 1
	DefaultAlpha    = 0.001
	DefaultLogLevel = "info"
)

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Users:      DefaultUsers,
		Alpha:      DefaultAlpha,
		ConfigFile: configPath,
		Arrival:    ArrivalConfig{Model: ArrivalModelUniform},
		WaitTime:   WaitTime{Type: WaitTimeNone},
		Log:        LogConfig{Level: DefaultLogLevel, Format: "console"},
		Tracing:    TracingConfig{Protocol: "grpc", SampleRate: 1},
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "users"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("users: %w", err)
		}
		cfg.Users = val
	}

	if raw, ok := lookupSetting(settings, "iterations"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("iterations: %w", err)
		}
		cfg.Iterations = val
	}

	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = dur
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "seed"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		cfg.Seed = int64(val)
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "strictdistribution", "strict_distribution", "strict-distribution"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("strictDistribution: %w", err)
		}
		cfg.StrictDistribution = val
	}

	if raw, ok := lookupSetting(settings, "alpha"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("alpha: %w", err)
		}
		cfg.Alpha = val
	}

	if raw, ok := lookupSetting(settings, "arrival"); ok {
		arrival, err := parseArrival(raw)
		if err != nil {
			return fmt.Errorf("arrival: %w", err)
		}
		if arrival.Model != "" {
			cfg.Arrival = arrival
		}
	}

	if raw, ok := lookupSetting(settings, "ratepatterns", "rate_patterns", "rate-patterns"); ok {
		patterns, err := parseRatePatterns(raw)
		if err != nil {
			return fmt.Errorf("ratePatterns: %w", err)
		}
		cfg.RatePatterns = patterns
	}

	if raw, ok := lookupSetting(settings, "waittime", "wait_time", "wait-time"); ok {
		wait, err := parseWaitTime(raw)
		if err != nil {
			return fmt.Errorf("waitTime: %w", err)
		}
		cfg.WaitTime = wait
	}

	if raw, ok := lookupSetting(settings, "taskset", "task_set", "task-set"); ok {
		set, err := parseTaskSet(raw)
		if err != nil {
			return fmt.Errorf("taskSet: %w", err)
		}
		cfg.TaskSet = set
	}

	if raw, ok := lookupSetting(settings, "tasks"); ok {
		tasks, err := parseTasks(raw)
		if err != nil {
			return fmt.Errorf("tasks: %w", err)
		}
		cfg.Tasks = tasks
	}

	if raw, ok := lookupSetting(settings, "log"); ok {
		logCfg, err := parseLog(raw, cfg.Log)
		if err != nil {
			return fmt.Errorf("log: %w", err)
		}
		cfg.Log = logCfg
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	return nil
}

func parseRatePatterns(value interface{}) ([]RatePattern, error) {
	if value == nil {
		return nil, nil
	}
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	patterns := make([]RatePattern, 0, len(items))
	for idx, item := range items {
		entry, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		pattern, err := buildRatePattern(entry)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

func buildRatePattern(settings map[string]interface{}) (RatePattern, error) {
	var pattern RatePattern
	if raw, ok := lookupSetting(settings, "name"); ok {
		val, err := asString(raw)
		if err != nil {
			return RatePattern{}, fmt.Errorf("name: %w", err)
		}
		pattern.Name = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "type"); ok {
		val, err := asString(raw)
		if err != nil {
			return RatePattern{}, fmt.Errorf("type: %w", err)
		}
		pattern.Type = RatePatternType(strings.ToLower(strings.TrimSpace(val)))
	}
	if raw, ok := lookupSetting(settings, "from"); ok {
		val, err := asInt(raw)
		if err != nil {
			return RatePattern{}, fmt.Errorf("from: %w", err)
		}
		pattern.From = val
	}
	if raw, ok := lookupSetting(settings, "to"); ok {
		val, err := asInt(raw)
		if err != nil {
			return RatePattern{}, fmt.Errorf("to: %w", err)
		}
		pattern.To = val
	}
	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return RatePattern{}, fmt.Errorf("duration: %w", err)
		}
		pattern.Duration = dur
	}
	if raw, ok := lookupSetting(settings, "steps"); ok {
		steps, err := parseRateSteps(raw)
		if err != nil {
			return RatePattern{}, fmt.Errorf("steps: %w", err)
		}
		pattern.Steps = steps
	}
	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return RatePattern{}, fmt.Errorf("rate: %w", err)
		}
		pattern.Rate = val
	}
	return pattern, nil
}

func parseRateSteps(value interface{}) ([]RateStep, error) {
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	steps := make([]RateStep, 0, len(items))
	for idx, item := range items {
		entry, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		var step RateStep
		if raw, ok := lookupSetting(entry, "rate"); ok {
			val, err := asInt(raw)
			if err != nil {
				return nil, fmt.Errorf("index %d rate: %w", idx, err)
			}
			step.Rate = val
		}
		if raw, ok := lookupSetting(entry, "duration"); ok {
			dur, err := asDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("index %d duration: %w", idx, err)
			}
			step.Duration = dur
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func parseArrival(value interface{}) (ArrivalConfig, error) {
	if value == nil {
		return ArrivalConfig{}, nil
	}
	switch v := value.(type) {
	case string:
		model := strings.ToLower(strings.TrimSpace(v))
		if model == "" {
			return ArrivalConfig{}, nil
		}
		return ArrivalConfig{Model: ArrivalModel(model)}, nil
	default:
		entry, err := toStringKeyMap(value)
		if err != nil {
			return ArrivalConfig{}, err
		}
		if raw, ok := lookupSetting(entry, "model"); ok {
			val, err := asString(raw)
			if err != nil {
				return ArrivalConfig{}, fmt.Errorf("model: %w", err)
			}
			return ArrivalConfig{Model: ArrivalModel(strings.ToLower(strings.TrimSpace(val)))}, nil
		}
		return ArrivalConfig{}, fmt.Errorf("model field is required")
	}
}

func parseWaitTime(value interface{}) (WaitTime, error) {
	entry, err := toStringKeyMap(value)
	if err != nil {
		return WaitTime{}, err
	}
	wait := WaitTime{Type: WaitTimeNone}
	if raw, ok := lookupSetting(entry, "type"); ok {
		val, err := asString(raw)
		if err != nil {
			return WaitTime{}, fmt.Errorf("type: %w", err)
		}
		if t := strings.ToLower(strings.TrimSpace(val)); t != "" {
			wait.Type = WaitTimeType(t)
		}
	}
	if raw, ok := lookupSetting(entry, "min"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return WaitTime{}, fmt.Errorf("min: %w", err)
		}
		wait.Min = dur
	}
	if raw, ok := lookupSetting(entry, "max"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return WaitTime{}, fmt.Errorf("max: %w", err)
		}
		wait.Max = dur
	}
	return wait, nil
}

func parseTaskSet(value interface{}) (TaskSetConfig, error) {
	entry, err := toStringKeyMap(value)
	if err != nil {
		return TaskSetConfig{}, err
	}
	var set TaskSetConfig
	if raw, ok := lookupSetting(entry, "name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TaskSetConfig{}, fmt.Errorf("name: %w", err)
		}
		set.Name = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "mode"); ok {
		val, err := asString(raw)
		if err != nil {
			return TaskSetConfig{}, fmt.Errorf("mode: %w", err)
		}
		set.Mode = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(entry, "distributeweights", "distribute_weights", "distribute-weights"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TaskSetConfig{}, fmt.Errorf("distribute_weights: %w", err)
		}
		set.DistributeWeights = val
	}
	return set, nil
}

// parseTasks accepts a list of maps or of "name=weight[:action]" strings.
func parseTasks(value interface{}) ([]Task, error) {
	if value == nil {
		return nil, nil
	}
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(items))
	for idx, item := range items {
		if spec, ok := item.(string); ok {
			task, err := ParseTaskSpec(spec)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", idx, err)
			}
			tasks = append(tasks, task)
			continue
		}
		entry, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		task, err := buildTask(entry)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func buildTask(settings map[string]interface{}) (Task, error) {
	var task Task
	if raw, ok := lookupSetting(settings, "name"); ok {
		val, err := asString(raw)
		if err != nil {
			return Task{}, fmt.Errorf("name: %w", err)
		}
		task.Name = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "weight"); ok {
		val, err := asInt(raw)
		if err != nil {
			return Task{}, fmt.Errorf("weight: %w", err)
		}
		task.Weight = val
	}
	if raw, ok := lookupSetting(settings, "action"); ok {
		val, err := asString(raw)
		if err != nil {
			return Task{}, fmt.Errorf("action: %w", err)
		}
		task.Action = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "sleep"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return Task{}, fmt.Errorf("sleep: %w", err)
		}
		task.Sleep = dur
	}
	if raw, ok := lookupSetting(settings, "message"); ok {
		val, err := asString(raw)
		if err != nil {
			return Task{}, fmt.Errorf("message: %w", err)
		}
		task.Message = val
	}
	return task, nil
}

// ParseTaskSpec parses the "name=weight[:action]" shorthand used by --task.
func ParseTaskSpec(spec string) (Task, error) {
	parts := strings.SplitN(strings.TrimSpace(spec), "=", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
		return Task{}, fmt.Errorf("invalid task %q: expected name=weight[:action]", spec)
	}
	task := Task{Name: strings.TrimSpace(parts[0])}

	weightPart := parts[1]
	if idx := strings.Index(weightPart, ":"); idx != -1 {
		task.Action = strings.ToLower(strings.TrimSpace(weightPart[idx+1:]))
		weightPart = weightPart[:idx]
	}
	weight, err := strconv.Atoi(strings.TrimSpace(weightPart))
	if err != nil {
		return Task{}, fmt.Errorf("invalid task %q: weight: %w", spec, err)
	}
	task.Weight = weight
	return task, nil
}

func parseLog(value interface{}, base LogConfig) (LogConfig, error) {
	entry, err := toStringKeyMap(value)
	if err != nil {
		return LogConfig{}, err
	}
	out := base
	if raw, ok := lookupSetting(entry, "level"); ok {
		val, err := asString(raw)
		if err != nil {
			return LogConfig{}, fmt.Errorf("level: %w", err)
		}
		out.Level = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(entry, "format"); ok {
		val, err := asString(raw)
		if err != nil {
			return LogConfig{}, fmt.Errorf("format: %w", err)
		}
		out.Format = strings.ToLower(strings.TrimSpace(val))
	}
	return out, nil
}

func parseTracing(value interface{}, base TracingConfig) (TracingConfig, error) {
	entry, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}
	tracing := base
	if raw, ok := lookupSetting(entry, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		tracing.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
		tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(entry, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
		tracing.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		tracing.SampleRate = val
	}
	if raw, ok := lookupSetting(entry, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		tracing.Insecure = val
	}
	return tracing, nil
}
