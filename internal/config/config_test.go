package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/crankset/internal/config"
)

func TestLoadWithoutArgsRequestsHelp(t *testing.T) {
	loader := config.NewLoader()
	_, err := loader.Load([]string{})
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load() error = %v, want ErrHelpRequested", err)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{
		"users": 3,
		"duration": "2m",
		"rate": 50,
		"arrival": {"model": "poisson"},
		"task_set": {"name": "MyTaskSet"},
		"tasks": [
			{"name": "hello", "weight": 20}
		],
		"alpha": 0.01,
		"json_output": true
	}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Users != 3 {
		t.Errorf("Users = %d, want 3", cfg.Users)
	}
	if cfg.Duration != 2*time.Minute {
		t.Errorf("Duration = %s, want 2m", cfg.Duration)
	}
	if cfg.Rate != 50 {
		t.Errorf("Rate = %d, want 50", cfg.Rate)
	}
	if cfg.Arrival.Model != config.ArrivalModelPoisson {
		t.Errorf("Arrival.Model = %q, want poisson", cfg.Arrival.Model)
	}
	if len(cfg.Tasks) != 1 || cfg.Tasks[0].Name != "hello" || cfg.Tasks[0].Weight != 20 {
		t.Errorf("Tasks = %+v", cfg.Tasks)
	}
	if cfg.Alpha != 0.01 {
		t.Errorf("Alpha = %v, want 0.01", cfg.Alpha)
	}
	if !cfg.JSONOutput {
		t.Errorf("JSONOutput = false, want true")
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(`
users: 2
iterations: 500
seed: 7
task_set:
  name: Checkout
  mode: sequential
  distribute_weights: true
tasks:
  - name: cart
    weight: 2
  - name: pay
    weight: 1
    action: sleep
    sleep: 20ms
rate_patterns:
  - type: spike
    rate: 200
    duration: 5s
log:
  format: json
tracing:
  endpoint: localhost:4317
  insecure: true
`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path, "--users", "6"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Users != 6 {
		t.Errorf("Users = %d, want flag override 6", cfg.Users)
	}
	if cfg.Iterations != 500 || cfg.Seed != 7 {
		t.Errorf("Iterations/Seed = %d/%d", cfg.Iterations, cfg.Seed)
	}
	if cfg.TaskSet.Mode != "sequential" || !cfg.TaskSet.DistributeWeights {
		t.Errorf("TaskSet = %+v", cfg.TaskSet)
	}
	if len(cfg.Tasks) != 2 || cfg.Tasks[1].Sleep != 20*time.Millisecond {
		t.Errorf("Tasks = %+v", cfg.Tasks)
	}
	if len(cfg.RatePatterns) != 1 || cfg.RatePatterns[0].Rate != 200 {
		t.Errorf("RatePatterns = %+v", cfg.RatePatterns)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != config.DefaultLogLevel {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Tracing.Endpoint != "localhost:4317" || !cfg.Tracing.Insecure || cfg.Tracing.SampleRate != 1 {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
}

func TestConfigValidationErrors(t *testing.T) {
	cfg := config.Config{
		Users:      0,
		Iterations: -1,
		Alpha:      1.5,
		Arrival:    config.ArrivalConfig{Model: "bursty"},
		TaskSet:    config.TaskSetConfig{Mode: "chaotic"},
		WaitTime:   config.WaitTime{Type: config.WaitTimeBetween, Min: time.Second, Max: time.Millisecond},
		Tasks: []config.Task{
			{Name: "hello", Weight: 0},
			{Name: "hello", Weight: 1},
			{Weight: 1},
		},
		RatePatterns: []config.RatePattern{{Type: "zigzag"}},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var vErr config.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error %T is not a ValidationError", err)
	}

	wantFragments := []string{
		"users must be >= 1",
		"iterations must be >= 0",
		"alpha",
		"arrival model",
		"task_set mode",
		"wait_time max",
		"task hello: weight must be >= 1",
		"declared more than once",
		"tasks[2]: name is required",
		"unknown type",
	}
	issues := strings.Join(vErr.Issues(), "\n")
	for _, fragment := range wantFragments {
		if !strings.Contains(issues, fragment) {
			t.Errorf("issues missing %q:\n%s", fragment, issues)
		}
	}
}

func TestConfigValidationRequiresStopCondition(t *testing.T) {
	cfg := config.Config{Users: 1, Tasks: []config.Task{{Name: "hello", Weight: 20}}}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "required to stop the run") {
		t.Fatalf("Validate() error = %v, want stop condition issue", err)
	}

	cfg.Duration = time.Second
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidatePrintDeclarationNeedsNoStopCondition(t *testing.T) {
	cfg, err := config.NewLoader().Load([]string{"--print-declaration", "--task", "hello=20"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil when only printing the declaration", err)
	}
}
