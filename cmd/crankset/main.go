package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/crankset/internal/config"
	"github.com/torosent/crankset/internal/logging"
	"github.com/torosent/crankset/internal/metrics"
	"github.com/torosent/crankset/internal/output"
	"github.com/torosent/crankset/internal/registry"
	"github.com/torosent/crankset/internal/runner"
	"github.com/torosent/crankset/internal/taskset"
	"github.com/torosent/crankset/internal/threshold"
	"github.com/torosent/crankset/internal/tracing"
	"github.com/torosent/crankset/internal/user"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

var _ runner.Looper = (*user.Actor)(nil)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.NewLoader().Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	set, err := registry.FromConfig(cfg)
	if err != nil {
		return err
	}

	if cfg.PrintDeclaration {
		return output.PrintDeclaration(stdout, set)
	}

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	baseSeed := cfg.Seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	collector := metrics.NewCollector()
	wait := user.WaitFromConfig(cfg.WaitTime)

	r := runner.New(runner.Options{
		Users:        cfg.Users,
		Iterations:   cfg.Iterations,
		Duration:     cfg.Duration,
		Rate:         cfg.Rate,
		ArrivalModel: cfg.Arrival.Model,
		RatePatterns: cfg.RatePatterns,
		RandomSeed:   baseSeed,
		NewExecutor: func(i int) (runner.Executor, error) {
			return user.New(set, user.Options{
				Seed:     baseSeed + int64(i),
				Wait:     wait,
				Recorder: collector,
				Tracer:   provider.Tracer(),
				Logger:   logger,
			}), nil
		},
	})

	logger.Info("run started",
		zap.String("task_set", set.Name()),
		zap.String("mode", string(set.Mode())),
		zap.Int("tasks", len(set.Tasks())),
		zap.Int("users", cfg.Users),
		zap.Int64("seed", baseSeed),
		zap.Bool("tracing", provider.Enabled()),
	)

	var progress *output.ProgressReporter
	if !cfg.JSONOutput {
		progress = output.NewProgressReporter(collector, progressInterval, stdout)
		progress.Start()
	}

	collector.Start()
	result, runErr := r.Run(ctx)
	if progress != nil {
		progress.Stop()
		fmt.Fprintln(stdout)
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("run finished",
		zap.Int64("iterations", result.Total),
		zap.Int64("errors", result.Errors),
		zap.Int64("planned", result.Planned),
		zap.Duration("duration", result.Duration),
	)

	stats := collector.Stats(result.Duration)

	var fit *metrics.Fit
	if cfg.Alpha > 0 {
		checked, err := metrics.CheckDistribution(declaredWeights(set), collector.Selections(), cfg.Alpha)
		if err != nil {
			return err
		}
		fit = &checked
		if !fit.Pass {
			logger.Warn("observed task mix does not fit the declared weights",
				zap.Float64("chi_square", fit.ChiSquare),
				zap.Float64("critical", fit.Critical),
			)
		}
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(stats)

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, stats, fit, results); err != nil {
			return err
		}
	} else {
		if err := output.PrintReport(stdout, stats, fit); err != nil {
			return err
		}
		output.PrintThresholds(stdout, results)
	}

	if !threshold.AllPassed(results) {
		return errors.New("one or more thresholds failed")
	}
	if result.Errors > 0 {
		return fmt.Errorf("%d task executions failed", result.Errors)
	}
	if cfg.StrictDistribution && fit != nil && !fit.Pass {
		return errors.New("observed task distribution does not fit the declared weights")
	}
	return nil
}

// declaredWeights returns the expected selection weights of the top-level
// entries of set. A plain sequential cycle visits every entry once.
func declaredWeights(set *taskset.TaskSet) []metrics.Weighted {
	tasks := set.Tasks()
	out := make([]metrics.Weighted, len(tasks))
	for i, task := range tasks {
		weight := task.Weight()
		if set.Mode() == taskset.ModeSequential && !set.DistributesWeights() {
			weight = 1
		}
		out[i] = metrics.Weighted{Name: task.Name(), Weight: weight}
	}
	return out
}
