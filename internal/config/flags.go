package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "crankset",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Declaration flags
	flags.StringArray("task", nil, "Declare a task as name=weight[:action] (repeatable; action is noop, sleep or fail)")
	flags.String("task-set", "", "Name of the declared task set")
	flags.String("mode", "random", "Task selection mode: 'random' (weighted draws) or 'sequential'")
	flags.Bool("distribute-weights", false, "In sequential mode, repeat each task weight times per cycle")

	// Run control flags
	flags.IntP("users", "u", DefaultUsers, "Number of simulated users, each with its own selector")
	flags.IntP("iterations", "n", 0, "Total task executions across all users (0 means unlimited)")
	flags.DurationP("duration", "d", 0, "How long to run (e.g. 30s, 1m)")
	flags.IntP("rate", "r", 0, "Task executions per second across all users (0 means unlimited)")
	flags.String("arrival-model", string(ArrivalModelUniform), "Arrival model used when pacing executions (uniform or poisson)")
	flags.Int64("seed", 0, "Base random seed; user i draws from seed+i (0 seeds from the clock)")
	flags.String("wait-time", string(WaitTimeNone), "Wait between a user's executions: none, constant or between")
	flags.Duration("wait-min", 0, "Constant wait, or lower bound for 'between'")
	flags.Duration("wait-max", 0, "Upper bound for 'between'")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("print-declaration", false, "Print the effective task declaration as YAML and exit")
	flags.Bool("strict-distribution", false, "Fail the run when the observed task mix does not fit the weights")
	flags.Float64("alpha", DefaultAlpha, "Significance level of the distribution check (0 disables it)")
	flags.StringArray("threshold", nil, "Pass/fail assertion (repeatable, e.g. 'task_duration:p99 < 50' or 'task_failed[checkout]:rate < 0.01')")
	flags.String("log-level", DefaultLogLevel, "Log level: debug, info, warn or error")
	flags.String("log-format", "console", "Log encoding: console or json")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint for per-task spans")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Float64("tracing-sample-rate", 1, "Fraction of task executions to trace")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("users") {
		val, err := fs.GetInt("users")
		if err != nil {
			return err
		}
		cfg.Users = val
	}
	if fs.Changed("iterations") {
		val, err := fs.GetInt("iterations")
		if err != nil {
			return err
		}
		cfg.Iterations = val
	}
	if fs.Changed("duration") {
		val, err := fs.GetDuration("duration")
		if err != nil {
			return err
		}
		cfg.Duration = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("arrival-model") {
		val, err := fs.GetString("arrival-model")
		if err != nil {
			return err
		}
		cfg.Arrival.Model = ArrivalModel(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("seed") {
		val, err := fs.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = val
	}
	if fs.Changed("wait-time") {
		val, err := fs.GetString("wait-time")
		if err != nil {
			return err
		}
		cfg.WaitTime.Type = WaitTimeType(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("wait-min") {
		val, err := fs.GetDuration("wait-min")
		if err != nil {
			return err
		}
		cfg.WaitTime.Min = val
	}
	if fs.Changed("wait-max") {
		val, err := fs.GetDuration("wait-max")
		if err != nil {
			return err
		}
		cfg.WaitTime.Max = val
	}
	if fs.Changed("task-set") {
		val, err := fs.GetString("task-set")
		if err != nil {
			return err
		}
		cfg.TaskSet.Name = strings.TrimSpace(val)
	}
	if fs.Changed("mode") {
		val, err := fs.GetString("mode")
		if err != nil {
			return err
		}
		cfg.TaskSet.Mode = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("distribute-weights") {
		val, err := fs.GetBool("distribute-weights")
		if err != nil {
			return err
		}
		cfg.TaskSet.DistributeWeights = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("print-declaration") {
		val, err := fs.GetBool("print-declaration")
		if err != nil {
			return err
		}
		cfg.PrintDeclaration = val
	}
	if fs.Changed("strict-distribution") {
		val, err := fs.GetBool("strict-distribution")
		if err != nil {
			return err
		}
		cfg.StrictDistribution = val
	}
	if fs.Changed("alpha") {
		val, err := fs.GetFloat64("alpha")
		if err != nil {
			return err
		}
		cfg.Alpha = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("log-format") {
		val, err := fs.GetString("log-format")
		if err != nil {
			return err
		}
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}

	if fs.Changed("threshold") {
		val, err := fs.GetStringArray("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}

	if fs.Changed("task") {
		specs, err := fs.GetStringArray("task")
		if err != nil {
			return err
		}
		tasks := make([]Task, 0, len(specs))
		for _, spec := range specs {
			task, err := ParseTaskSpec(spec)
			if err != nil {
				return err
			}
			tasks = append(tasks, task)
		}
		cfg.Tasks = tasks
	}

	return nil
}
