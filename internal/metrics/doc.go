// Package metrics tallies task executions for a crankset run and checks the
// observed task mix against the declared weights.
//
// # Collector
//
// Every user records each execution into a shared [Collector]:
//
//	collector := metrics.NewCollector()
//	collector.Start()
//
//	collector.RecordTask(metrics.Record{
//		Selected: "browse",
//		Task:     "hello",
//		Latency:  latency,
//		Err:      err,
//	})
//
//	stats := collector.Stats(elapsed)
//
// Selected is the entry drawn from the user's top-level task set; Task is the
// leaf that actually ran. They differ only when task sets nest. The Collector
// is safe for concurrent use.
//
// # Distribution check
//
// [CheckDistribution] runs a chi-squared goodness-of-fit test of the
// selection counts against the declared weights:
//
//	fit, err := metrics.CheckDistribution(declared, collector.Selections(), 0.001)
//	if err == nil && !fit.Pass {
//		// the observed mix is unlikely under the declared weights
//	}
package metrics
