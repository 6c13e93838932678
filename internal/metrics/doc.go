// Package metrics collects retry and circuit breaker activity.
//
// Two consumers are provided. Collector is a channel-fed, in-memory store
// behind a JSON snapshot handler:
//   - Executions, attempts, retries, successes and failures per operation
//   - Aborts grouped by reason
//   - Circuit rejections and error categories
//   - Backoff delay and execution time percentiles (P50, P95, P99)
//   - Last known state of every circuit breaker
//
// PrometheusSink exports the same activity as Prometheus counters,
// histograms and a breaker state gauge on a private registry.
//
// Both hand out retry.EventSink values, so they plug straight into an
// execution's options:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	out := retry.Execute(ctx, orch, op, retry.Options{
//		Name:   "search",
//		Events: collector.Sink("search"),
//	})
//	metrics.RecordOutcome(collector, "search", out)
//
//	snapshot := collector.Snapshot()
//
// Publishing never blocks the retry path. When the buffer is full events
// are dropped and counted. Stopping the collector drains whatever is
// still buffered.
package metrics
