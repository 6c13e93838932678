// Package backoff computes retry delays: capped exponential growth with
// optional symmetric jitter.
//
// The random source is injectable so tests can pin jitter to exact values.
// Compute keeps no state beyond the random source, and the default source
// is safe for concurrent use.
package backoff
