// Package config loads resilienced settings from config.yaml and
// RESILIENCE_* environment variables. Besides server and logging options it
// carries the retry policy table, circuit breaker thresholds, metrics and
// monitor settings and the synthetic workload, and converts them into the
// types the retry and circuitbreaker packages consume.
package config
