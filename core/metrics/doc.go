// Package metrics exposes Prometheus collectors for sync runs: tables
// reconciled, rows written and run durations. Collectors live on their own
// registry so tests and multiple services never collide.
package metrics
