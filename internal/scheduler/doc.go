// Package scheduler implements the reconstruction scheduler of spec.md
// §4.6. FIFOScheduler runs jobs on a bounded worker pool in enqueue
// order. SerialScheduler runs every job inline for deterministic tests
// and single-threaded callers. Both satisfy Scheduler.
package scheduler
