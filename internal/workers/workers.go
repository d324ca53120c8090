package workers

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

// EnvProbeWorkers is the environment variable that overrides probe concurrency.
const EnvProbeWorkers = "PROBE_WORKERS"

// MaxProbeWorkers caps concurrent ffprobe processes.
const MaxProbeWorkers = 16

// Count returns the optimal number of workers for a given task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//
// The limit parameter caps the worker count to prevent resource exhaustion.
// Use 0 for no limit.
//
// Can be overridden with a numeric PROBE_WORKERS environment variable.
func Count(multiplier float64, limit int) int {
	// Check for manual override first
	if override := os.Getenv(EnvProbeWorkers); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
// The limit parameter caps the maximum number of workers.
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForProbes returns the number of concurrent ffprobe workers for an analysis run.
//
// PROBE_WORKERS unset or invalid keeps probing sequential (1). "auto" sizes the
// pool for I/O-bound work. A positive number is used as-is, capped at
// MaxProbeWorkers.
func ForProbes() int {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(EnvProbeWorkers)))
	switch value {
	case "":
		return 1
	case "auto":
		return autoIO(MaxProbeWorkers)
	}

	count, err := strconv.Atoi(value)
	if err != nil || count < 1 {
		return 1
	}
	return Count(1.0, MaxProbeWorkers)
}

// autoIO ignores the numeric override, which is not set when "auto" is used.
func autoIO(limit int) int {
	workers := runtime.GOMAXPROCS(0) * 2
	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}
