/*
Package workers provides utilities for determining worker pool sizes in
containerized environments.

Go 1.19+ sets GOMAXPROCS from the container CPU limit, while runtime.NumCPU()
still reports the host CPU count. Count and ForIO size pools from GOMAXPROCS so
the inspector respects cgroup limits.

# Probe Concurrency

Library analysis shells out to ffprobe once per video file. ForProbes decides
how many of those processes may run at the same time:

	PROBE_WORKERS unset   -> 1 (sequential, the default)
	PROBE_WORKERS=auto    -> 2 per available CPU, capped at MaxProbeWorkers
	PROBE_WORKERS=4       -> 4, capped at MaxProbeWorkers

Sequential probing keeps the load on NFS-backed libraries predictable. Raise
the value when the library lives on local disks.

All functions in this package are safe for concurrent use.
*/
package workers
