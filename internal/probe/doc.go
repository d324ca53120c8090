/*
Package probe extracts stream metadata from media files with ffprobe.

FFprobe runs one ffprobe process per file with a per-call timeout and parses
its JSON output into a Result: container details, the first video stream, the
ordered audio tracks and the embedded subtitle tracks. Every failure, whether
a non-zero exit, a timeout or unparsable output, comes back as a *ProbeError
so callers can skip the file and keep going:

	result, err := prober.Probe(ctx, "/media/Movies/Film.mkv")
	var perr *probe.ProbeError
	if errors.As(err, &perr) {
		logging.Warn("skipping %s: %v", perr.Path, perr.Err)
	}

The package also finds sidecar subtitle files next to a video and formats
probe values for display (HumanSize, FormatDuration, ResolutionLabel, ...).

Running ffprobe processes are tracked so Cleanup can kill them on shutdown.
*/
package probe
