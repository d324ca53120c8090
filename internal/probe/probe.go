package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"media-inspector/internal/logging"
	"media-inspector/internal/metrics"
)

// DefaultTimeout bounds a single ffprobe invocation.
const DefaultTimeout = 30 * time.Second

// Sentinel causes carried inside a *ProbeError.
var (
	ErrTimeout   = errors.New("probe timed out")
	ErrMalformed = errors.New("malformed probe output")
)

// ProbeError reports a per-file probe failure. It never aborts an analysis run.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Prober extracts stream metadata from a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (*Result, error)
}

// FFprobe runs the ffprobe binary once per file.
type FFprobe struct {
	binary  string
	timeout time.Duration

	processes map[string]*exec.Cmd
	processMu sync.Mutex
}

// New creates an FFprobe adapter. An empty binary means "ffprobe" from PATH;
// a non-positive timeout means DefaultTimeout.
func New(binary string, timeout time.Duration) *FFprobe {
	if binary == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FFprobe{
		binary:    binary,
		timeout:   timeout,
		processes: make(map[string]*exec.Cmd),
	}
}

// Probe runs ffprobe against path and parses its JSON output. Every failure
// is returned as a *ProbeError.
func (f *FFprobe) Probe(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	metrics.ProbesInFlight.Inc()
	defer metrics.ProbesInFlight.Dec()

	result, err := f.run(ctx, path)

	status := "success"
	switch {
	case errors.Is(err, ErrTimeout):
		status = "timeout"
	case err != nil:
		status = "error"
	}
	metrics.ProbeTotal.WithLabelValues(status).Inc()
	metrics.ProbeDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		logging.Debug("Probe failed for %s: %v", path, err)
		return nil, err
	}
	return result, nil
}

func (f *FFprobe) run(ctx context.Context, path string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-show_chapters",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	f.track(path, cmd)
	err := cmd.Run()
	f.untrack(path)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, &ProbeError{Path: path, Err: fmt.Errorf("%w after %v", ErrTimeout, f.timeout)}
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w - %s", err, msg)
		}
		return nil, &ProbeError{Path: path, Err: fmt.Errorf("ffprobe error: %w", err)}
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, &ProbeError{Path: path, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}

	return out.toResult(), nil
}

func (f *FFprobe) track(path string, cmd *exec.Cmd) {
	f.processMu.Lock()
	f.processes[path] = cmd
	f.processMu.Unlock()
}

func (f *FFprobe) untrack(path string) {
	f.processMu.Lock()
	delete(f.processes, path)
	f.processMu.Unlock()
}

// Cleanup kills any ffprobe processes that are still running.
func (f *FFprobe) Cleanup() {
	f.processMu.Lock()
	defer f.processMu.Unlock()

	for path, cmd := range f.processes {
		if cmd.Process != nil {
			logging.Info("Killing ffprobe process for: %s", path)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill ffprobe process for %s: %v", path, err)
			}
		}
	}
}
