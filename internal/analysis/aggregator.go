package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"media-inspector/internal/codecs"
	"media-inspector/internal/library"
	"media-inspector/internal/logging"
	"media-inspector/internal/metrics"
	"media-inspector/internal/probe"
)

// Discoverer enumerates the video files of a media root.
type Discoverer interface {
	Root() string
	Discover(ctx context.Context, limit int) ([]library.File, error)
	Fingerprint() (string, error)
}

// ProgressFunc is called once after discovery with current == 0 and then
// once per file, in discovery order.
type ProgressFunc func(current, total int, filename string)

// Aggregator probes and classifies every discovered file and folds the
// verdicts into a Result.
type Aggregator struct {
	discoverer Discoverer
	prober     probe.Prober
	workers    int
}

// NewAggregator creates an Aggregator. workers bounds the number of
// concurrent probes; values below 1 mean sequential probing.
func NewAggregator(discoverer Discoverer, prober probe.Prober, workers int) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{
		discoverer: discoverer,
		prober:     prober,
		workers:    workers,
	}
}

// Workers returns the probe concurrency.
func (a *Aggregator) Workers() int {
	return a.workers
}

type outcome struct {
	result *probe.Result
	err    error
	done   bool
}

// Run discovers up to limit files (0 for all) and analyzes them against cfg.
// Probes may run concurrently but files are folded and reported strictly in
// discovery order. A failed probe skips the file. Run only fails when
// discovery fails or ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context, cfg codecs.Config, limit int, onProgress ProgressFunc) (*Result, error) {
	if onProgress == nil {
		onProgress = func(int, int, string) {}
	}

	files, err := a.discoverer.Discover(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to discover video files: %w", err)
	}

	total := len(files)
	logging.Info("Analyzing %d video files with %d probe workers", total, a.workers)
	onProgress(0, total, "")

	result := NewResult()
	outcomes := make([]outcome, total)

	var mu sync.Mutex
	next := 0
	report := func(i int, o outcome) {
		mu.Lock()
		defer mu.Unlock()

		o.done = true
		outcomes[i] = o
		for next < total && outcomes[next].done {
			file := files[next]
			fold(result, file, outcomes[next], cfg)
			outcomes[next] = outcome{done: true}
			next++
			onProgress(next, total, file.Name)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, file := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := a.prober.Probe(gctx, file.Path)
			report(i, outcome{result: r, err: err})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.CompatibilityPercentage = CompatibilityPercentage(result.CompatibleFiles, result.TotalFiles)
	return result, nil
}

// fold adds one file's outcome to result.
func fold(result *Result, file library.File, o outcome, cfg codecs.Config) {
	if o.err != nil || o.result == nil {
		result.SkippedFiles++
		metrics.AnalysisFilesTotal.WithLabelValues("skipped").Inc()
		if o.err != nil {
			logging.Warn("Skipping %s: %v", file.RelPath, o.err)
		}
		return
	}

	r := o.result
	verdict := codecs.Classify(r, cfg)
	result.TotalFiles++

	if verdict.NeedsRemux {
		result.ProblematicFiles++
		if verdict.AudioProblematic {
			result.AudioIssues++
		}
		if verdict.VideoProblematic {
			result.VideoIssues++
		}
		if verdict.AudioProblematic && verdict.VideoProblematic {
			result.BothIssues++
		}

		size := r.Size
		if size <= 0 {
			size = file.Size
		}
		result.ProblematicFilesList = append(result.ProblematicFilesList, ProblematicFile{
			Name:       file.Name,
			Path:       file.RelPath,
			AudioCodec: verdict.AudioCodec,
			VideoCodec: verdict.VideoCodec,
			Issues:     verdict.Issues(),
			Size:       probe.HumanSize(size),
			SizeBytes:  size,
		})
		metrics.AnalysisFilesTotal.WithLabelValues("problematic").Inc()
	} else {
		result.CompatibleFiles++
		metrics.AnalysisFilesTotal.WithLabelValues("compatible").Inc()
	}

	if audio := r.PrimaryAudio(); audio != nil && audio.Codec != "" {
		result.CodecBreakdown.Audio[strings.ToLower(audio.Codec)]++
	}
	if r.Video != nil && r.Video.Codec != "" {
		result.CodecBreakdown.Video[strings.ToLower(r.Video.Codec)]++
	}
}
