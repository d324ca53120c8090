package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"media-inspector/internal/analysis"
	"media-inspector/internal/logging"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	analyzeForce   bool
	analyzeJSON    bool
	analyzeVerbose bool

	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Analyze the whole media library once and print the summary",
		Long: `Runs a full library analysis without starting the server. A usable
cached result is returned unless --force is given. The result is written to
the configured cache and recorded in the run history like a server run.`,
		Args: cobra.NoArgs,
		RunE: runAnalyze,
	}
)

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "ignore the cached result")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the result as JSON")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "keep info logging enabled")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if !analyzeVerbose && flagLogLevel == "" {
		logging.SetLevel(logging.LevelWarn)
	}

	config, err := loadQuiet()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, config)
	if err != nil {
		return err
	}
	defer a.Close()
	// Waits for history and notifications of the run before the database
	// closes; on interrupt it also cancels the run.
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.analyzer.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Analysis shutdown: %v", err)
		}
		a.prober.Cleanup()
	}()

	sub, err := a.analyzer.Request(ctx, analyzeForce)
	if err != nil {
		return err
	}
	defer sub.Close()

	progress := newProgressReporter(os.Stderr, !analyzeJSON)

	var final analysis.Event
	for {
		select {
		case <-ctx.Done():
			progress.finish()
			return errors.New("analysis interrupted")
		case ev, ok := <-sub.Events():
			if !ok {
				progress.finish()
				if final.Status == "" {
					return errors.New("analysis ended without a result")
				}
				return report(cmd.OutOrStdout(), final)
			}
			progress.update(ev)
			if ev.Status.Terminal() {
				final = ev
			}
		}
	}
}

func report(w io.Writer, ev analysis.Event) error {
	if ev.Status == analysis.StatusError {
		return errors.New(ev.Message)
	}
	if ev.Record == nil {
		return errors.New("analysis completed without a result")
	}
	if analyzeJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ev.Record)
	}
	printSummary(w, ev.Record, ev.Cached)
	return nil
}

// progressReporter draws a bar on terminals and plain lines elsewhere.
type progressReporter struct {
	out         io.Writer
	enabled     bool
	interactive bool
	bar         *progressbar.ProgressBar
	lastLine    time.Time
}

func newProgressReporter(f *os.File, enabled bool) *progressReporter {
	return &progressReporter{
		out:         f,
		enabled:     enabled,
		interactive: term.IsTerminal(int(f.Fd())),
	}
}

func (p *progressReporter) update(ev analysis.Event) {
	if !p.enabled {
		return
	}
	switch ev.Status {
	case analysis.StatusStarting:
		fmt.Fprintln(p.out, ev.Message)
	case analysis.StatusProgress:
		if p.interactive {
			p.draw(ev)
			return
		}
		// One line every few seconds keeps piped logs readable.
		if time.Since(p.lastLine) >= 5*time.Second || ev.CurrentFile == ev.TotalFiles {
			p.lastLine = time.Now()
			fmt.Fprintf(p.out, "[%d/%d] %s\n", ev.CurrentFile, ev.TotalFiles, ev.CurrentFilename)
		}
	}
}

func (p *progressReporter) draw(ev analysis.Event) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions64(
			int64(ev.TotalFiles),
			progressbar.OptionSetDescription(""),
			progressbar.OptionSetWidth(40),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionShowCount(),
			progressbar.OptionShowDescriptionAtLineEnd(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "Probing [",
				BarEnd:        "]",
			}),
		)
	}
	_ = p.bar.Set64(int64(ev.CurrentFile))
	p.bar.Describe(ev.CurrentFilename)
}

func (p *progressReporter) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

func printSummary(w io.Writer, record *analysis.CacheRecord, cached bool) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow, color.Bold)
	faint := color.New(color.Faint)

	fmt.Fprintln(w)
	cyan.Fprintln(w, "Library compatibility")
	if cached {
		faint.Fprintf(w, "  cached result from %s\n", record.CachedAt().Format(time.RFC1123))
	}

	pct := green
	if record.ProblematicFiles > 0 {
		pct = yellow
	}
	fmt.Fprintf(w, "  Files analyzed:  %s\n", bold.Sprint(record.TotalFiles))
	fmt.Fprintf(w, "  Compatible:      %s\n", green.Sprint(record.CompatibleFiles))
	fmt.Fprintf(w, "  Problematic:     %s (audio %d, video %d, both %d)\n",
		yellow.Sprint(record.ProblematicFiles), record.AudioIssues, record.VideoIssues, record.BothIssues)
	if record.SkippedFiles > 0 {
		fmt.Fprintf(w, "  Skipped:         %d\n", record.SkippedFiles)
	}
	fmt.Fprintf(w, "  Compatibility:   %s\n", pct.Sprintf("%.1f%%", record.CompatibilityPercentage))

	printBreakdown(w, bold, "Audio codecs", record.CodecBreakdown.Audio)
	printBreakdown(w, bold, "Video codecs", record.CodecBreakdown.Video)

	if len(record.ProblematicFilesList) > 0 {
		fmt.Fprintln(w)
		bold.Fprintln(w, "  Problematic files")
		for _, f := range record.ProblematicFilesList {
			fmt.Fprintf(w, "    %s  %s\n", f.Path, faint.Sprint(f.Issues))
		}
	}
}

func printBreakdown(w io.Writer, bold *color.Color, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	fmt.Fprintln(w)
	bold.Fprintf(w, "  %s\n", title)
	for _, name := range names {
		fmt.Fprintf(w, "    %-12s %d\n", name, counts[name])
	}
}
