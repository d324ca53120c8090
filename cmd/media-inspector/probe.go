package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"media-inspector/internal/analysis"
	"media-inspector/internal/codecs"
	"media-inspector/internal/database"
	"media-inspector/internal/logging"
	"media-inspector/internal/probe"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	probeJSON bool

	probeCmd = &cobra.Command{
		Use:   "probe <file>",
		Short: "Probe a single file and show its streams and compatibility",
		Args:  cobra.ExactArgs(1),
		RunE:  runProbe,
	}
)

func init() {
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "print the result as JSON")
}

func runProbe(cmd *cobra.Command, args []string) error {
	if flagLogLevel == "" {
		logging.SetLevel(logging.LevelWarn)
	}

	config, err := loadQuiet()
	if err != nil {
		return err
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	ctx := cmd.Context()
	cfg := codecs.Defaults()
	if db, err := database.New(ctx, config.DatabasePath); err != nil {
		logging.Warn("Using default codec configuration: %v", err)
	} else {
		store := codecs.NewStore(db)
		if err := store.Load(ctx); err == nil {
			cfg, _ = store.Current()
		}
		_ = db.Close()
	}

	prober := probe.New(config.FFprobePath, config.ProbeTimeout)
	defer prober.Cleanup()

	result, err := prober.Probe(ctx, path)
	if err != nil {
		return fmt.Errorf("could not extract video information: %w", err)
	}

	described := analysis.Describe(result, cfg, probe.FindSidecarSubtitles(path))
	if probeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(described)
	}
	printFileInfo(cmd.OutOrStdout(), path, described)
	return nil
}

func printFileInfo(w io.Writer, path string, info *analysis.FileInfo) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed, color.Bold)
	green := color.New(color.FgGreen)
	faint := color.New(color.Faint)

	flag := func(problematic bool) string {
		if problematic {
			return red.Sprint("problematic")
		}
		return green.Sprint("ok")
	}

	bold.Fprintln(w, path)
	fmt.Fprintf(w, "  Container: %s  Duration: %s  Size: %s", info.Container, info.Duration, info.Size)
	if info.Bitrate != "" {
		fmt.Fprintf(w, "  Bitrate: %s", info.Bitrate)
	}
	fmt.Fprintln(w)

	if info.Video.Codec != "" {
		fmt.Fprintf(w, "  Video: %s %s %s [%s]\n",
			info.Video.Codec, info.Video.Resolution, info.Video.Framerate, flag(info.Video.IsProblematic))
	}
	for _, a := range info.AudioTracks {
		fmt.Fprintf(w, "  Audio #%d: %s %s %s (%s) [%s]\n",
			a.Index, a.Codec, a.ChannelLayout, a.SampleRate, a.Language, flag(a.IsProblematic))
	}
	for _, s := range info.SubtitleTracks {
		source := "embedded"
		if s.External {
			source = "sidecar"
		}
		fmt.Fprintf(w, "  Subtitle: %s (%s) %s\n", s.Codec, s.Language, faint.Sprint(source))
	}
	if info.Chapters > 0 {
		fmt.Fprintf(w, "  Chapters: %d\n", info.Chapters)
	}

	c := info.Compatibility
	if c.NeedsRemux {
		red.Fprintf(w, "  Needs remux: %d of %d audio tracks problematic, video %s\n",
			c.ProblematicTrackCount, c.TotalAudioTracks, flag(c.VideoProblematic))
	} else {
		green.Fprintln(w, "  Direct play compatible")
	}
}
