package main

import (
	"fmt"
	"os"
	"strings"

	"media-inspector/internal/logging"
	"media-inspector/internal/startup"

	"github.com/spf13/cobra"
)

var (
	flagLogLevel string

	rootCmd = &cobra.Command{
		Use:   "media-inspector",
		Short: "Codec compatibility analysis for media libraries",
		Long: `media-inspector probes every video file under MEDIA_DIR with ffprobe,
classifies its codecs against a configurable list of problematic codecs and
caches the library-wide result.

Without a subcommand it runs the HTTP server.`,
		SilenceUsage:      true,
		PersistentPreRunE: applyLogLevel,
		RunE:              runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	rootCmd.AddCommand(serveCmd, analyzeCmd, probeCmd, configCmd, versionCmd)
}

func applyLogLevel(_ *cobra.Command, _ []string) error {
	if flagLogLevel == "" {
		return nil
	}
	switch strings.ToLower(flagLogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", flagLogLevel)
	}
	logging.SetLevel(logging.ParseLevel(flagLogLevel))
	return nil
}

// loadQuiet reads configuration for the one-shot commands, which do not
// print the server banner.
func loadQuiet() (*startup.Config, error) {
	config, err := startup.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return config, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
