package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"media-inspector/internal/codecs"
	"media-inspector/internal/database"
	"media-inspector/internal/logging"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configYAML      bool
	configAudio     []string
	configVideo     []string
	configOverwrite bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Show or change the problematic codec configuration",
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the stored codec configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}

	configSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Replace the problematic codec lists",
		Long: `Replaces the stored lists. A list that is not given is kept as is;
pass an empty value (--video "") to clear it.`,
		Args: cobra.NoArgs,
		RunE: runConfigSet,
	}

	configImportCmd = &cobra.Command{
		Use:   "import <file>",
		Short: "Import the configuration from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigImport,
	}
)

func init() {
	configShowCmd.Flags().BoolVar(&configYAML, "yaml", false, "print YAML instead of JSON")
	configSetCmd.Flags().StringSliceVar(&configAudio, "audio", nil, "problematic audio codecs (comma separated)")
	configSetCmd.Flags().StringSliceVar(&configVideo, "video", nil, "problematic video codecs (comma separated)")
	configImportCmd.Flags().BoolVar(&configOverwrite, "overwrite", true, "replace an already stored configuration")

	configCmd.AddCommand(configShowCmd, configSetCmd, configImportCmd)
}

// openCodecStore opens the database and loads the stored configuration.
func openCodecStore(ctx context.Context) (*codecs.Store, func(), error) {
	if flagLogLevel == "" {
		logging.SetLevel(logging.LevelWarn)
	}

	config, err := loadQuiet()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database %s: %w", config.DatabasePath, err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logging.Warn("Failed to close database: %v", err)
		}
	}

	store := codecs.NewStore(db)
	if err := store.Load(ctx); err != nil {
		// A corrupt stored value can still be replaced by set or import.
		logging.Warn("%v", err)
	}
	return store, closeDB, nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	store, closeDB, err := openCodecStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	cfg, err := store.Current()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if configYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

func runConfigSet(cmd *cobra.Command, _ []string) error {
	audioSet := cmd.Flags().Changed("audio")
	videoSet := cmd.Flags().Changed("video")
	if !audioSet && !videoSet {
		return errors.New("nothing to change: pass --audio and/or --video")
	}

	store, closeDB, err := openCodecStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	cfg, err := store.Current()
	if err != nil {
		cfg = codecs.Defaults()
	}
	if audioSet {
		cfg.ProblematicCodecs.Audio = configAudio
	}
	if videoSet {
		cfg.ProblematicCodecs.Video = configVideo
	}

	if err := store.Update(cmd.Context(), cfg); err != nil {
		return err
	}

	saved, _ := store.Current()
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration updated successfully\n  audio: %s\n  video: %s\n",
		strings.Join(saved.ProblematicCodecs.Audio, ", "),
		strings.Join(saved.ProblematicCodecs.Video, ", "))
	return nil
}

func runConfigImport(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openCodecStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	if err := store.Import(cmd.Context(), args[0], configOverwrite); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", args[0])
	return nil
}
