package main

import (
	"fmt"

	"media-inspector/internal/startup"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		info := startup.GetBuildInfo()
		fmt.Fprintf(cmd.OutOrStdout(), "media-inspector %s (commit %s, built %s)\n", info.Version, info.Commit, info.BuildTime)
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s\n", info.GoVersion, info.OS, info.Arch)
	},
}
