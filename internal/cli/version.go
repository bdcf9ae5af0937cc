package cli

import "github.com/spf13/cobra"

//nolint:gochecknoglobals // cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("walletcore version %s\n", buildInfo.Version)
		cmd.Printf("  commit: %s\n", buildInfo.Commit)
		cmd.Printf("  built:  %s\n", buildInfo.Date)
	},
}
