package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "bucketwalk %s\ncommit: %s\nbuilt: %s\n",
			versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
