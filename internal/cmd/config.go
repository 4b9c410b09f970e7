package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after defaults, config file, BUCKETWALK_* environment
variables and flags are applied. The output is a valid --config file.

Example:
  bucketwalk config --provider file --format jsonl > bucketwalk.yaml`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(appConfig); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write configuration", err)
	}
	if err := enc.Close(); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write configuration", err)
	}
	return nil
}
