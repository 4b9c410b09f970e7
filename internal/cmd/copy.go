package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketwalk/internal/connect"
	"github.com/3leaps/bucketwalk/internal/observability"
	"github.com/3leaps/bucketwalk/pkg/action"
	"github.com/3leaps/bucketwalk/pkg/output"
)

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy every object from one bucket to another",
	Long: `Copy every object in the source bucket to the destination bucket using
server-side copies. Keys are preserved unless --key-template remaps them.
Source objects are left in place.

Key template placeholders:
  {key}       full source key
  {filename}  final path segment
  {dir[n]}    nth directory component (0-based)

Example:
  bucketwalk copy --source my-bucket --dest my-backup
  bucketwalk copy --source my-bucket --dest archive --key-template "2026/{key}"`,
	RunE: runCopy,
}

var (
	copySource      string
	copyDest        string
	copyKeyTemplate string
	copyScan        scanFlags
)

func init() {
	rootCmd.AddCommand(copyCmd)

	copyCmd.Flags().StringVar(&copySource, "source", "", "Source bucket (required)")
	copyCmd.Flags().StringVar(&copyDest, "dest", "", "Destination bucket (required)")
	copyCmd.Flags().StringVar(&copyKeyTemplate, "key-template", "", "Destination key template (default: same key)")
	copyScan.register(copyCmd)
	_ = copyCmd.MarkFlagRequired("source")
	_ = copyCmd.MarkFlagRequired("dest")
}

func runCopy(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sc, err := copyScan.scanConfig(appConfig)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid match patterns", err)
	}
	tpl, err := action.CompileKeyTemplate(copyKeyTemplate)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid --key-template", err)
	}

	prov, err := connect.Open(ctx, appConfig, copySource)
	if err != nil {
		observability.CLILogger.Error("Failed to create provider", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", err)
	}
	defer func() { _ = prov.Close() }()

	runID := newRunID()
	w := newWriter(cmd.OutOrStdout(), appConfig, runID)
	defer func() { _ = w.Close() }()

	act, err := action.Copy(prov, action.CopyOptions{DestBucket: copyDest, Keys: tpl}, w)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid copy", err)
	}

	return runScan(ctx, scanJob{
		op:       output.OpCopy,
		provider: prov,
		config:   sc,
		action:   act,
		writer:   w,
		runID:    runID,
	})
}
