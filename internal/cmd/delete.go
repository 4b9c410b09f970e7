package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketwalk/internal/connect"
	"github.com/3leaps/bucketwalk/internal/observability"
	"github.com/3leaps/bucketwalk/pkg/action"
	"github.com/3leaps/bucketwalk/pkg/output"
	"github.com/3leaps/bucketwalk/pkg/scan"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete every object in a bucket",
	Long: `Delete every object in a bucket across all listing pages.

With --dry-run the same scan runs but objects are only reported.

Example:
  bucketwalk delete --bucket scratch-bucket
  bucketwalk delete --bucket scratch-bucket --prefix tmp/ --dry-run`,
	RunE: runDelete,
}

var (
	deleteBucket string
	deleteDryRun bool
	deleteScan   scanFlags
)

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().StringVarP(&deleteBucket, "bucket", "b", "", "Bucket to empty (required)")
	deleteCmd.Flags().BoolVar(&deleteDryRun, "dry-run", false, "Report objects instead of deleting them")
	deleteScan.register(deleteCmd)
	_ = deleteCmd.MarkFlagRequired("bucket")
}

func runDelete(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sc, err := deleteScan.scanConfig(appConfig)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid match patterns", err)
	}

	prov, err := connect.Open(ctx, appConfig, deleteBucket)
	if err != nil {
		observability.CLILogger.Error("Failed to create provider", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", err)
	}
	defer func() { _ = prov.Close() }()

	runID := newRunID()
	w := newWriter(cmd.OutOrStdout(), appConfig, runID)
	defer func() { _ = w.Close() }()

	op := output.OpDelete
	var act scan.Action
	if deleteDryRun {
		op = output.OpList
		act = action.Report(prov.Bucket(), w)
		observability.CLILogger.Info("Dry run: objects will not be deleted", zap.String("bucket", prov.Bucket()))
	} else {
		act, err = action.Delete(prov, w)
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid delete", err)
		}
	}

	return runScan(ctx, scanJob{
		op:       op,
		provider: prov,
		config:   sc,
		action:   act,
		writer:   w,
		runID:    runID,
	})
}
