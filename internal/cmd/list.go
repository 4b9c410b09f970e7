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

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Report the key and size of every object in a bucket",
	Long: `List every object in a bucket across all listing pages.

Example:
  bucketwalk list --bucket my-bucket
  bucketwalk list --bucket my-bucket --prefix logs/ --format jsonl
  bucketwalk list --provider file --bucket ./testdata/bucket`,
	RunE: runList,
}

var (
	listBucket string
	listScan   scanFlags
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listBucket, "bucket", "b", "", "Bucket to list (required)")
	listScan.register(listCmd)
	_ = listCmd.MarkFlagRequired("bucket")
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sc, err := listScan.scanConfig(appConfig)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid match patterns", err)
	}

	prov, err := connect.Open(ctx, appConfig, listBucket)
	if err != nil {
		observability.CLILogger.Error("Failed to create provider", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", err)
	}
	defer func() { _ = prov.Close() }()

	runID := newRunID()
	w := newWriter(cmd.OutOrStdout(), appConfig, runID)
	defer func() { _ = w.Close() }()

	return runScan(ctx, scanJob{
		op:       output.OpList,
		provider: prov,
		config:   sc,
		action:   action.Report(prov.Bucket(), w),
		writer:   w,
		runID:    runID,
	})
}
