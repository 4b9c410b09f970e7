package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/bucketwalk/internal/config"
	"github.com/3leaps/bucketwalk/internal/connect"
	"github.com/3leaps/bucketwalk/pkg/provider"
	"github.com/3leaps/bucketwalk/pkg/scan"
	"github.com/3leaps/bucketwalk/pkg/trigger"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Run the triggered handler once and print its response",
	Long: `Run the single-shot triggered handler locally. It lists only the first page
of the bucket and prints the keys under a header naming the bucket.

The bucket defaults to trigger.bucket from configuration (BUCKETWALK_BUCKET).

Example:
  bucketwalk invoke --bucket my-bucket`,
	RunE: runInvoke,
}

var invokeBucket string

func init() {
	rootCmd.AddCommand(invokeCmd)

	invokeCmd.Flags().StringVarP(&invokeBucket, "bucket", "b", "", "Bucket to list (default: trigger.bucket)")
}

func runInvoke(cmd *cobra.Command, _ []string) error {
	bucket := triggerBucket(invokeBucket, appConfig)
	if bucket == "" {
		return exitError(foundry.ExitInvalidArgument, "No bucket", fmt.Errorf("set --bucket or trigger.bucket"))
	}

	h := newTriggerHandler(appConfig, bucket)
	text, err := h.Handle(cmd.Context(), nil)
	if err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Invocation failed", err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), text)
	if err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
	}
	return nil
}

// triggerBucket prefers the flag value over configuration.
func triggerBucket(flag string, cfg *config.Config) string {
	if b := strings.TrimSpace(flag); b != "" {
		return b
	}
	return strings.TrimSpace(cfg.Trigger.Bucket)
}

// newTriggerHandler builds a handler that opens a fresh provider per call.
func newTriggerHandler(cfg *config.Config, bucket string) *trigger.Handler {
	open := func(ctx context.Context) (provider.Provider, error) {
		return connect.Open(ctx, cfg, bucket)
	}
	return trigger.NewHandler(open, scan.Config{PageSize: cfg.PageSize})
}
