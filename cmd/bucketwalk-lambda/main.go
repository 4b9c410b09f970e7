// Command bucketwalk-lambda runs the triggered handler as an AWS Lambda
// function. The bucket comes from BUCKETWALK_BUCKET.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/3leaps/bucketwalk/internal/config"
	"github.com/3leaps/bucketwalk/internal/connect"
	"github.com/3leaps/bucketwalk/internal/observability"
	"github.com/3leaps/bucketwalk/pkg/provider"
	"github.com/3leaps/bucketwalk/pkg/scan"
	"github.com/3leaps/bucketwalk/pkg/trigger"
)

func main() {
	cfg, err := config.Load(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
	if err := observability.InitCLILogger(cfg.Logging.Level); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
	if cfg.Trigger.Bucket == "" {
		observability.CLILogger.Error("BUCKETWALK_BUCKET is not set")
		os.Exit(1)
	}

	h := trigger.NewHandler(func(ctx context.Context) (provider.Provider, error) {
		return connect.Open(ctx, cfg, cfg.Trigger.Bucket)
	}, scan.Config{PageSize: cfg.PageSize}).WithObserver(func(sum *scan.Summary, err error) {
		if err != nil {
			observability.CLILogger.Error("Invocation failed",
				zap.String("bucket", cfg.Trigger.Bucket), zap.Error(err))
			return
		}
		observability.CLILogger.Info("Invocation completed",
			zap.String("bucket", sum.Bucket), zap.Int64("items", sum.Items))
	})

	// Failures are reported in the response text rather than as a function error.
	lambda.Start(func(ctx context.Context, event json.RawMessage) (string, error) {
		text, _ := h.Handle(ctx, event)
		return text, nil
	})
}
