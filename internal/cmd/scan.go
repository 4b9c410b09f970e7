package cmd

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketwalk/internal/config"
	"github.com/3leaps/bucketwalk/internal/observability"
	"github.com/3leaps/bucketwalk/pkg/match"
	"github.com/3leaps/bucketwalk/pkg/output"
	"github.com/3leaps/bucketwalk/pkg/provider"
	"github.com/3leaps/bucketwalk/pkg/scan"
)

// scanFlags are the listing knobs shared by list, copy and delete.
type scanFlags struct {
	prefix    string
	pageSize  int
	rateLimit float64
	includes  []string
	excludes  []string
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "Only scan keys with this prefix")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "Keys per listing page (0 = provider default)")
	cmd.Flags().Float64Var(&f.rateLimit, "rate-limit", 0, "Max listing requests per second (0 = unlimited)")
	cmd.Flags().StringSliceVar(&f.includes, "include", nil, "Only act on keys matching these globs")
	cmd.Flags().StringSliceVar(&f.excludes, "exclude", nil, "Skip keys matching these globs")
}

// scanConfig merges flags over configuration.
func (f *scanFlags) scanConfig(cfg *config.Config) (scan.Config, error) {
	m, err := match.New(match.Config{Includes: f.includes, Excludes: f.excludes})
	if err != nil {
		return scan.Config{}, err
	}
	sc := scan.Config{
		Prefix:    f.prefix,
		PageSize:  cfg.PageSize,
		RateLimit: cfg.RateLimit,
	}
	if f.pageSize > 0 {
		sc.PageSize = f.pageSize
	}
	if f.rateLimit > 0 {
		sc.RateLimit = f.rateLimit
	}
	if !m.Empty() {
		sc.Filter = m
	}
	return sc, nil
}

// newWriter creates the item writer selected by the output format.
func newWriter(w io.Writer, cfg *config.Config, runID string) output.Writer {
	if cfg.Output.Format == config.FormatJSONL {
		return output.NewJSONLWriter(w, runID, cfg.Provider)
	}
	return output.NewTextWriter(w)
}

// scanJob is one command's scan: the action applied and where it reports.
type scanJob struct {
	op       string
	provider provider.Provider
	config   scan.Config
	action   scan.Action
	writer   output.Writer
	runID    string
}

// runScan drives the scan and maps failures to exit codes.
func runScan(ctx context.Context, job scanJob) error {
	s, err := scan.New(job.provider, job.config)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid scan", err)
	}

	observability.CLILogger.Info("Starting scan",
		zap.String("run_id", job.runID),
		zap.String("op", job.op),
		zap.String("bucket", s.Bucket()),
		zap.String("prefix", job.config.Prefix))

	sum, err := s.Run(ctx, job.action)

	if werr := job.writer.WriteSummary(context.WithoutCancel(ctx), summaryRecord(job.op, sum, err)); werr != nil {
		observability.CLILogger.Warn("Failed to write summary record", zap.Error(werr))
	}

	if err != nil {
		_ = job.writer.WriteError(context.WithoutCancel(ctx), errorRecord(job.op, sum.Bucket, err))
		return scanFailure(ctx, job, sum, err)
	}

	observability.CLILogger.Info("Scan completed",
		zap.String("run_id", job.runID),
		zap.String("op", job.op),
		zap.String("bucket", sum.Bucket),
		zap.Int("pages", sum.Pages),
		zap.Int64("items", sum.Items),
		zap.Int64("skipped", sum.Skipped),
		zap.Int64("bytes_total", sum.Bytes),
		zap.Duration("duration", sum.Duration))
	return nil
}

func scanFailure(ctx context.Context, job scanJob, sum *scan.Summary, err error) error {
	fields := []zap.Field{
		zap.String("run_id", job.runID),
		zap.String("op", job.op),
		zap.String("bucket", sum.Bucket),
		zap.Int64("items", sum.Items),
		zap.Error(err),
	}

	var writeErr *output.WriteError
	switch {
	case ctx.Err() != nil:
		observability.CLILogger.Warn("Scan cancelled", fields...)
		return exitError(foundry.ExitSignalInt, "Scan cancelled", err)
	case errors.As(err, &writeErr), errors.Is(err, output.ErrWriterClosed):
		observability.CLILogger.Error("Failed to write output", fields...)
		return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
	default:
		observability.CLILogger.Error("Scan failed", fields...)
		return exitError(foundry.ExitExternalServiceUnavailable, "Scan failed", err)
	}
}

func summaryRecord(op string, sum *scan.Summary, err error) *output.SummaryRecord {
	return &output.SummaryRecord{
		Op:            op,
		Bucket:        sum.Bucket,
		Pages:         sum.Pages,
		Items:         sum.Items,
		Skipped:       sum.Skipped,
		BytesTotal:    sum.Bytes,
		Duration:      sum.Duration,
		DurationHuman: sum.Duration.Round(time.Millisecond).String(),
		Complete:      err == nil,
	}
}

func errorRecord(op, bucket string, err error) *output.ErrorRecord {
	rec := &output.ErrorRecord{
		Code:    output.ClassifyError(err),
		Message: err.Error(),
		Op:      op,
		Bucket:  bucket,
	}
	var itemErr *scan.ItemError
	if errors.As(err, &itemErr) {
		rec.Key = itemErr.Key
		rec.Page = itemErr.Page
	}
	return rec
}

func newRunID() string {
	return uuid.New().String()
}
