// Package cmd implements the bucketwalk command line.
package cmd

import (
	"context"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketwalk/internal/config"
	"github.com/3leaps/bucketwalk/internal/observability"
)

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata injected by the linker.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	cfgFile      string
	logLevel     string
	providerName string
	region       string
	endpoint     string
	profile      string
	format       string

	// appConfig is loaded once per invocation in PersistentPreRunE.
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bucketwalk",
	Short: "Scan a bucket page by page and act on every object",
	Long: `bucketwalk lists every object in an S3 (or S3-compatible) bucket across all
listing pages and applies one action to each: report, copy or delete.

Examples:
  bucketwalk list --bucket my-bucket
  bucketwalk copy --source my-bucket --dest my-backup
  bucketwalk delete --bucket scratch-bucket --dry-run
  bucketwalk invoke --bucket my-bucket`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initApp,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Path to YAML config file")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	pf.StringVar(&providerName, "provider", "", "Storage provider (s3|file)")
	pf.StringVar(&region, "region", "", "Cloud region")
	pf.StringVar(&endpoint, "endpoint", "", "Custom S3-compatible endpoint URL")
	pf.StringVar(&profile, "profile", "", "AWS shared config profile")
	pf.StringVar(&format, "format", "", "Item output format (text|jsonl)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// initApp loads configuration with flag overrides and sets up logging.
func initApp(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadWithFile(ctx, cfgFile, flagOverrides(cmd))
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	appConfig = cfg

	if err := observability.InitCLILogger(cfg.Logging.Level); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid log level", err)
	}

	observability.CLILogger.Debug("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.String("region", cfg.Region),
		zap.String("endpoint", cfg.Endpoint),
		zap.String("format", cfg.Output.Format))
	return nil
}

// flagOverrides returns config overrides for flags set on the command line.
func flagOverrides(cmd *cobra.Command) map[string]any {
	flags := cmd.Flags()
	overrides := map[string]any{}
	if flags.Changed("log-level") {
		overrides["logging"] = map[string]any{"level": logLevel}
	}
	if flags.Changed("provider") {
		overrides["provider"] = providerName
	}
	if flags.Changed("region") {
		overrides["region"] = region
	}
	if flags.Changed("endpoint") {
		overrides["endpoint"] = endpoint
	}
	if flags.Changed("profile") {
		overrides["profile"] = profile
	}
	if flags.Changed("format") {
		overrides["output"] = map[string]any{"format": format}
	}
	return overrides
}
