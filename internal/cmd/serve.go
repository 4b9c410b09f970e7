package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketwalk/internal/observability"
	"github.com/3leaps/bucketwalk/internal/server"
	"github.com/3leaps/bucketwalk/pkg/scan"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the triggered handler over HTTP",
	Long: `Start an HTTP server exposing:

  POST /invoke   run the triggered handler (first page listing as text)
  GET  /health   liveness
  GET  /version  build information
  GET  /metrics  Prometheus metrics

Example:
  bucketwalk serve --bucket my-bucket --port 8080`,
	RunE: runServe,
}

var (
	serveHost   string
	servePort   int
	serveBucket string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (default: server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default: server.port)")
	serveCmd.Flags().StringVarP(&serveBucket, "bucket", "b", "", "Bucket listed by /invoke (default: trigger.bucket)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	srv := newServer(cmd)

	if err := srv.Start(cmd.Context()); err != nil {
		observability.CLILogger.Error("Server failed", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
	}
	return nil
}

func newServer(cmd *cobra.Command) *server.Server {
	cfg := appConfig
	opts := server.Options{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Version:         server.VersionInfo(versionInfo),
		Metrics:         observability.NewMetrics(),
		Logger:          observability.CLILogger,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	if cmd.Flags().Changed("host") {
		opts.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		opts.Port = servePort
	}

	if bucket := triggerBucket(serveBucket, cfg); bucket != "" {
		metrics := opts.Metrics
		opts.Invoker = newTriggerHandler(cfg, bucket).WithObserver(func(sum *scan.Summary, err error) {
			metrics.ObserveScan("invoke", sum, err)
		})
	} else {
		observability.CLILogger.Warn("No trigger bucket configured; /invoke is disabled")
	}
	return server.New(opts)
}
