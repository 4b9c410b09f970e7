package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	// Test basic config loading with defaults
	t.Run("LoadDefaults", func(t *testing.T) {
		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "s3", cfg.Provider)
		assert.Empty(t, cfg.Region)
		assert.Zero(t, cfg.PageSize)
		assert.Zero(t, cfg.RateLimit)

		// Verify server defaults
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, FormatText, cfg.Output.Format)
	})

	// Test runtime overrides
	t.Run("RuntimeOverrides", func(t *testing.T) {
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
			"region": "eu-west-1",
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "eu-west-1", cfg.Region)

		// Verify non-overridden values remain default
		assert.Equal(t, FormatText, cfg.Output.Format)
	})

	// Test environment variable overrides
	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("BUCKETWALK_PORT", "3000")
		t.Setenv("BUCKETWALK_LOG_LEVEL", "warn")
		t.Setenv("BUCKETWALK_REGION", "us-west-2")
		t.Setenv("BUCKETWALK_PAGE_SIZE", "250")
		t.Setenv("BUCKETWALK_BUCKET", "trigger-bucket")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, "us-west-2", cfg.Region)
		assert.Equal(t, 250, cfg.PageSize)
		assert.Equal(t, "trigger-bucket", cfg.Trigger.Bucket)
	})

	// Test config precedence: runtime > env > defaults
	t.Run("ConfigPrecedence", func(t *testing.T) {
		t.Setenv("BUCKETWALK_PORT", "4000")

		cfg, err := Load(ctx, map[string]any{
			"server": map[string]any{"port": 5000},
		})
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port)
	})
}

func TestLoadWithFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bucketwalk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: file
page_size: 100
output:
  format: jsonl
server:
  port: 7070
  shutdown_timeout: 3s
`), 0o644))

	t.Run("FileValues", func(t *testing.T) {
		cfg, err := LoadWithFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "file", cfg.Provider)
		assert.Equal(t, 100, cfg.PageSize)
		assert.Equal(t, FormatJSONL, cfg.Output.Format)
		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	})

	t.Run("EnvBeatsFile", func(t *testing.T) {
		t.Setenv("BUCKETWALK_PORT", "7171")
		cfg, err := LoadWithFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 7171, cfg.Server.Port)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadWithFile(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config")
	})
}

func TestLoad_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		overrides map[string]any
		want      string
	}{
		{"bad provider", map[string]any{"provider": "gcs"}, "provider"},
		{"bad format", map[string]any{"output": map[string]any{"format": "xml"}}, "output.format"},
		{"bad level", map[string]any{"logging": map[string]any{"level": "trace"}}, "logging.level"},
		{"negative page size", map[string]any{"page_size": -1}, "page_size"},
		{"negative rate", map[string]any{"rate_limit": -0.5}, "rate_limit"},
		{"bad port", map[string]any{"server": map[string]any{"port": 70000}}, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(ctx, tt.overrides)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_NormalizesCase(t *testing.T) {
	cfg, err := Load(context.Background(), map[string]any{
		"provider": " S3 ",
		"output":   map[string]any{"format": "JSONL"},
	})
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Provider)
	assert.Equal(t, FormatJSONL, cfg.Output.Format)
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetConfig(t *testing.T) {
	ctx := context.Background()

	cfg, err := Load(ctx)
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)

	cfg2, err := Load(ctx, map[string]any{"server": map[string]any{"port": cfg.Server.Port + 1000}})
	require.NoError(t, err)
	assert.Equal(t, cfg2.Server.Port, GetConfig().Server.Port)
}

func TestEnvSpecsPrefixHandling(t *testing.T) {
	specs := getEnvSpecs()
	require.NotEmpty(t, specs)

	names := make(map[string]bool)
	for _, spec := range specs {
		assert.True(t, strings.HasPrefix(spec.Name, "BUCKETWALK_"), spec.Name)
		assert.NotEmpty(t, spec.Path, "env var %s should have a path", spec.Name)
		names[spec.Name] = true
	}

	assert.True(t, names["BUCKETWALK_LOG_LEVEL"], "LOG_LEVEL env var must be mapped")
	assert.True(t, names["BUCKETWALK_PORT"], "PORT env var must be mapped")
	assert.True(t, names["BUCKETWALK_HOST"], "HOST env var must be mapped")
}

func TestFlatten(t *testing.T) {
	got := flatten("", map[string]any{
		"a": 1,
		"b": map[string]any{"c": "x", "d": map[string]any{"e": true}},
	})
	assert.Equal(t, map[string]any{"a": 1, "b.c": "x", "b.d.e": true}, got)
}
