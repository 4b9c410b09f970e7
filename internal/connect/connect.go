// Package connect opens storage providers from configuration.
package connect

import (
	"context"
	"fmt"
	"strings"

	"github.com/3leaps/bucketwalk/internal/config"
	"github.com/3leaps/bucketwalk/pkg/provider"
	"github.com/3leaps/bucketwalk/pkg/provider/file"
	"github.com/3leaps/bucketwalk/pkg/provider/s3"
)

// Open creates a provider bound to bucket. For the file provider bucket is a
// directory path.
func Open(ctx context.Context, cfg *config.Config, bucket string) (provider.Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	switch provider.ProviderType(cfg.Provider) {
	case provider.ProviderS3:
		p, err := s3.New(ctx, s3.Config{
			Bucket:   bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
			Profile:  cfg.Profile,
			// S3-compatible services (moto, MinIO, etc.) require path-style URLs.
			ForcePathStyle: cfg.Endpoint != "",
			MaxKeys:        cfg.PageSize,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case provider.ProviderFile:
		p, err := file.New(file.Config{BaseDir: bucket, MaxKeys: cfg.PageSize})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}
