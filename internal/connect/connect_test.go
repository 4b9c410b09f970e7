package connect

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/bucketwalk/internal/config"
	"github.com/3leaps/bucketwalk/pkg/provider"
	"github.com/3leaps/bucketwalk/pkg/provider/file"
)

func TestOpen_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bucket")
	p, err := Open(context.Background(), &config.Config{Provider: "file", PageSize: 5}, dir)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	assert.IsType(t, &file.Provider{}, p)
	assert.Equal(t, "bucket", p.Bucket())
	_, ok := p.(provider.ObjectCopier)
	assert.True(t, ok)
}

func TestOpen_S3(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	p, err := Open(context.Background(), &config.Config{
		Provider: "s3",
		Region:   "us-east-1",
		Endpoint: "http://localhost:5000",
	}, "my-bucket")
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	assert.Equal(t, "my-bucket", p.Bucket())
	_, ok := p.(provider.ObjectDeleter)
	assert.True(t, ok)
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, nil, "b")
	assert.Error(t, err)

	_, err = Open(ctx, &config.Config{Provider: "s3"}, " ")
	assert.Error(t, err)

	_, err = Open(ctx, &config.Config{Provider: "gcs"}, "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}
