// Package file implements the provider interface over a local directory.
//
// The directory plays the role of a bucket: keys are slash-separated paths
// relative to it. Sibling directories act as other buckets, which lets copy
// runs work entirely offline.
package file

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/3leaps/bucketwalk/pkg/provider"
)

// DefaultMaxKeys mirrors the S3 page size so offline runs paginate the same way.
const DefaultMaxKeys = 1000

// Provider implements provider.Provider for local filesystem paths.
type Provider struct {
	baseDir string
	maxKeys int
	closed  atomic.Bool
}

// Ensure Provider implements provider capability interfaces.
var (
	_ provider.Provider      = (*Provider)(nil)
	_ provider.ObjectCopier  = (*Provider)(nil)
	_ provider.ObjectDeleter = (*Provider)(nil)
)

// Config configures a file provider.
type Config struct {
	// BaseDir is the directory treated as the bucket (required).
	BaseDir string

	// MaxKeys is the page size for List. Zero uses DefaultMaxKeys.
	MaxKeys int
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base dir is required")
	}
	if c.MaxKeys < 0 {
		return fmt.Errorf("max keys must not be negative")
	}
	return nil
}

// New creates a provider rooted at cfg.BaseDir.
//
// The directory must exist; a missing directory is reported as
// provider.ErrBucketNotFound on the first List.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderFile, Err: err}
	}
	maxKeys := cfg.MaxKeys
	if maxKeys == 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{baseDir: filepath.Clean(cfg.BaseDir), maxKeys: maxKeys}, nil
}

// Bucket returns the base directory name.
func (p *Provider) Bucket() string {
	return filepath.Base(p.baseDir)
}

// Close marks the provider closed.
func (p *Provider) Close() error {
	p.closed.Store(true)
	return nil
}

// List returns keys in lexicographic order. The continuation token is the last
// key of the previous page.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	if err := p.check(ctx, "List", ""); err != nil {
		return nil, err
	}

	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = p.maxKeys
	}

	keys, err := p.collectKeys(strings.TrimPrefix(opts.Prefix, "/"))
	if err != nil {
		return nil, p.wrapError("List", "", err)
	}

	start := 0
	if opts.ContinuationToken != "" {
		start = sort.Search(len(keys), func(i int) bool { return keys[i] > opts.ContinuationToken })
	}
	end := min(start+maxKeys, len(keys))

	objects := make([]provider.ObjectSummary, 0, end-start)
	for _, k := range keys[start:end] {
		full, err := p.fullPath(k)
		if err != nil {
			continue
		}
		st, err := os.Stat(full)
		if err != nil || st.IsDir() {
			continue
		}
		objects = append(objects, provider.ObjectSummary{Key: k, Size: st.Size(), LastModified: st.ModTime()})
	}

	res := &provider.ListResult{Objects: objects}
	if end < len(keys) {
		res.IsTruncated = true
		res.ContinuationToken = keys[end-1]
	}
	return res, nil
}

// CopyObject copies srcKey into dstBucket/dstKey.
//
// A relative dstBucket names a sibling directory of the base directory; an
// absolute one is used as is.
func (p *Provider) CopyObject(ctx context.Context, srcKey, dstBucket, dstKey string) error {
	if err := p.check(ctx, "CopyObject", srcKey); err != nil {
		return err
	}
	if strings.TrimSpace(dstBucket) == "" {
		return p.wrapError("CopyObject", srcKey, fmt.Errorf("destination bucket is required"))
	}

	dstRoot := dstBucket
	if !filepath.IsAbs(dstRoot) {
		dstRoot = filepath.Join(filepath.Dir(p.baseDir), dstBucket)
	}
	dst := &Provider{baseDir: filepath.Clean(dstRoot), maxKeys: p.maxKeys}

	src, err := p.fullPath(srcKey)
	if err != nil {
		return p.wrapError("CopyObject", srcKey, err)
	}
	f, err := os.Open(src)
	if err != nil {
		return p.wrapError("CopyObject", srcKey, err)
	}
	defer func() { _ = f.Close() }()

	if err := dst.put(dstKey, f); err != nil {
		return p.wrapError("CopyObject", srcKey, err)
	}
	return nil
}

// DeleteObject removes key. Deleting a missing key is not an error, matching S3.
func (p *Provider) DeleteObject(ctx context.Context, key string) error {
	if err := p.check(ctx, "DeleteObject", key); err != nil {
		return err
	}
	full, err := p.fullPath(key)
	if err != nil {
		return p.wrapError("DeleteObject", key, err)
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return p.wrapError("DeleteObject", key, err)
	}
	return nil
}

// put writes body to key atomically via a temp file and rename.
func (p *Provider) put(key string, body io.Reader) error {
	full, err := p.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".bucketwalk-put-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, full)
}

func (p *Provider) check(ctx context.Context, op, key string) error {
	if p.closed.Load() {
		return &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Bucket: p.Bucket(), Key: key, Err: provider.ErrProviderClosed}
	}
	return ctx.Err()
}

func (p *Provider) fullPath(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	// Prevent path traversal.
	clean := strings.TrimPrefix(filepath.Clean("/"+key), "/")
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key path")
	}
	return filepath.Join(p.baseDir, filepath.FromSlash(clean)), nil
}

func (p *Provider) collectKeys(prefix string) ([]string, error) {
	st, err := os.Stat(p.baseDir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", p.baseDir)
	}

	var keys []string
	err = filepath.WalkDir(p.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.baseDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(filepath.Base(rel), ".bucketwalk-put-") {
			return nil
		}
		if strings.HasPrefix(rel, prefix) {
			keys = append(keys, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Bucket: p.Bucket(), Key: key, Err: err}
	switch {
	case os.IsNotExist(err) && key == "":
		wrapped.Err = provider.ErrBucketNotFound
	case os.IsNotExist(err):
		wrapped.Err = provider.ErrNotFound
	case os.IsPermission(err):
		wrapped.Err = provider.ErrAccessDenied
	}
	return wrapped
}
