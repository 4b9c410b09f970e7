package action

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/bucketwalk/pkg/output"
	"github.com/3leaps/bucketwalk/pkg/provider"
	"github.com/3leaps/bucketwalk/pkg/provider/file"
	"github.com/3leaps/bucketwalk/pkg/scan"
)

// newBuckets creates a source bucket with keys and an empty destination
// bucket next to it.
func newBuckets(t *testing.T, keys ...string) (srcRoot, dstRoot string, p *file.Provider) {
	t.Helper()
	parent := t.TempDir()
	srcRoot = filepath.Join(parent, "source")
	dstRoot = filepath.Join(parent, "destination")
	for _, k := range keys {
		full := filepath.Join(srcRoot, filepath.FromSlash(k))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("body:"+k), 0o644))
	}
	require.NoError(t, os.MkdirAll(srcRoot, 0o755))
	require.NoError(t, os.MkdirAll(dstRoot, 0o755))

	p, err := file.New(file.Config{BaseDir: srcRoot, MaxKeys: 1})
	require.NoError(t, err)
	return srcRoot, dstRoot, p
}

func listKeys(t *testing.T, root string) []string {
	t.Helper()
	p, err := file.New(file.Config{BaseDir: root})
	require.NoError(t, err)

	var keys []string
	s, err := scan.New(p, scan.Config{})
	require.NoError(t, err)
	_, err = s.Run(context.Background(), func(_ context.Context, item scan.Item) error {
		keys = append(keys, item.Key)
		return nil
	})
	require.NoError(t, err)
	return keys
}

func run(t *testing.T, p provider.Provider, act scan.Action) *scan.Summary {
	t.Helper()
	s, err := scan.New(p, scan.Config{})
	require.NoError(t, err)
	sum, err := s.Run(context.Background(), act)
	require.NoError(t, err)
	return sum
}

func TestReport(t *testing.T) {
	_, _, p := newBuckets(t, "a/b.txt", "c.txt")
	var buf bytes.Buffer

	sum := run(t, p, Report(p.Bucket(), output.NewTextWriter(&buf)))

	assert.Equal(t, int64(2), sum.Items)
	assert.Equal(t, 2, sum.Pages)
	assert.Equal(t,
		"Object key: a/b.txt\nObject size: 12\nObject key: c.txt\nObject size: 10\n",
		buf.String())
}

func TestCopy_SameKeyKeepsSource(t *testing.T) {
	srcRoot, dstRoot, p := newBuckets(t, "a/b.txt")
	var buf bytes.Buffer

	act, err := Copy(p, CopyOptions{DestBucket: "destination"}, output.NewTextWriter(&buf))
	require.NoError(t, err)
	run(t, p, act)

	data, err := os.ReadFile(filepath.Join(dstRoot, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "body:a/b.txt", string(data))
	assert.Equal(t, []string{"a/b.txt"}, listKeys(t, srcRoot), "copy, not move")
	assert.Equal(t, "Copying object: a/b.txt\nCopied object: a/b.txt\n", buf.String())
}

func TestCopy_RemappedKey(t *testing.T) {
	_, dstRoot, p := newBuckets(t, "2024/01/report.csv")
	tpl, err := CompileKeyTemplate("archive/{dir[0]}/{filename}")
	require.NoError(t, err)

	var buf bytes.Buffer
	w := output.NewJSONLWriter(&buf, "run-1", "file")
	act, err := Copy(p, CopyOptions{DestBucket: "destination", Keys: tpl}, w)
	require.NoError(t, err)
	run(t, p, act)

	assert.Equal(t, []string{"archive/2024/report.csv"}, listKeys(t, dstRoot))
	assert.Contains(t, buf.String(), `"dest_key":"archive/2024/report.csv"`)
}

func TestCopy_Validation(t *testing.T) {
	_, _, p := newBuckets(t, "a.txt")
	w := output.NewTextWriter(&bytes.Buffer{})

	_, err := Copy(p, CopyOptions{}, w)
	assert.Error(t, err)

	_, err = Copy(listOnly{}, CopyOptions{DestBucket: "d"}, w)
	assert.ErrorIs(t, err, ErrCopyUnsupported)

	act, err := Copy(p, CopyOptions{DestBucket: "source"}, w)
	require.NoError(t, err)
	s, err := scan.New(p, scan.Config{})
	require.NoError(t, err)
	_, err = s.Run(context.Background(), act)
	assert.ErrorIs(t, err, ErrSameLocation)
}

func TestCopy_FailureStopsBeforeDoneEvent(t *testing.T) {
	_, _, p := newBuckets(t, "a.txt", "b.txt")
	var buf bytes.Buffer

	act, err := Copy(p, CopyOptions{DestBucket: "destination"}, output.NewTextWriter(&buf))
	require.NoError(t, err)
	require.NoError(t, p.Close())

	err = act(context.Background(), scan.Item{Key: "a.txt"})
	require.Error(t, err)
	assert.True(t, provider.IsClosed(err))
	assert.Equal(t, "Copying object: a.txt\n", buf.String())
}

func TestDelete_RemovesKey(t *testing.T) {
	srcRoot, _, p := newBuckets(t, "a/b.txt", "keep/c.txt")
	var buf bytes.Buffer

	act, err := Delete(p, output.NewTextWriter(&buf))
	require.NoError(t, err)

	only, err := file.New(file.Config{BaseDir: srcRoot})
	require.NoError(t, err)
	s, err := scan.New(only, scan.Config{Prefix: "a/"})
	require.NoError(t, err)
	_, err = s.Run(context.Background(), act)
	require.NoError(t, err)

	assert.Equal(t, []string{"keep/c.txt"}, listKeys(t, srcRoot))
	assert.Equal(t, "Deleting object: a/b.txt\nDeleted object: a/b.txt\n", buf.String())
}

func TestDelete_Unsupported(t *testing.T) {
	_, err := Delete(listOnly{}, output.NewTextWriter(&bytes.Buffer{}))
	assert.ErrorIs(t, err, ErrDeleteUnsupported)
}

func TestAction_WriterFailure(t *testing.T) {
	_, _, p := newBuckets(t, "a.txt")
	w := output.NewTextWriter(&bytes.Buffer{})
	require.NoError(t, w.Close())

	act, err := Delete(p, w)
	require.NoError(t, err)
	err = act(context.Background(), scan.Item{Key: "a.txt"})
	assert.True(t, errors.Is(err, output.ErrWriterClosed))
}

// listOnly is a provider without copy or delete capabilities.
type listOnly struct{}

func (listOnly) Bucket() string { return "list-only" }
func (listOnly) Close() error   { return nil }
func (listOnly) List(context.Context, provider.ListOptions) (*provider.ListResult, error) {
	return &provider.ListResult{}, nil
}
