package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/bucketwalk/pkg/match"
	"github.com/3leaps/bucketwalk/pkg/provider"
)

// pagedProvider serves scripted pages and records every request.
type pagedProvider struct {
	bucket   string
	pages    []provider.ListResult
	failOn   int // 1-based request number to fail; 0 never fails
	failErr  error
	mu       sync.Mutex
	requests []provider.ListOptions
}

func (p *pagedProvider) Bucket() string { return p.bucket }
func (p *pagedProvider) Close() error   { return nil }

func (p *pagedProvider) List(_ context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, opts)
	n := len(p.requests)
	if n == p.failOn {
		return nil, p.failErr
	}
	if n > len(p.pages) {
		return nil, fmt.Errorf("unexpected request %d", n)
	}
	page := p.pages[n-1]
	return &page, nil
}

func items(keys ...string) []provider.ObjectSummary {
	out := make([]provider.ObjectSummary, len(keys))
	for i, k := range keys {
		out[i] = provider.ObjectSummary{Key: k, Size: int64(len(k))}
	}
	return out
}

// threePages returns 7 items over 3 pages.
func threePages() []provider.ListResult {
	return []provider.ListResult{
		{Objects: items("a", "b", "c"), ContinuationToken: "tok-1", IsTruncated: true},
		{Objects: items("d", "e"), ContinuationToken: "tok-2", IsTruncated: true},
		{Objects: items("f", "g")},
	}
}

func collect(keys *[]string) Action {
	return func(_ context.Context, item Item) error {
		*keys = append(*keys, item.Key)
		return nil
	}
}

func TestNew(t *testing.T) {
	_, err := New(nil, Config{})
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = New(&pagedProvider{bucket: " "}, Config{})
	assert.ErrorIs(t, err, ErrEmptyBucket)

	s, err := New(&pagedProvider{bucket: "b"}, Config{})
	require.NoError(t, err)
	assert.Equal(t, "b", s.Bucket())
}

func TestScanner_Run_AllItemsInOrder(t *testing.T) {
	p := &pagedProvider{bucket: "source", pages: threePages()}
	s, err := New(p, Config{})
	require.NoError(t, err)

	var keys []string
	sum, err := s.Run(context.Background(), collect(&keys))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g"}, keys)
	assert.Equal(t, "source", sum.Bucket)
	assert.Equal(t, 3, sum.Pages)
	assert.Equal(t, int64(7), sum.Items)
	assert.Equal(t, int64(7), sum.Bytes)
	assert.Zero(t, sum.Skipped)
}

func TestScanner_Run_RequestsCarryOnlyToken(t *testing.T) {
	p := &pagedProvider{bucket: "source", pages: threePages()}
	s, err := New(p, Config{})
	require.NoError(t, err)

	_, err = s.Run(context.Background(), func(context.Context, Item) error { return nil })
	require.NoError(t, err)

	assert.Equal(t, []provider.ListOptions{
		{},
		{ContinuationToken: "tok-1"},
		{ContinuationToken: "tok-2"},
	}, p.requests)
}

func TestScanner_Run_PrefixAndPageSizeRepeated(t *testing.T) {
	p := &pagedProvider{bucket: "source", pages: threePages()}
	s, err := New(p, Config{Prefix: "logs/", PageSize: 3})
	require.NoError(t, err)

	_, err = s.Run(context.Background(), func(context.Context, Item) error { return nil })
	require.NoError(t, err)

	require.Len(t, p.requests, 3)
	assert.Equal(t, provider.ListOptions{Prefix: "logs/", MaxKeys: 3}, p.requests[0])
	assert.Equal(t, provider.ListOptions{Prefix: "logs/", MaxKeys: 3, ContinuationToken: "tok-2"}, p.requests[2])
}

func TestScanner_Run_StopsWhenNotTruncated(t *testing.T) {
	p := &pagedProvider{bucket: "source", pages: []provider.ListResult{
		{Objects: items("only"), ContinuationToken: "ignored"},
	}}
	s, err := New(p, Config{})
	require.NoError(t, err)

	var keys []string
	_, err = s.Run(context.Background(), collect(&keys))
	require.NoError(t, err)
	assert.Len(t, p.requests, 1)
	assert.Equal(t, []string{"only"}, keys)
}

func TestScanner_Run_EmptyBucket(t *testing.T) {
	p := &pagedProvider{bucket: "source", pages: []provider.ListResult{{}}}
	s, err := New(p, Config{})
	require.NoError(t, err)

	called := false
	sum, err := s.Run(context.Background(), func(context.Context, Item) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, 1, sum.Pages)
	assert.Zero(t, sum.Items)
}

func TestScanner_Run_ListFailure(t *testing.T) {
	listErr := &provider.ProviderError{Op: "List", Provider: provider.ProviderS3, Bucket: "source", Err: provider.ErrAccessDenied}

	tests := []struct {
		name     string
		failOn   int
		wantKeys []string
		wantPage int
	}{
		{"first page", 1, nil, 0},
		{"second page", 2, []string{"a", "b", "c"}, 1},
		{"third page", 3, []string{"a", "b", "c", "d", "e"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &pagedProvider{bucket: "source", pages: threePages(), failOn: tt.failOn, failErr: listErr}
			s, err := New(p, Config{})
			require.NoError(t, err)

			var keys []string
			sum, err := s.Run(context.Background(), collect(&keys))
			require.Error(t, err)
			assert.Same(t, listErr, err, "listing errors are surfaced verbatim")
			assert.False(t, IsItemError(err))
			assert.Equal(t, tt.wantKeys, keys)
			assert.Equal(t, tt.wantPage, sum.Pages)
			assert.Len(t, p.requests, tt.failOn, "no retry after a failed listing")
		})
	}
}

func TestScanner_Run_ActionFailureAborts(t *testing.T) {
	p := &pagedProvider{bucket: "source", pages: threePages()}
	s, err := New(p, Config{})
	require.NoError(t, err)

	boom := errors.New("copy failed")
	var keys []string
	sum, err := s.Run(context.Background(), func(_ context.Context, item Item) error {
		if item.Key == "e" {
			return boom
		}
		keys = append(keys, item.Key)
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var itemErr *ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "source", itemErr.Bucket)
	assert.Equal(t, "e", itemErr.Key)
	assert.Equal(t, 2, itemErr.Page)
	assert.Equal(t, 1, itemErr.Index)
	assert.Equal(t, "source/e (page 2, item 1): copy failed", itemErr.Error())

	assert.Equal(t, []string{"a", "b", "c", "d"}, keys)
	assert.Equal(t, int64(4), sum.Items)
	assert.Len(t, p.requests, 2, "no listing after an action failure")
}

func TestScanner_Run_Filter(t *testing.T) {
	p := &pagedProvider{bucket: "source", pages: []provider.ListResult{
		{Objects: items("logs/1.log", "data/1.csv", "logs/2.log")},
	}}
	m, err := match.New(match.Config{Includes: []string{"logs/**"}})
	require.NoError(t, err)
	s, err := New(p, Config{Filter: m})
	require.NoError(t, err)

	var keys []string
	sum, err := s.Run(context.Background(), collect(&keys))
	require.NoError(t, err)
	assert.Equal(t, []string{"logs/1.log", "logs/2.log"}, keys)
	assert.Equal(t, int64(1), sum.Skipped)
	assert.Equal(t, int64(2), sum.Items)
}

func TestScanner_Run_Cancelled(t *testing.T) {
	p := &pagedProvider{bucket: "source", pages: threePages()}
	s, err := New(p, Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var keys []string
	_, err = s.Run(ctx, func(_ context.Context, item Item) error {
		keys = append(keys, item.Key)
		if item.Key == "b" {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Len(t, p.requests, 1)
}

func TestFirstPage_NeverFollowsToken(t *testing.T) {
	p := &pagedProvider{bucket: "source", pages: threePages()}

	page, err := FirstPage(context.Background(), p, Config{})
	require.NoError(t, err)
	assert.True(t, page.IsTruncated)
	assert.Len(t, page.Objects, 3)
	assert.Len(t, p.requests, 1)
	assert.Empty(t, p.requests[0].ContinuationToken)

	_, err = FirstPage(context.Background(), nil, Config{})
	assert.ErrorIs(t, err, ErrNoProvider)
}
