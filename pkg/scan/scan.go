// Package scan enumerates every object in a bucket page by page and applies
// an action to each one.
//
// Scanning is strictly sequential: one listing request at a time, one action
// at a time, items in the order the provider returns them. A listing failure
// or an action failure stops the scan; nothing is retried or skipped.
package scan

import (
	"context"
	"strings"
	"time"

	"github.com/3leaps/bucketwalk/pkg/match"
	"github.com/3leaps/bucketwalk/pkg/provider"
)

// Item is one object returned by a listing page.
type Item = provider.ObjectSummary

// Action is applied to every scanned item.
type Action func(ctx context.Context, item Item) error

// Config configures a scan. The zero value scans the whole bucket with the
// provider's page size, no rate limit and no key filter.
type Config struct {
	// Prefix restricts the listing to keys with this prefix.
	Prefix string

	// PageSize is the maximum number of keys per page.
	// Zero uses the provider default.
	PageSize int

	// RateLimit is the maximum listing requests per second.
	// Zero means unlimited.
	RateLimit float64

	// Filter skips keys that do not match. Nil matches everything.
	Filter *match.Matcher
}

// Summary contains aggregate statistics for a scan. On failure it reflects
// the work completed before the failure.
type Summary struct {
	// Bucket is the scanned bucket.
	Bucket string

	// Pages is the number of listing pages fetched.
	Pages int

	// Items is the number of items the action completed for.
	Items int64

	// Bytes is the cumulative size of those items.
	Bytes int64

	// Skipped is the number of items rejected by the filter.
	Skipped int64

	// Duration is the wall time of the scan.
	Duration time.Duration
}

// Scanner drives a paginated scan over one provider.
type Scanner struct {
	provider provider.Provider
	config   Config
}

// New creates a Scanner for p's bucket.
func New(p provider.Provider, cfg Config) (*Scanner, error) {
	if p == nil {
		return nil, ErrNoProvider
	}
	if strings.TrimSpace(p.Bucket()) == "" {
		return nil, ErrEmptyBucket
	}
	return &Scanner{provider: p, config: cfg}, nil
}

// Bucket returns the scanned bucket name.
func (s *Scanner) Bucket() string {
	return s.provider.Bucket()
}

// Run lists the bucket to completion and calls action once per item.
//
// A listing error is returned unchanged. An action error is returned as an
// *ItemError naming the failed key. The summary is always non-nil.
func (s *Scanner) Run(ctx context.Context, action Action) (*Summary, error) {
	start := time.Now()
	sum := &Summary{Bucket: s.provider.Bucket()}
	defer func() { sum.Duration = time.Since(start) }()

	pager := NewPager(s.provider, s.config)
	for pager.HasMore() {
		page, err := pager.Next(ctx)
		if err != nil {
			return sum, err
		}
		sum.Pages = pager.Pages()

		for i, item := range page.Objects {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			if !s.config.Filter.Match(item.Key) {
				sum.Skipped++
				continue
			}
			if err := action(ctx, item); err != nil {
				return sum, &ItemError{
					Bucket: sum.Bucket,
					Key:    item.Key,
					Page:   sum.Pages,
					Index:  i,
					Err:    err,
				}
			}
			sum.Items++
			sum.Bytes += item.Size
		}
	}
	return sum, nil
}

// FirstPage issues exactly one listing request and returns its page.
//
// The continuation token is never followed, even when the page is truncated.
func FirstPage(ctx context.Context, p provider.Provider, cfg Config) (*provider.ListResult, error) {
	if p == nil {
		return nil, ErrNoProvider
	}
	return p.List(ctx, provider.ListOptions{
		Prefix:  cfg.Prefix,
		MaxKeys: cfg.PageSize,
	})
}
