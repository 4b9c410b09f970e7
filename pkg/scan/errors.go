package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingContinuationToken indicates the provider reported a truncated
	// page without a token to fetch the next one.
	ErrMissingContinuationToken = errors.New("truncated page without continuation token")

	// ErrPagerDone is returned by Pager.Next once the listing is exhausted.
	ErrPagerDone = errors.New("pager done")

	// ErrNoProvider is returned when a scan is built without a provider.
	ErrNoProvider = errors.New("provider is required")

	// ErrEmptyBucket is returned when the provider is not bound to a bucket.
	ErrEmptyBucket = errors.New("bucket name is required")
)

// ItemError reports an action failure for a single item.
//
// Page is 1-based; Index is the item's position within that page.
type ItemError struct {
	Bucket string
	Key    string
	Page   int
	Index  int
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s/%s (page %d, item %d): %v", e.Bucket, e.Key, e.Page, e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// IsItemError reports whether err came from an action rather than from listing.
func IsItemError(err error) bool {
	var itemErr *ItemError
	return errors.As(err, &itemErr)
}
