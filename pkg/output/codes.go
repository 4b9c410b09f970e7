package output

import (
	"context"
	"errors"

	"github.com/3leaps/bucketwalk/pkg/provider"
)

// ClassifyError maps an error to an ErrorRecord code.
func ClassifyError(err error) string {
	switch {
	case provider.IsNotFound(err), provider.IsBucketNotFound(err):
		return ErrCodeNotFound
	case provider.IsAccessDenied(err), provider.IsInvalidCredentials(err):
		return ErrCodeAccessDenied
	case provider.IsThrottled(err):
		return ErrCodeThrottled
	case provider.IsProviderUnavailable(err):
		return ErrCodeProviderUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	default:
		return ErrCodeInternal
	}
}
