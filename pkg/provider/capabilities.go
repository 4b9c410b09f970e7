package provider

import "context"

// Optional provider capability interfaces.
//
// These interfaces are used for feature detection (type assertions). The core
// Provider interface remains intentionally small.

// ObjectCopier can copy objects from the provider's bucket into another bucket
// reachable through the same provider.
//
// The source object is left untouched.
type ObjectCopier interface {
	CopyObject(ctx context.Context, srcKey, dstBucket, dstKey string) error
}

// ObjectDeleter can delete objects.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}
