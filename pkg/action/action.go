// Package action provides the per-item effects a scan applies: report,
// copy and delete.
//
// Every action emits a started event before its effect and a done event
// after it through an output.Writer. Report emits only the done event.
package action

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/3leaps/bucketwalk/pkg/output"
	"github.com/3leaps/bucketwalk/pkg/provider"
	"github.com/3leaps/bucketwalk/pkg/scan"
)

var (
	// ErrCopyUnsupported is returned when the provider cannot copy objects.
	ErrCopyUnsupported = errors.New("provider does not support copy")

	// ErrDeleteUnsupported is returned when the provider cannot delete objects.
	ErrDeleteUnsupported = errors.New("provider does not support delete")

	// ErrSameLocation is returned when a copy would overwrite its own source.
	ErrSameLocation = errors.New("copy destination is the source object")
)

// Report returns an action that records each item's key and size.
func Report(bucket string, w output.Writer) scan.Action {
	return func(ctx context.Context, item scan.Item) error {
		return w.WriteItem(ctx, itemRecord(output.OpList, output.StatusDone, bucket, item))
	}
}

// CopyOptions configures a copy action.
type CopyOptions struct {
	// DestBucket receives the copies (required).
	DestBucket string

	// Keys remaps destination keys. Nil keeps the source key.
	Keys *KeyTemplate
}

// Copy returns an action that copies each item from p's bucket to
// opts.DestBucket. The source object is left in place.
func Copy(p provider.Provider, opts CopyOptions, w output.Writer) (scan.Action, error) {
	copier, ok := p.(provider.ObjectCopier)
	if !ok {
		return nil, ErrCopyUnsupported
	}
	if strings.TrimSpace(opts.DestBucket) == "" {
		return nil, fmt.Errorf("destination bucket is required")
	}
	bucket := p.Bucket()

	return func(ctx context.Context, item scan.Item) error {
		dstKey, err := opts.Keys.Apply(item.Key)
		if err != nil {
			return fmt.Errorf("map key: %w", err)
		}
		if opts.DestBucket == bucket && dstKey == item.Key {
			return ErrSameLocation
		}

		rec := itemRecord(output.OpCopy, output.StatusStarted, bucket, item)
		rec.DestBucket = opts.DestBucket
		rec.DestKey = dstKey
		if err := w.WriteItem(ctx, rec); err != nil {
			return err
		}

		if err := copier.CopyObject(ctx, item.Key, opts.DestBucket, dstKey); err != nil {
			return err
		}

		done := *rec
		done.Status = output.StatusDone
		return w.WriteItem(ctx, &done)
	}, nil
}

// Delete returns an action that removes each item from p's bucket.
func Delete(p provider.Provider, w output.Writer) (scan.Action, error) {
	deleter, ok := p.(provider.ObjectDeleter)
	if !ok {
		return nil, ErrDeleteUnsupported
	}
	bucket := p.Bucket()

	return func(ctx context.Context, item scan.Item) error {
		if err := w.WriteItem(ctx, itemRecord(output.OpDelete, output.StatusStarted, bucket, item)); err != nil {
			return err
		}
		if err := deleter.DeleteObject(ctx, item.Key); err != nil {
			return err
		}
		return w.WriteItem(ctx, itemRecord(output.OpDelete, output.StatusDone, bucket, item))
	}, nil
}

func itemRecord(op, status, bucket string, item scan.Item) *output.ItemRecord {
	return &output.ItemRecord{
		Op:           op,
		Status:       status,
		Bucket:       bucket,
		Key:          item.Key,
		Size:         item.Size,
		ETag:         item.ETag,
		LastModified: item.LastModified,
	}
}
