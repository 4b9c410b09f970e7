// Package output reports scan progress as console text or JSONL records.
//
// JSONL output is structured as typed record envelopes containing item
// events, errors and a final summary. Each line is a self-contained JSON
// object that can be parsed independently.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: bucketwalk.<type>.v<version>
const (
	// TypeItem identifies per-item action records.
	TypeItem = "bucketwalk.item.v1"

	// TypeError identifies error records.
	TypeError = "bucketwalk.error.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "bucketwalk.summary.v1"
)

// Record is the envelope for all JSONL output.
type Record struct {
	// Type identifies the record type (e.g., "bucketwalk.item.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// RunID is the correlation ID for this scan.
	RunID string `json:"run_id"`

	// Provider identifies the storage provider (e.g., "s3", "file").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// Operations reported in ItemRecord.Op.
const (
	OpList   = "list"
	OpCopy   = "copy"
	OpDelete = "delete"
)

// Statuses reported in ItemRecord.Status.
const (
	// StatusStarted is emitted before the effect is attempted.
	StatusStarted = "started"

	// StatusDone is emitted after the effect succeeded.
	StatusDone = "done"
)

// ItemRecord is the data payload for one action event on one item.
type ItemRecord struct {
	// Op is the action applied (list, copy, delete).
	Op string `json:"op"`

	// Status is started or done.
	Status string `json:"status"`

	// Bucket is the source bucket.
	Bucket string `json:"bucket"`

	// Key is the source object key.
	Key string `json:"key"`

	// Size is the object size in bytes.
	Size int64 `json:"size"`

	// ETag is the entity tag reported by the listing, if any.
	ETag string `json:"etag,omitempty"`

	// LastModified is when the object was last modified.
	LastModified time.Time `json:"last_modified,omitzero"`

	// DestBucket is the copy destination bucket.
	DestBucket string `json:"dest_bucket,omitempty"`

	// DestKey is the copy destination key.
	DestKey string `json:"dest_key,omitempty"`
}

// ErrorRecord is the data payload for errors.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Op is the action that was running, if applicable.
	Op string `json:"op,omitempty"`

	// Bucket is the bucket being scanned.
	Bucket string `json:"bucket,omitempty"`

	// Key is the object key related to this error, if applicable.
	Key string `json:"key,omitempty"`

	// Page is the 1-based listing page of the failed item, if applicable.
	Page int `json:"page,omitempty"`
}

// Error codes for ErrorRecord.
const (
	// ErrCodeAccessDenied indicates permission failure.
	ErrCodeAccessDenied = "ACCESS_DENIED"

	// ErrCodeNotFound indicates the object or bucket was not found.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeTimeout indicates an operation timed out or was cancelled.
	ErrCodeTimeout = "TIMEOUT"

	// ErrCodeThrottled indicates rate limiting.
	ErrCodeThrottled = "THROTTLED"

	// ErrCodeProviderUnavailable indicates the provider could not be reached.
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal = "INTERNAL"
)

// SummaryRecord is the data payload for final summaries.
type SummaryRecord struct {
	// Op is the action the scan applied.
	Op string `json:"op"`

	// Bucket is the scanned bucket.
	Bucket string `json:"bucket"`

	// Pages is the number of listing pages fetched.
	Pages int `json:"pages"`

	// Items is the number of items the action completed for.
	Items int64 `json:"items"`

	// Skipped is the number of items rejected by the key filter.
	Skipped int64 `json:"skipped"`

	// BytesTotal is the cumulative size of processed items in bytes.
	BytesTotal int64 `json:"bytes_total"`

	// Duration is the total scan duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`

	// Complete is false when the scan stopped on an error.
	Complete bool `json:"complete"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
