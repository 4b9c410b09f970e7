package output

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
)

// TextWriter prints the human console format:
//
//	Object key: <key>        list
//	Object size: <bytes>
//	Copying object: <key>    copy started
//	Copied object: <key>     copy done
//	Deleting object: <key>   delete started
//	Deleted object: <key>    delete done
//
// Errors and summaries are not printed; commands report those on stderr.
type TextWriter struct {
	w      io.Writer
	mu     sync.Mutex
	closed bool
}

// NewTextWriter creates a console writer on w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// WriteItem prints the console lines for one item event.
func (tw *TextWriter) WriteItem(ctx context.Context, item *ItemRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line := textLine(item)
	if line == "" {
		return nil
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.closed {
		return ErrWriterClosed
	}
	if err := writeAll(tw.w, []byte(line)); err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	return nil
}

// WriteError is a no-op for console output.
func (tw *TextWriter) WriteError(context.Context, *ErrorRecord) error {
	return nil
}

// WriteSummary is a no-op for console output.
func (tw *TextWriter) WriteSummary(context.Context, *SummaryRecord) error {
	return nil
}

// Close marks the writer as closed. The underlying writer is not closed.
func (tw *TextWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.closed = true
	return nil
}

func textLine(item *ItemRecord) string {
	switch item.Op {
	case OpList:
		if item.Status != StatusDone {
			return ""
		}
		return "Object key: " + item.Key + "\nObject size: " + strconv.FormatInt(item.Size, 10) + "\n"
	case OpCopy:
		if item.Status == StatusStarted {
			return fmt.Sprintf("Copying object: %s\n", item.Key)
		}
		return fmt.Sprintf("Copied object: %s\n", item.Key)
	case OpDelete:
		if item.Status == StatusStarted {
			return fmt.Sprintf("Deleting object: %s\n", item.Key)
		}
		return fmt.Sprintf("Deleted object: %s\n", item.Key)
	default:
		return ""
	}
}

var _ Writer = (*TextWriter)(nil)
