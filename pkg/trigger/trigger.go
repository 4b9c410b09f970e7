// Package trigger implements the single-shot invocation that lists one page
// of a bucket and returns it as text.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/3leaps/bucketwalk/pkg/provider"
	"github.com/3leaps/bucketwalk/pkg/scan"
)

// ErrNoOpener is returned when a Handler has no way to acquire a provider.
var ErrNoOpener = errors.New("provider opener is required")

// Opener acquires a provider for one invocation. The Handler closes it.
type Opener func(ctx context.Context) (provider.Provider, error)

// Observer receives the outcome of every invocation.
type Observer func(sum *scan.Summary, err error)

// Handler serves triggered invocations.
type Handler struct {
	open     Opener
	config   scan.Config
	observer Observer
}

// NewHandler creates a Handler. Only Prefix, PageSize and Filter of cfg apply.
func NewHandler(open Opener, cfg scan.Config) *Handler {
	return &Handler{open: open, config: cfg}
}

// WithObserver sets an observer called after each invocation.
// Returns the handler for method chaining.
func (h *Handler) WithObserver(o Observer) *Handler {
	h.observer = o
	return h
}

// Handle ignores input, issues exactly one listing request and returns
//
//	Objects in bucket <bucket>:
//	<key>
//	...
//
// for the first page only. On failure the text is "Error: <message>" and the
// error is returned as well so adapters can choose a status.
func (h *Handler) Handle(ctx context.Context, _ json.RawMessage) (string, error) {
	start := time.Now()
	sum := &scan.Summary{}
	text, err := h.handle(ctx, sum)
	sum.Duration = time.Since(start)
	if h != nil && h.observer != nil {
		h.observer(sum, err)
	}
	if err != nil {
		return "Error: " + err.Error(), err
	}
	return text, nil
}

func (h *Handler) handle(ctx context.Context, sum *scan.Summary) (_ string, err error) {
	if h == nil || h.open == nil {
		return "", ErrNoOpener
	}

	p, err := h.open(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sum.Bucket = p.Bucket()
	page, err := scan.FirstPage(ctx, p, h.config)
	if err != nil {
		return "", err
	}
	sum.Pages = 1
	for _, obj := range page.Objects {
		if h.config.Filter.Match(obj.Key) {
			sum.Items++
			sum.Bytes += obj.Size
		} else {
			sum.Skipped++
		}
	}
	return Format(sum.Bucket, page, h.config), nil
}

// Format renders a page as the triggered text response.
func Format(bucket string, page *provider.ListResult, cfg scan.Config) string {
	var b strings.Builder
	b.WriteString("Objects in bucket ")
	b.WriteString(bucket)
	b.WriteString(":\n")
	if page == nil {
		return b.String()
	}
	for _, obj := range page.Objects {
		if !cfg.Filter.Match(obj.Key) {
			continue
		}
		b.WriteString(obj.Key)
		b.WriteString("\n")
	}
	return b.String()
}
