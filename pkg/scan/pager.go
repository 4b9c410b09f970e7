package scan

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/3leaps/bucketwalk/pkg/provider"
)

// State is the pagination state of a Pager.
type State int

const (
	// StateHasMore means another listing request is due.
	StateHasMore State = iota

	// StateDone means the listing is exhausted or failed.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateHasMore:
		return "has_more"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Pager walks a bucket listing one page at a time.
//
// The first request carries no continuation token. Each following request
// carries exactly the token returned by the previous page; prefix and page
// size never change between requests. A Pager cannot be rewound.
type Pager struct {
	provider provider.Provider
	opts     provider.ListOptions
	limiter  *rate.Limiter
	state    State
	pages    int
}

// NewPager creates a Pager positioned before the first page.
func NewPager(p provider.Provider, cfg Config) *Pager {
	pg := &Pager{
		provider: p,
		opts: provider.ListOptions{
			Prefix:  cfg.Prefix,
			MaxKeys: cfg.PageSize,
		},
		state: StateHasMore,
	}
	if cfg.RateLimit > 0 {
		pg.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return pg
}

// State returns the current state.
func (p *Pager) State() State {
	return p.state
}

// HasMore reports whether Next will issue another request.
func (p *Pager) HasMore() bool {
	return p.state == StateHasMore
}

// Pages returns the number of pages fetched successfully.
func (p *Pager) Pages() int {
	return p.pages
}

// Next fetches the next page.
//
// Any error moves the Pager to StateDone; listing failures are returned as
// the provider reported them. Calling Next in StateDone returns ErrPagerDone
// without contacting the provider.
func (p *Pager) Next(ctx context.Context) (*provider.ListResult, error) {
	if p.state == StateDone {
		return nil, ErrPagerDone
	}
	if err := ctx.Err(); err != nil {
		p.state = StateDone
		return nil, err
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			p.state = StateDone
			return nil, err
		}
	}

	res, err := p.provider.List(ctx, p.opts)
	if err != nil {
		p.state = StateDone
		return nil, err
	}

	if !res.IsTruncated {
		p.state = StateDone
		p.pages++
		return res, nil
	}
	if res.ContinuationToken == "" {
		p.state = StateDone
		return nil, ErrMissingContinuationToken
	}

	p.opts.ContinuationToken = res.ContinuationToken
	p.pages++
	return res, nil
}
