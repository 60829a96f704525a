package pagination

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/ripixel/fitglue-community/pkg/domain/social"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
	"github.com/ripixel/fitglue-community/pkg/querycache"
)

// DefaultPageSize is the number of activity items per page.
const DefaultPageSize = 5

// Fetcher retrieves one page of a user's activity relative to a cursor.
// A nil cursor means the first page. Items come back in feed order.
type Fetcher interface {
	FetchActivityPage(ctx context.Context, userID string, cursor *social.SortKey, dir Direction, limit int) ([]social.ActivityItem, error)
}

// Page is a snapshot of what the pager is displaying.
type Page struct {
	Index   int
	Items   []social.ActivityItem
	HasNext bool
	HasPrev bool
}

// Options configures a Pager.
type Options struct {
	PageSize int
	// Cache, when set, holds fetched pages by index under the user's activity group.
	Cache  *querycache.Cache
	Logger *slog.Logger
}

// Pager drives bidirectional cursor pagination for one user's activity.
//
// Every transition bumps a sequence number and cancels the previous fetch;
// a fetch that settles after a newer transition started is discarded.
type Pager struct {
	fetcher  Fetcher
	userID   string
	pageSize int
	cache    *querycache.Cache
	logger   *slog.Logger

	cursors *CursorStore

	mu       sync.Mutex
	loaded   bool
	index    int
	items    []social.ActivityItem
	lastFull bool
	seq      uint64
	cancel   context.CancelFunc
}

// NewPager builds a pager for userID's activity.
func NewPager(fetcher Fetcher, userID string, opts Options) *Pager {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pager{
		fetcher:  fetcher,
		userID:   userID,
		pageSize: pageSize,
		cache:    opts.Cache,
		logger:   logger.With("component", "pager", "user_id", userID),
		cursors:  NewCursorStore(),
	}
}

// Current returns the page on display.
func (p *Pager) Current() Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentLocked()
}

// HasNext reports whether the last fetched page was full.
func (p *Pager) HasNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded && p.lastFull
}

// HasPrev reports whether there is a page before the current one.
func (p *Pager) HasPrev() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index > 0
}

// Cursors exposes the cursor sequence visited so far.
func (p *Pager) Cursors() *CursorStore {
	return p.cursors
}

// Load shows the first page. With a cache, a fresh copy of page 0 is reused;
// invalidating the user's activity group makes the next Load refetch it.
func (p *Pager) Load(ctx context.Context) (Page, error) {
	return p.transition(ctx, DirectionNext, 0, nil)
}

// Next moves to the following page. It is a no-op while HasNext is false.
func (p *Pager) Next(ctx context.Context) (Page, error) {
	p.mu.Lock()
	if !p.loaded {
		p.mu.Unlock()
		return p.Load(ctx)
	}
	if !p.lastFull {
		page := p.currentLocked()
		p.mu.Unlock()
		return page, nil
	}
	target := p.index + 1
	p.mu.Unlock()

	// Forward uses the last key of the page on display, stored at index+1.
	c, ok := p.cursors.Get(target)
	if !ok || c.Last == nil {
		return p.Current(), fgerrors.ErrInternal.WithMessage("missing cursor for next page")
	}
	return p.transition(ctx, DirectionNext, target, c.Last)
}

// Prev moves to the preceding page. It is a no-op on the first page.
func (p *Pager) Prev(ctx context.Context) (Page, error) {
	p.mu.Lock()
	if p.index == 0 {
		page := p.currentLocked()
		p.mu.Unlock()
		return page, nil
	}
	target := p.index - 1
	current := p.index
	p.mu.Unlock()

	if target == 0 {
		return p.transition(ctx, DirectionNext, 0, nil)
	}
	// Backward uses the first key of the page on display.
	c, ok := p.cursors.Get(current + 1)
	if !ok || c.First == nil {
		return p.Current(), fgerrors.ErrInternal.WithMessage("missing cursor for previous page")
	}
	return p.transition(ctx, DirectionPrev, target, c.First)
}

func (p *Pager) transition(ctx context.Context, dir Direction, target int, cursor *social.SortKey) (Page, error) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.seq++
	seq := p.seq
	fetchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	items, cached := p.cached(target)
	var err error
	if !cached {
		items, err = p.fetcher.FetchActivityPage(fetchCtx, p.userID, cursor, dir, p.pageSize)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if seq != p.seq {
		p.logger.Debug("Discarding superseded fetch", "target", target, "seq", seq, "current_seq", p.seq)
		return p.currentLocked(), fgerrors.ErrStaleFetch.WithMetadata("target", strconv.Itoa(target))
	}
	p.cancel = nil

	if err != nil {
		p.logger.Warn("Activity page fetch failed", "target", target, "direction", dir, "error", err)
		return p.currentLocked(), fgerrors.ErrFetchFailed.WithCause(err)
	}

	if len(items) == 0 {
		// Nothing beyond the cursor. Keep the current page and close the forward edge.
		if dir == DirectionNext {
			p.lastFull = false
		}
		if target == 0 {
			p.loaded = true
			p.index = 0
			p.items = nil
		}
		return p.currentLocked(), nil
	}

	if err := p.cursors.Set(target+1, CursorFromItems(items)); err != nil {
		return p.currentLocked(), fgerrors.ErrInternal.WithCause(err)
	}
	if p.cache != nil && !cached {
		p.cache.Put(querycache.ActivityGroup(p.userID), strconv.Itoa(target), items)
	}

	p.loaded = true
	p.index = target
	p.items = items
	p.lastFull = len(items) >= p.pageSize
	return p.currentLocked(), nil
}

func (p *Pager) cached(target int) ([]social.ActivityItem, bool) {
	if p.cache == nil {
		return nil, false
	}
	v, ok := p.cache.Get(querycache.ActivityGroup(p.userID), strconv.Itoa(target))
	if !ok {
		return nil, false
	}
	items, ok := v.([]social.ActivityItem)
	return items, ok
}

func (p *Pager) currentLocked() Page {
	items := make([]social.ActivityItem, len(p.items))
	copy(items, p.items)
	return Page{
		Index:   p.index,
		Items:   items,
		HasNext: p.loaded && p.lastFull,
		HasPrev: p.index > 0,
	}
}
