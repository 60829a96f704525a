// Package view is the client-side state for one mounted feed screen: a pager
// over the viewer's activity, a debounced like committer per post and an
// optimistic comment composer per post. Everything is owned by the View and
// released by Close.
package view

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ripixel/fitglue-community/pkg/comments"
	"github.com/ripixel/fitglue-community/pkg/domain/social"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
	"github.com/ripixel/fitglue-community/pkg/pagination"
	"github.com/ripixel/fitglue-community/pkg/querycache"
	"github.com/ripixel/fitglue-community/pkg/reaction"
)

const postCacheKey = "post"

// Viewer identifies who is looking at the feed.
type Viewer struct {
	UserID string
}

// Backend is what a View reads from and writes to. feed.Service satisfies it.
type Backend interface {
	pagination.Fetcher
	reaction.Saver
	comments.Saver
	GetPost(ctx context.Context, postID string) (social.Lookup[*social.Post], error)
	GetReaction(ctx context.Context, postID, actorID string) (social.ReactionValue, error)
}

// Options configures a View.
type Options struct {
	PageSize    int
	CommitDelay time.Duration
	// Clock overrides the committers' timer source.
	Clock   reaction.Clock
	Cache   *querycache.Cache
	OnError func(err error)
	Logger  *slog.Logger
}

// View owns the per-mount state for one viewer.
type View struct {
	viewer  Viewer
	backend Backend
	cache   *querycache.Cache
	opts    Options
	logger  *slog.Logger

	// ctx runs background writes; it is never cancelled so a write in
	// flight at Close still lands.
	ctx   context.Context
	pager *pagination.Pager

	mu         sync.Mutex
	committers map[string]*reaction.Committer
	composers  map[string]*comments.Composer
	closed     bool
}

// New mounts a view for viewer.
func New(viewer Viewer, backend Backend, opts Options) (*View, error) {
	if strings.TrimSpace(viewer.UserID) == "" {
		return nil, fgerrors.ErrValidation.WithMessage("viewer user id is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache := opts.Cache
	if cache == nil {
		cache = querycache.New(0)
	}
	return &View{
		viewer:  viewer,
		backend: backend,
		cache:   cache,
		opts:    opts,
		logger:  logger.With("component", "view", "viewer", viewer.UserID),
		ctx:     context.Background(),
		pager: pagination.NewPager(backend, viewer.UserID, pagination.Options{
			PageSize: opts.PageSize,
			Cache:    cache,
			Logger:   logger,
		}),
		committers: make(map[string]*reaction.Committer),
		composers:  make(map[string]*comments.Composer),
	}, nil
}

// Viewer returns who the view belongs to.
func (v *View) Viewer() Viewer { return v.viewer }

// Pager exposes the activity pager.
func (v *View) Pager() *pagination.Pager { return v.pager }

// Cache exposes the query cache shared by the view's components.
func (v *View) Cache() *querycache.Cache { return v.cache }

func (v *View) checkOpen() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return fgerrors.ErrCommitterClosed.WithMessage("view closed")
	}
	return nil
}

// CachedPost returns a fresh cached post without fetching. Anything else,
// including a post last seen as absent, is in the pending state.
func (v *View) CachedPost(postID string) social.Lookup[*social.Post] {
	if cached, ok := v.cache.Get(querycache.PostGroup(postID), postCacheKey); ok {
		return cached.(social.Lookup[*social.Post])
	}
	return social.Lookup[*social.Post]{State: social.LookupPending}
}

// Post resolves postID, serving a fresh cached lookup when there is one.
// Only found posts are cached; an absent post is asked for again next time.
func (v *View) Post(ctx context.Context, postID string) (social.Lookup[*social.Post], error) {
	if l := v.CachedPost(postID); l.State == social.LookupFound {
		return l, nil
	}
	l, err := v.backend.GetPost(ctx, postID)
	if err != nil {
		return social.Lookup[*social.Post]{State: social.LookupPending}, err
	}
	if l.State == social.LookupFound {
		v.cache.Put(querycache.PostGroup(postID), postCacheKey, l)
	}
	return l, nil
}

func (v *View) requirePost(ctx context.Context, postID string) (*social.Post, error) {
	l, err := v.Post(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := l.Err(); err != nil {
		return nil, err
	}
	return l.Value, nil
}

// Reaction returns the viewer's like committer for postID, creating it on
// first use from the stored reaction and like count.
func (v *View) Reaction(ctx context.Context, postID string) (*reaction.Committer, error) {
	if err := v.checkOpen(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	c, ok := v.committers[postID]
	v.mu.Unlock()
	if ok {
		return c, nil
	}

	post, err := v.requirePost(ctx, postID)
	if err != nil {
		return nil, err
	}
	current, err := v.backend.GetReaction(ctx, postID, v.viewer.UserID)
	if err != nil {
		return nil, err
	}

	created := reaction.NewCommitter(v.ctx, v.backend, postID, v.viewer.UserID, current.Liked(), post.LikeCount, reaction.Options{
		Delay:   v.opts.CommitDelay,
		Clock:   v.opts.Clock,
		OnError: v.report,
		OnCommit: func(value social.ReactionValue, changed bool) {
			if changed {
				v.cache.Invalidate(querycache.PostGroup(postID), querycache.ActivityGroup(v.viewer.UserID))
			}
		},
		Logger: v.logger,
	})

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		created.Close()
		return nil, fgerrors.ErrCommitterClosed.WithMessage("view closed")
	}
	if existing, ok := v.committers[postID]; ok {
		created.Close()
		return existing, nil
	}
	v.committers[postID] = created
	return created, nil
}

// ToggleLike flips the viewer's like on postID and returns the optimistic state.
func (v *View) ToggleLike(ctx context.Context, postID string) (reaction.Snapshot, error) {
	c, err := v.Reaction(ctx, postID)
	if err != nil {
		return reaction.Snapshot{}, err
	}
	return c.Toggle()
}

// SetLike sets the viewer's like on postID and returns the optimistic state.
func (v *View) SetLike(ctx context.Context, postID string, liked bool) (reaction.Snapshot, error) {
	c, err := v.Reaction(ctx, postID)
	if err != nil {
		return reaction.Snapshot{}, err
	}
	return c.Set(liked)
}

// Comments returns the viewer's comment composer for postID.
func (v *View) Comments(ctx context.Context, postID string) (*comments.Composer, error) {
	if err := v.checkOpen(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	c, ok := v.composers[postID]
	v.mu.Unlock()
	if ok {
		return c, nil
	}

	post, err := v.requirePost(ctx, postID)
	if err != nil {
		return nil, err
	}
	created := comments.NewComposer(v.backend, postID, v.viewer.UserID, post.CommentCount, comments.Options{
		Cache:   v.cache,
		OnError: v.report,
		Logger:  v.logger,
	})

	v.mu.Lock()
	defer v.mu.Unlock()
	if existing, ok := v.composers[postID]; ok {
		return existing, nil
	}
	v.composers[postID] = created
	return created, nil
}

// AddComment submits a comment on postID as the viewer.
func (v *View) AddComment(ctx context.Context, postID, text, parentID, parentAuthorID string) (*social.Comment, error) {
	c, err := v.Comments(ctx, postID)
	if err != nil {
		return nil, err
	}
	return c.AddComment(ctx, text, parentID, parentAuthorID)
}

// Wait blocks until every committer has settled.
func (v *View) Wait(ctx context.Context) error {
	v.mu.Lock()
	all := make([]*reaction.Committer, 0, len(v.committers))
	for _, c := range v.committers {
		all = append(all, c)
	}
	v.mu.Unlock()

	var errs []error
	for _, c := range all {
		if err := c.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close unmounts the view: pending like timers are cancelled, writes already
// in flight are allowed to finish.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	all := make([]*reaction.Committer, 0, len(v.committers))
	for _, c := range v.committers {
		all = append(all, c)
	}
	v.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
	v.logger.Debug("View closed", "committers", len(all))
}

func (v *View) report(err error) {
	v.logger.Warn("Background write failed", "error", err)
	if v.opts.OnError != nil {
		v.opts.OnError(err)
	}
}
