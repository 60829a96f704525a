// Package comments submits comments with an optimistic comment count.
package comments

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ripixel/fitglue-community/pkg/domain/social"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
	"github.com/ripixel/fitglue-community/pkg/querycache"
)

// Saver persists a validated comment.
type Saver interface {
	SaveComment(ctx context.Context, c social.NewComment) (*social.Comment, error)
}

// Options configures a Composer.
type Options struct {
	// Cache groups for the post and the author's activity are marked stale after each write.
	Cache   *querycache.Cache
	OnError func(err error)
	Logger  *slog.Logger
}

// Composer writes comments on one post as one author.
//
// The displayed count is the server baseline plus comments still being
// written. A failed write removes exactly the unit it added.
type Composer struct {
	saver    Saver
	postID   string
	authorID string
	cache    *querycache.Cache
	onError  func(error)
	logger   *slog.Logger

	mu       sync.Mutex
	baseline int64
	inflight int64
}

// NewComposer seeds the composer with the post's stored comment count.
func NewComposer(saver Saver, postID, authorID string, commentCount int64, opts Options) *Composer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		saver:    saver,
		postID:   postID,
		authorID: authorID,
		cache:    opts.Cache,
		onError:  opts.OnError,
		logger:   logger.With("component", "comment_composer", "post_id", postID),
		baseline: commentCount,
	}
}

// Count is the comment count to display.
func (c *Composer) Count() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseline + c.inflight
}

// Reconcile replaces the server baseline with freshly loaded data.
func (c *Composer) Reconcile(commentCount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseline = commentCount
}

// AddComment validates and writes a comment. The count is raised before the
// write and lowered again if it fails; a nil comment always comes with an error.
func (c *Composer) AddComment(ctx context.Context, text, parentID, parentAuthorID string) (*social.Comment, error) {
	in, err := social.NewComment{
		PostID:         c.postID,
		AuthorID:       c.authorID,
		Text:           text,
		ParentID:       parentID,
		ParentAuthorID: parentAuthorID,
	}.Validate()
	if err != nil {
		c.report(err)
		return nil, err
	}

	c.adjust(1, 0)
	created, err := c.saver.SaveComment(ctx, in)
	if err != nil {
		c.adjust(-1, 0)
		wrapped := fgerrors.ErrWriteFailed.WithCause(err).WithMetadata("post_id", c.postID)
		c.logger.Warn("Comment write failed", "error", err)
		c.report(wrapped)
		return nil, wrapped
	}
	c.adjust(-1, 1)

	if c.cache != nil {
		n := c.cache.Invalidate(
			querycache.CommentsGroup(c.postID),
			querycache.PostGroup(c.postID),
			querycache.ActivityGroup(c.authorID),
		)
		c.logger.Debug("Marked cached queries stale", "entries", n)
	}
	return created, nil
}

func (c *Composer) adjust(inflight, baseline int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight += inflight
	c.baseline += baseline
}

func (c *Composer) report(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}
