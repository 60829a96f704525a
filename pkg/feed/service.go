// Package feed is the server side of the community feed: signed page tokens
// over the activity store, idempotent reactions, comment writes and post
// lookups, with notifications published after state actually changes.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	shared "github.com/ripixel/fitglue-community/pkg"
	"github.com/ripixel/fitglue-community/pkg/domain/social"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
	"github.com/ripixel/fitglue-community/pkg/pagination"
)

// DefaultMaxPageSize caps page_size on incoming requests.
const DefaultMaxPageSize = 50

// Options configures a Service.
type Options struct {
	PageSize    int
	MaxPageSize int
	Logger      *slog.Logger
}

// Service implements the feed operations exposed by the HTTP functions.
type Service struct {
	store    shared.ActivityStore
	notifier shared.Notifier
	tokens   *pagination.TokenCodec
	logger   *slog.Logger

	pageSize    int
	maxPageSize int

	pages singleflight.Group
	now   func() time.Time
}

// ActivityPage is one page of a user's activity plus the tokens to move from it.
type ActivityPage struct {
	Items         []social.ActivityItem `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
	PrevPageToken string                `json:"prev_page_token,omitempty"`
}

// NewService wires a Service. notifier may be nil, in which case nothing is published.
func NewService(store shared.ActivityStore, notifier shared.Notifier, tokens *pagination.TokenCodec, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	maxPageSize := opts.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return &Service{
		store:       store,
		notifier:    notifier,
		tokens:      tokens,
		logger:      logger.With("component", "feed"),
		pageSize:    pageSize,
		maxPageSize: maxPageSize,
		now:         time.Now,
	}
}

// Store exposes the backing store for callers that need direct reads.
func (s *Service) Store() shared.ActivityStore {
	return s.store
}

// ActivityPage returns the page of userID's activity addressed by pageToken.
// An empty token is the first page. Identical concurrent requests share one
// store fetch.
func (s *Service) ActivityPage(ctx context.Context, userID, pageToken string, pageSize int) (*ActivityPage, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fgerrors.ErrValidation.WithMessage("user_id is required")
	}
	size := s.clamp(pageSize)

	var cursor *social.SortKey
	dir := pagination.DirectionNext
	if pageToken != "" {
		tok, err := s.tokens.Decode(pageToken)
		if err != nil {
			return nil, err
		}
		cursor = &tok.Key
		dir = tok.Dir
	}

	// The shared fetch outlives any single caller; each caller only waits on its own ctx.
	key := userID + "|" + strconv.Itoa(size) + "|" + pageToken
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.pages.DoChan(key, func() (interface{}, error) {
		return s.fetchPage(fetchCtx, userID, cursor, dir, size)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		s.logger.Debug("Shared in-flight activity fetch", "user_id", userID)
	}
	page := res.Val.(*ActivityPage)
	return &ActivityPage{
		Items:         append([]social.ActivityItem(nil), page.Items...),
		NextPageToken: page.NextPageToken,
		PrevPageToken: page.PrevPageToken,
	}, nil
}

func (s *Service) fetchPage(ctx context.Context, userID string, cursor *social.SortKey, dir pagination.Direction, size int) (*ActivityPage, error) {
	items, err := s.store.FetchActivityPage(ctx, userID, cursor, dir, size)
	if err != nil {
		return nil, fgerrors.ErrFetchFailed.WithCause(err).WithMetadata("user_id", userID)
	}

	// A short backward page means the head was reached; serve the real first page instead.
	if cursor != nil && dir == pagination.DirectionPrev && len(items) < size {
		cursor = nil
		dir = pagination.DirectionNext
		items, err = s.store.FetchActivityPage(ctx, userID, nil, dir, size)
		if err != nil {
			return nil, fgerrors.ErrFetchFailed.WithCause(err).WithMetadata("user_id", userID)
		}
	}

	page := &ActivityPage{Items: items}
	if len(items) == 0 {
		return page, nil
	}

	if len(items) == size || dir == pagination.DirectionPrev {
		last := items[len(items)-1].Key()
		if page.NextPageToken, err = s.tokens.Encode(pagination.PageToken{Key: last, Dir: pagination.DirectionNext}); err != nil {
			return nil, fmt.Errorf("encode next token: %w", err)
		}
	}
	if cursor != nil {
		first := items[0].Key()
		if page.PrevPageToken, err = s.tokens.Encode(pagination.PageToken{Key: first, Dir: pagination.DirectionPrev}); err != nil {
			return nil, fmt.Errorf("encode prev token: %w", err)
		}
	}
	return page, nil
}

// storageErr classifies a raw store failure. Errors that already carry a code pass through.
func storageErr(op string, err error) error {
	var fgErr *fgerrors.FitGlueError
	switch {
	case errors.As(err, &fgErr):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fgerrors.ErrTimeout.WithMessage(op + " timed out").WithCause(err)
	}
	return fgerrors.ErrStorageError.WithMessage(op + " failed").WithCause(err)
}

func (s *Service) clamp(pageSize int) int {
	switch {
	case pageSize <= 0:
		return s.pageSize
	case pageSize > s.maxPageSize:
		return s.maxPageSize
	}
	return pageSize
}

// SetReaction stores actorID's reaction to postID. Only a write that changed
// state is announced.
func (s *Service) SetReaction(ctx context.Context, postID, actorID string, value social.ReactionValue) (bool, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return false, storageErr("get post", err)
	}
	changed, err := s.store.SaveReaction(ctx, postID, actorID, value)
	if err != nil {
		return false, storageErr("save reaction", err)
	}
	if !changed {
		return false, nil
	}

	s.logger.Info("Reaction changed", "post_id", postID, "actor_id", actorID, "value", string(value))
	if s.notifier != nil {
		e := social.ReactionChanged{
			PostID:       postID,
			PostAuthorID: post.AuthorID,
			ActorID:      actorID,
			Value:        value,
			OccurredAt:   s.now().UTC(),
		}
		if err := s.notifier.NotifyReaction(ctx, e); err != nil {
			s.logger.Warn("Failed to publish reaction event", "post_id", postID, "error", err)
		}
	}
	return true, nil
}

// SaveReaction lets the service stand in as a reaction.Saver.
func (s *Service) SaveReaction(ctx context.Context, postID, actorID string, value social.ReactionValue) (bool, error) {
	return s.SetReaction(ctx, postID, actorID, value)
}

// AddComment validates and stores a comment, then announces it.
func (s *Service) AddComment(ctx context.Context, in social.NewComment) (*social.Comment, error) {
	in, err := in.Validate()
	if err != nil {
		return nil, err
	}
	post, err := s.store.GetPost(ctx, in.PostID)
	if err != nil {
		return nil, storageErr("get post", err)
	}
	created, err := s.store.SaveComment(ctx, in)
	if err != nil {
		return nil, storageErr("save comment", err)
	}

	s.logger.Info("Comment created", "post_id", in.PostID, "comment_id", created.ID, "author_id", in.AuthorID)
	if s.notifier != nil {
		if err := s.notifier.NotifyComment(ctx, social.CommentCreated{Comment: *created, PostAuthorID: post.AuthorID}); err != nil {
			s.logger.Warn("Failed to publish comment event", "comment_id", created.ID, "error", err)
		}
	}
	return created, nil
}

// SaveComment lets the service stand in as a comments.Saver.
func (s *Service) SaveComment(ctx context.Context, in social.NewComment) (*social.Comment, error) {
	return s.AddComment(ctx, in)
}

// GetPost resolves postID. A missing post is an Absent lookup, not an error.
func (s *Service) GetPost(ctx context.Context, postID string) (social.Lookup[*social.Post], error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		if fgerrors.IsNotFound(err) {
			return social.Absent[*social.Post](fgerrors.ErrPostNotFound.WithMetadata("post_id", postID)), nil
		}
		return social.Lookup[*social.Post]{}, storageErr("get post", err)
	}
	return social.Found(post), nil
}

// FetchActivityPage passes straight through to the store so a Pager can run
// against the service.
func (s *Service) FetchActivityPage(ctx context.Context, userID string, cursor *social.SortKey, dir pagination.Direction, limit int) ([]social.ActivityItem, error) {
	return s.store.FetchActivityPage(ctx, userID, cursor, dir, s.clamp(limit))
}

// GetReaction passes through to the store.
func (s *Service) GetReaction(ctx context.Context, postID, actorID string) (social.ReactionValue, error) {
	return s.store.GetReaction(ctx, postID, actorID)
}
