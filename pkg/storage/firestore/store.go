// Package firestore is the production community store on Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	fs "cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	shared "github.com/ripixel/fitglue-community/pkg"
	"github.com/ripixel/fitglue-community/pkg/domain/social"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
	"github.com/ripixel/fitglue-community/pkg/execution"
	"github.com/ripixel/fitglue-community/pkg/pagination"
)

const subcollectionReactions = "reactions"

// Store provides community persistence using Firestore.
type Store struct {
	Client *fs.Client
	now    func() time.Time
}

var _ shared.Database = (*Store)(nil)

func NewStore(client *fs.Client) *Store {
	return &Store{Client: client, now: time.Now}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.Client.Close()
}

func (s *Store) posts() *fs.CollectionRef    { return s.Client.Collection(shared.CollectionPosts) }
func (s *Store) comments() *fs.CollectionRef { return s.Client.Collection(shared.CollectionComments) }
func (s *Store) activity() *fs.CollectionRef { return s.Client.Collection(shared.CollectionActivity) }

func (s *Store) reactions(postID string) *fs.CollectionRef {
	return s.posts().Doc(postID).Collection(subcollectionReactions)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// --- Activity feed ---

// FetchActivityPage runs a keyset query ordered by (created_at, document ID).
func (s *Store) FetchActivityPage(ctx context.Context, userID string, cursor *social.SortKey, dir pagination.Direction, limit int) ([]social.ActivityItem, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fgerrors.ErrValidation.WithMessage("user id is required")
	}
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}

	order := fs.Desc
	backward := cursor != nil && dir == pagination.DirectionPrev
	if backward {
		order = fs.Asc
	}
	q := s.activity().
		Where("user_id", "==", userID).
		OrderBy("created_at", order).
		OrderBy(fs.DocumentID, order)
	if cursor != nil {
		q = q.StartAfter(cursor.CreatedAt, cursor.ID)
	}

	docs, err := q.Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	items := make([]social.ActivityItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, FirestoreToActivity(d.Ref.ID, d.Data()))
	}
	if backward {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	return items, nil
}

// --- Posts ---

func (s *Store) CreatePost(ctx context.Context, post *social.Post) error {
	if post == nil || strings.TrimSpace(post.AuthorID) == "" || strings.TrimSpace(post.Title) == "" {
		return fgerrors.ErrValidation.WithMessage("post author and title are required")
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now().UTC()
	}
	if _, err := s.posts().Doc(post.ID).Create(ctx, PostToFirestore(post)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fgerrors.ErrValidation.WithMessage("post already exists").WithMetadata("post_id", post.ID)
		}
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (s *Store) GetPost(ctx context.Context, postID string) (*social.Post, error) {
	doc, err := s.posts().Doc(postID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fgerrors.ErrPostNotFound.WithMetadata("post_id", postID)
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return FirestoreToPost(doc.Ref.ID, doc.Data()), nil
}

// --- Reactions ---

func (s *Store) GetReaction(ctx context.Context, postID, actorID string) (social.ReactionValue, error) {
	doc, err := s.reactions(postID).Doc(actorID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return social.ReactionUnliked, nil
		}
		return "", fmt.Errorf("get reaction: %w", err)
	}
	if v, ok := social.ParseReactionValue(getString(doc.Data(), "value")); ok {
		return v, nil
	}
	return social.ReactionUnliked, nil
}

// SaveReaction stores value in a transaction together with the like activity
// item and the post's like count. Re-sending the stored value changes nothing.
func (s *Store) SaveReaction(ctx context.Context, postID, actorID string, value social.ReactionValue) (bool, error) {
	if strings.TrimSpace(postID) == "" || strings.TrimSpace(actorID) == "" {
		return false, fgerrors.ErrValidation.WithMessage("post id and actor id are required")
	}
	if _, ok := social.ParseReactionValue(string(value)); !ok {
		return false, fgerrors.ErrValidation.WithMessage("unknown reaction value").WithMetadata("value", string(value))
	}

	postRef := s.posts().Doc(postID)
	reactionRef := s.reactions(postID).Doc(actorID)
	activityRef := s.activity().Doc(social.LikeActivityID(postID, actorID))

	changed := false
	err := s.Client.RunTransaction(ctx, func(ctx context.Context, tx *fs.Transaction) error {
		changed = false
		if _, err := tx.Get(postRef); err != nil {
			if isNotFound(err) {
				return fgerrors.ErrPostNotFound.WithMetadata("post_id", postID)
			}
			return err
		}

		current := social.ReactionUnliked
		snap, err := tx.Get(reactionRef)
		switch {
		case err == nil:
			if v, ok := social.ParseReactionValue(getString(snap.Data(), "value")); ok {
				current = v
			}
		case !isNotFound(err):
			return err
		}
		if current == value {
			return nil
		}

		now := s.now().UTC()
		if err := tx.Set(reactionRef, map[string]interface{}{"value": string(value), "updated_at": now}); err != nil {
			return err
		}
		delta := -1
		if value.Liked() {
			delta = 1
			item := social.ActivityItem{Kind: social.KindLike, ActorID: actorID, PostID: postID, CreatedAt: now}
			if err := tx.Set(activityRef, ActivityToFirestore(item)); err != nil {
				return err
			}
		} else if err := tx.Delete(activityRef); err != nil {
			return err
		}
		if err := tx.Update(postRef, []fs.Update{{Path: "like_count", Value: fs.Increment(delta)}}); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		var fgErr *fgerrors.FitGlueError
		if errors.As(err, &fgErr) {
			return false, err
		}
		return false, fmt.Errorf("save reaction: %w", err)
	}
	return changed, nil
}

// --- Comments ---

// SaveComment creates the comment, its activity item and bumps the post's
// comment count in one transaction.
func (s *Store) SaveComment(ctx context.Context, in social.NewComment) (*social.Comment, error) {
	in, err := in.Validate()
	if err != nil {
		return nil, err
	}

	created := &social.Comment{
		ID:       ulid.Make().String(),
		PostID:   in.PostID,
		AuthorID: in.AuthorID,
		Text:     in.Text,
		ParentID: in.ParentID,
	}
	postRef := s.posts().Doc(in.PostID)
	commentRef := s.comments().Doc(created.ID)
	activityRef := s.activity().Doc(created.ID)

	err = s.Client.RunTransaction(ctx, func(ctx context.Context, tx *fs.Transaction) error {
		if _, err := tx.Get(postRef); err != nil {
			if isNotFound(err) {
				return fgerrors.ErrPostNotFound.WithMetadata("post_id", in.PostID)
			}
			return err
		}
		created.ParentAuthorID = in.ParentAuthorID
		if in.ParentID != "" {
			parent, err := tx.Get(s.comments().Doc(in.ParentID))
			if err != nil {
				if isNotFound(err) {
					return fgerrors.ErrCommentNotFound.WithMetadata("comment_id", in.ParentID)
				}
				return err
			}
			p := FirestoreToComment(parent.Ref.ID, parent.Data())
			if p.PostID != in.PostID {
				return fgerrors.ErrValidation.WithMessage("parent comment belongs to another post")
			}
			created.ParentAuthorID = p.AuthorID
		}
		created.CreatedAt = s.now().UTC()

		if err := tx.Create(commentRef, CommentToFirestore(created)); err != nil {
			return err
		}
		if err := tx.Create(activityRef, ActivityToFirestore(created.ActivityItem())); err != nil {
			return err
		}
		return tx.Update(postRef, []fs.Update{{Path: "comment_count", Value: fs.Increment(1)}})
	})
	if err != nil {
		var fgErr *fgerrors.FitGlueError
		if errors.As(err, &fgErr) {
			return nil, err
		}
		return nil, fmt.Errorf("save comment: %w", err)
	}
	return created, nil
}

func (s *Store) GetComment(ctx context.Context, commentID string) (*social.Comment, error) {
	doc, err := s.comments().Doc(commentID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fgerrors.ErrCommentNotFound.WithMetadata("comment_id", commentID)
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return FirestoreToComment(doc.Ref.ID, doc.Data()), nil
}

// --- Notifications ---

func (s *Store) RecordNotification(ctx context.Context, n *social.Notification) error {
	if n == nil || n.RecipientID == "" {
		return fgerrors.ErrValidation.WithMessage("notification recipient is required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	// Set keyed by ID so a redelivered event overwrites instead of duplicating.
	_, err := s.Client.Collection(shared.CollectionNotifications).Doc(n.ID).Set(ctx, NotificationToFirestore(n))
	return err
}

func (s *Store) ListNotifications(ctx context.Context, recipientID string, limit int) ([]social.Notification, error) {
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}
	iter := s.Client.Collection(shared.CollectionNotifications).
		Where("recipient_id", "==", recipientID).
		OrderBy("created_at", fs.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var out []social.Notification
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list notifications: %w", err)
		}
		out = append(out, FirestoreToNotification(doc.Ref.ID, doc.Data()))
	}
	return out, nil
}

// --- Executions ---

func (s *Store) SetExecution(ctx context.Context, record *execution.Record) error {
	_, err := s.Client.Collection(shared.CollectionExecutions).Doc(record.ExecutionID).Set(ctx, ExecutionToFirestore(record))
	return err
}

func (s *Store) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	updates := make([]fs.Update, 0, len(data))
	for k, v := range data {
		updates = append(updates, fs.Update{Path: k, Value: v})
	}
	_, err := s.Client.Collection(shared.CollectionExecutions).Doc(id).Update(ctx, updates)
	return err
}
