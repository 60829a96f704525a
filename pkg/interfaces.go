package shared

import (
	"context"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/ripixel/fitglue-community/pkg/domain/social"
	"github.com/ripixel/fitglue-community/pkg/execution"
	"github.com/ripixel/fitglue-community/pkg/pagination"
)

// --- Persistence Interfaces ---

// ActivityStore is the backing store for posts, reactions, comments and the
// per-user activity feed.
type ActivityStore interface {
	// FetchActivityPage returns up to limit items authored by userID in
	// (created_at desc, id desc) order relative to cursor. A nil cursor is the first page.
	FetchActivityPage(ctx context.Context, userID string, cursor *social.SortKey, dir pagination.Direction, limit int) ([]social.ActivityItem, error)

	// SaveReaction stores value and reports whether anything changed. Idempotent.
	SaveReaction(ctx context.Context, postID, actorID string, value social.ReactionValue) (bool, error)
	GetReaction(ctx context.Context, postID, actorID string) (social.ReactionValue, error)

	SaveComment(ctx context.Context, c social.NewComment) (*social.Comment, error)
	GetComment(ctx context.Context, commentID string) (*social.Comment, error)

	CreatePost(ctx context.Context, post *social.Post) error
	GetPost(ctx context.Context, postID string) (*social.Post, error)

	RecordNotification(ctx context.Context, n *social.Notification) error
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]social.Notification, error)
}

// Database is everything a deployed function needs from storage.
type Database interface {
	ActivityStore
	execution.Store
	Close() error
}

// --- Messaging Interfaces ---

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// Notifier announces state changes that other users should hear about.
type Notifier interface {
	NotifyReaction(ctx context.Context, e social.ReactionChanged) error
	NotifyComment(ctx context.Context, e social.CommentCreated) error
}

// --- Secrets Interface ---

type SecretStore interface {
	GetSecret(ctx context.Context, projectID, name string) (string, error)
}
