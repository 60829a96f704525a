// Package social holds the community feed's domain types: posts, comments,
// likes and the activity items a user's feed pages through.
package social

import (
	"strings"
	"time"
)

// ActivityKind distinguishes the two kinds of activity a user generates.
type ActivityKind string

const (
	KindComment ActivityKind = "comment"
	KindLike    ActivityKind = "like"
)

// SortKey orders activity items: newest first, ties broken by descending ID.
type SortKey struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// Before reports whether k sorts ahead of other in feed order.
func (k SortKey) Before(other SortKey) bool {
	if !k.CreatedAt.Equal(other.CreatedAt) {
		return k.CreatedAt.After(other.CreatedAt)
	}
	return k.ID > other.ID
}

// IsZero reports whether the key is unset.
func (k SortKey) IsZero() bool {
	return k.ID == "" && k.CreatedAt.IsZero()
}

// ActivityItem is an immutable comment or like record as returned by the store.
type ActivityItem struct {
	ID             string       `json:"id"`
	Kind           ActivityKind `json:"kind"`
	ActorID        string       `json:"actor_id"`
	PostID         string       `json:"post_id"`
	CreatedAt      time.Time    `json:"created_at"`
	Text           string       `json:"text,omitempty"`
	ParentID       string       `json:"parent_id,omitempty"`
	ParentAuthorID string       `json:"parent_author_id,omitempty"`
}

// Key returns the item's position in feed order.
func (a ActivityItem) Key() SortKey {
	return SortKey{CreatedAt: a.CreatedAt, ID: a.ID}
}

// Post is a shared workout that other users like and comment on.
type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	Title        string    `json:"title"`
	Body         string    `json:"body,omitempty"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Comment is a persisted comment, optionally replying to another comment.
type Comment struct {
	ID             string    `json:"id"`
	PostID         string    `json:"post_id"`
	AuthorID       string    `json:"author_id"`
	Text           string    `json:"text"`
	ParentID       string    `json:"parent_id,omitempty"`
	ParentAuthorID string    `json:"parent_author_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ActivityItem projects the comment into the author's activity feed.
func (c Comment) ActivityItem() ActivityItem {
	return ActivityItem{
		ID:             c.ID,
		Kind:           KindComment,
		ActorID:        c.AuthorID,
		PostID:         c.PostID,
		CreatedAt:      c.CreatedAt,
		Text:           c.Text,
		ParentID:       c.ParentID,
		ParentAuthorID: c.ParentAuthorID,
	}
}

// NewComment is the input to a comment write. Text must already have passed ValidateCommentText.
type NewComment struct {
	PostID         string
	AuthorID       string
	Text           string
	ParentID       string
	ParentAuthorID string
}

// ReactionValue is the persisted state of one actor's reaction to a post.
type ReactionValue string

const (
	ReactionLiked   ReactionValue = "liked"
	ReactionUnliked ReactionValue = "unliked"
)

// ReactionFromBool maps a liked flag onto a ReactionValue.
func ReactionFromBool(liked bool) ReactionValue {
	if liked {
		return ReactionLiked
	}
	return ReactionUnliked
}

// Liked reports whether the value is a like.
func (v ReactionValue) Liked() bool {
	return v == ReactionLiked
}

// ParseReactionValue accepts "liked"/"unliked" (case-insensitive).
func ParseReactionValue(s string) (ReactionValue, bool) {
	switch ReactionValue(strings.ToLower(strings.TrimSpace(s))) {
	case ReactionLiked:
		return ReactionLiked, true
	case ReactionUnliked:
		return ReactionUnliked, true
	}
	return "", false
}

// LikeActivityID is the deterministic activity ID for actorID liking postID.
// Re-liking after an unlike reuses the same ID, which keeps saves idempotent.
func LikeActivityID(postID, actorID string) string {
	return "like_" + postID + "_" + actorID
}

// Notification is an inbox entry produced by the notifier function.
type Notification struct {
	ID          string       `json:"id"`
	RecipientID string       `json:"recipient_id"`
	ActorID     string       `json:"actor_id"`
	PostID      string       `json:"post_id"`
	Kind        ActivityKind `json:"kind"`
	CommentID   string       `json:"comment_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
