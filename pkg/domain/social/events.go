package social

import "time"

// CloudEvent types published for social activity.
const (
	EventTypeReactionChanged = "com.fitglue.social.reaction.changed"
	EventTypeCommentCreated  = "com.fitglue.social.comment.created"
)

// ReactionChanged is emitted when a reaction write actually changed state.
type ReactionChanged struct {
	PostID       string        `json:"post_id"`
	PostAuthorID string        `json:"post_author_id"`
	ActorID      string        `json:"actor_id"`
	Value        ReactionValue `json:"value"`
	OccurredAt   time.Time     `json:"occurred_at"`
}

// CommentCreated is emitted after a comment is stored.
type CommentCreated struct {
	Comment      Comment `json:"comment"`
	PostAuthorID string  `json:"post_author_id"`
}

// Recipients lists who should be told about e: the post author, and for a
// like nobody else. The actor is never notified about their own activity.
func (e ReactionChanged) Recipients() []string {
	if !e.Value.Liked() || e.PostAuthorID == "" || e.PostAuthorID == e.ActorID {
		return nil
	}
	return []string{e.PostAuthorID}
}

// Recipients lists the post author and, for replies, the parent comment's
// author, without duplicates and without the commenter.
func (e CommentCreated) Recipients() []string {
	var out []string
	for _, id := range []string{e.PostAuthorID, e.Comment.ParentAuthorID} {
		if id == "" || id == e.Comment.AuthorID {
			continue
		}
		if len(out) == 1 && out[0] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}
