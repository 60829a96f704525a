// Package sqlite provides a SQLite-backed community store with the same
// semantics as the Firestore store. It backs local development, the feedctl
// CLI and integration tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	shared "github.com/ripixel/fitglue-community/pkg"
	"github.com/ripixel/fitglue-community/pkg/domain/social"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
	"github.com/ripixel/fitglue-community/pkg/execution"
	"github.com/ripixel/fitglue-community/pkg/pagination"
	"github.com/ripixel/fitglue-community/pkg/storage/sqlite/migrations"
)

// Store persists community state in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ shared.Database = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// --- Activity feed ---

const activityColumns = `id, kind, user_id, post_id, created_at, text, parent_id, parent_author_id`

// FetchActivityPage pages through userID's activity with keyset queries.
func (s *Store) FetchActivityPage(ctx context.Context, userID string, cursor *social.SortKey, dir pagination.Direction, limit int) ([]social.ActivityItem, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fgerrors.ErrValidation.WithMessage("user id is required")
	}
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}

	var (
		rows *sql.Rows
		err  error
	)
	switch {
	case cursor == nil:
		rows, err = s.sqlDB.QueryContext(ctx,
			`SELECT `+activityColumns+` FROM activity
			 WHERE user_id = ?
			 ORDER BY created_at DESC, id DESC LIMIT ?`,
			userID, limit)
	case dir == pagination.DirectionPrev:
		ms := toMillis(cursor.CreatedAt)
		rows, err = s.sqlDB.QueryContext(ctx,
			`SELECT `+activityColumns+` FROM activity
			 WHERE user_id = ? AND (created_at > ? OR (created_at = ? AND id > ?))
			 ORDER BY created_at ASC, id ASC LIMIT ?`,
			userID, ms, ms, cursor.ID, limit)
	default:
		ms := toMillis(cursor.CreatedAt)
		rows, err = s.sqlDB.QueryContext(ctx,
			`SELECT `+activityColumns+` FROM activity
			 WHERE user_id = ? AND (created_at < ? OR (created_at = ? AND id < ?))
			 ORDER BY created_at DESC, id DESC LIMIT ?`,
			userID, ms, ms, cursor.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	items := make([]social.ActivityItem, 0, limit)
	for rows.Next() {
		var (
			it        social.ActivityItem
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&it.ID, &kind, &it.ActorID, &it.PostID, &createdAt, &it.Text, &it.ParentID, &it.ParentAuthorID); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		it.Kind = social.ActivityKind(kind)
		it.CreatedAt = fromMillis(createdAt)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}

	if cursor != nil && dir == pagination.DirectionPrev {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	return items, nil
}

// --- Posts ---

// CreatePost inserts post, assigning an ID and creation time when unset.
func (s *Store) CreatePost(ctx context.Context, post *social.Post) error {
	if post == nil {
		return fgerrors.ErrValidation.WithMessage("post is required")
	}
	if strings.TrimSpace(post.AuthorID) == "" {
		return fgerrors.ErrValidation.WithMessage("post author is required")
	}
	if strings.TrimSpace(post.Title) == "" {
		return fgerrors.ErrValidation.WithMessage("post title is required")
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now().UTC()
	}
	post.CreatedAt = fromMillis(toMillis(post.CreatedAt))

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, title, body, like_count, comment_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.AuthorID, post.Title, post.Body, post.LikeCount, post.CommentCount, toMillis(post.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fgerrors.ErrValidation.WithMessage("post already exists").WithMetadata("post_id", post.ID)
		}
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// GetPost returns errors.ErrPostNotFound when postID does not exist.
func (s *Store) GetPost(ctx context.Context, postID string) (*social.Post, error) {
	return getPost(ctx, s.sqlDB, postID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getPost(ctx context.Context, q queryer, postID string) (*social.Post, error) {
	var (
		p         social.Post
		createdAt int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, author_id, title, body, like_count, comment_count, created_at FROM posts WHERE id = ?`,
		postID,
	).Scan(&p.ID, &p.AuthorID, &p.Title, &p.Body, &p.LikeCount, &p.CommentCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fgerrors.ErrPostNotFound.WithMetadata("post_id", postID)
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

// --- Reactions ---

// GetReaction returns the stored value, or unliked when the actor never reacted.
func (s *Store) GetReaction(ctx context.Context, postID, actorID string) (social.ReactionValue, error) {
	return getReaction(ctx, s.sqlDB, postID, actorID)
}

func getReaction(ctx context.Context, q queryer, postID, actorID string) (social.ReactionValue, error) {
	var value string
	err := q.QueryRowContext(ctx,
		`SELECT value FROM reactions WHERE post_id = ? AND actor_id = ?`, postID, actorID,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return social.ReactionUnliked, nil
	}
	if err != nil {
		return "", fmt.Errorf("get reaction: %w", err)
	}
	return social.ReactionValue(value), nil
}

// SaveReaction stores value idempotently. A change also moves the like
// activity item and the post's like count in the same transaction.
func (s *Store) SaveReaction(ctx context.Context, postID, actorID string, value social.ReactionValue) (bool, error) {
	if strings.TrimSpace(postID) == "" || strings.TrimSpace(actorID) == "" {
		return false, fgerrors.ErrValidation.WithMessage("post id and actor id are required")
	}
	if _, ok := social.ParseReactionValue(string(value)); !ok {
		return false, fgerrors.ErrValidation.WithMessage("unknown reaction value").WithMetadata("value", string(value))
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin reaction tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := getPost(ctx, tx, postID); err != nil {
		return false, err
	}
	current, err := getReaction(ctx, tx, postID, actorID)
	if err != nil {
		return false, err
	}
	if current == value {
		return false, tx.Commit()
	}

	now := toMillis(s.now())
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reactions (post_id, actor_id, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (post_id, actor_id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		postID, actorID, string(value), now,
	); err != nil {
		return false, fmt.Errorf("upsert reaction: %w", err)
	}

	activityID := social.LikeActivityID(postID, actorID)
	delta := -1
	if value.Liked() {
		delta = 1
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO activity (id, user_id, kind, post_id, created_at) VALUES (?, ?, ?, ?, ?)`,
			activityID, actorID, string(social.KindLike), postID, now)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM activity WHERE id = ?`, activityID)
	}
	if err != nil {
		return false, fmt.Errorf("write like activity: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE posts SET like_count = MAX(like_count + ?, 0) WHERE id = ?`, delta, postID,
	); err != nil {
		return false, fmt.Errorf("update like count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit reaction: %w", err)
	}
	return true, nil
}

// --- Comments ---

// SaveComment stores c, its activity item and the post's new comment count atomically.
// A reply's parent author is taken from the stored parent comment.
func (s *Store) SaveComment(ctx context.Context, c social.NewComment) (*social.Comment, error) {
	c, err := c.Validate()
	if err != nil {
		return nil, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin comment tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := getPost(ctx, tx, c.PostID); err != nil {
		return nil, err
	}
	if c.ParentID != "" {
		parent, err := getComment(ctx, tx, c.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != c.PostID {
			return nil, fgerrors.ErrValidation.WithMessage("parent comment belongs to another post")
		}
		c.ParentAuthorID = parent.AuthorID
	}

	created := &social.Comment{
		ID:             ulid.Make().String(),
		PostID:         c.PostID,
		AuthorID:       c.AuthorID,
		Text:           c.Text,
		ParentID:       c.ParentID,
		ParentAuthorID: c.ParentAuthorID,
		CreatedAt:      fromMillis(toMillis(s.now())),
	}
	ms := toMillis(created.CreatedAt)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, author_id, text, parent_id, parent_author_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.PostID, created.AuthorID, created.Text, created.ParentID, created.ParentAuthorID, ms,
	); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO activity (id, user_id, kind, post_id, text, parent_id, parent_author_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.AuthorID, string(social.KindComment), created.PostID, created.Text, created.ParentID, created.ParentAuthorID, ms,
	); err != nil {
		return nil, fmt.Errorf("insert comment activity: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE posts SET comment_count = comment_count + 1 WHERE id = ?`, created.PostID,
	); err != nil {
		return nil, fmt.Errorf("update comment count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit comment: %w", err)
	}
	return created, nil
}

// GetComment returns errors.ErrCommentNotFound when commentID does not exist.
func (s *Store) GetComment(ctx context.Context, commentID string) (*social.Comment, error) {
	return getComment(ctx, s.sqlDB, commentID)
}

func getComment(ctx context.Context, q queryer, commentID string) (*social.Comment, error) {
	var (
		c         social.Comment
		createdAt int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, post_id, author_id, text, parent_id, parent_author_id, created_at FROM comments WHERE id = ?`,
		commentID,
	).Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &c.ParentID, &c.ParentAuthorID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fgerrors.ErrCommentNotFound.WithMetadata("comment_id", commentID)
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	c.CreatedAt = fromMillis(createdAt)
	return &c, nil
}

// --- Notifications ---

// RecordNotification stores n, assigning an ID when unset. Re-recording the same ID is a no-op.
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
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO notifications (id, recipient_id, actor_id, post_id, kind, comment_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.RecipientID, n.ActorID, n.PostID, string(n.Kind), n.CommentID, toMillis(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

// ListNotifications returns recipientID's newest notifications first.
func (s *Store) ListNotifications(ctx context.Context, recipientID string, limit int) ([]social.Notification, error) {
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, recipient_id, actor_id, post_id, kind, comment_id, created_at FROM notifications
		 WHERE recipient_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []social.Notification
	for rows.Next() {
		var (
			n         social.Notification
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.ActorID, &n.PostID, &kind, &n.CommentID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = social.ActivityKind(kind)
		n.CreatedAt = fromMillis(createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

// --- Executions ---

// SetExecution inserts or replaces an execution record.
func (s *Store) SetExecution(ctx context.Context, r *execution.Record) error {
	var endTime sql.NullInt64
	if r.EndTime != nil {
		endTime = sql.NullInt64{Int64: toMillis(*r.EndTime), Valid: true}
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT OR REPLACE INTO executions (execution_id, service, status, timestamp, start_time, end_time,
		   user_id, trigger_type, parent_execution_id, inputs_json, outputs_json, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ExecutionID, r.Service, int32(r.Status), toMillis(r.Timestamp), toMillis(r.StartTime), endTime,
		r.UserID, r.TriggerType, r.ParentExecutionID, r.InputsJSON, r.OutputsJSON, r.ErrorMessage)
	if err != nil {
		return fmt.Errorf("set execution: %w", err)
	}
	return nil
}

var executionColumns = map[string]bool{
	"status": true, "timestamp": true, "start_time": true, "end_time": true,
	"user_id": true, "trigger_type": true, "inputs_json": true, "outputs_json": true, "error_message": true,
}

// UpdateExecution applies a partial update using the execution logger's column names.
func (s *Store) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}
	sets := make([]string, 0, len(data))
	args := make([]any, 0, len(data)+1)
	for col, v := range data {
		if !executionColumns[col] {
			return fgerrors.ErrValidation.WithMessage("unknown execution field").WithMetadata("field", col)
		}
		if t, ok := v.(time.Time); ok {
			v = toMillis(t)
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	args = append(args, id)

	res, err := s.sqlDB.ExecContext(ctx, `UPDATE executions SET `+strings.Join(sets, ", ")+` WHERE execution_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fgerrors.New(fgerrors.CodeStorageError, "execution not found").WithMetadata("execution_id", id)
	}
	return nil
}

// GetExecution loads one execution record.
func (s *Store) GetExecution(ctx context.Context, id string) (*execution.Record, error) {
	var (
		r         execution.Record
		status    int32
		ts, start int64
		endTime   sql.NullInt64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT execution_id, service, status, timestamp, start_time, end_time, user_id, trigger_type,
		   parent_execution_id, inputs_json, outputs_json, error_message
		 FROM executions WHERE execution_id = ?`, id,
	).Scan(&r.ExecutionID, &r.Service, &status, &ts, &start, &endTime, &r.UserID, &r.TriggerType,
		&r.ParentExecutionID, &r.InputsJSON, &r.OutputsJSON, &r.ErrorMessage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fgerrors.New(fgerrors.CodeStorageError, "execution not found").WithMetadata("execution_id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}
	r.Status = execution.Status(status)
	r.Timestamp = fromMillis(ts)
	r.StartTime = fromMillis(start)
	if endTime.Valid {
		t := fromMillis(endTime.Int64)
		r.EndTime = &t
	}
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
