package mocks

import (
	"context"

	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/ripixel/fitglue-community/pkg"
	"github.com/ripixel/fitglue-community/pkg/domain/social"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
	"github.com/ripixel/fitglue-community/pkg/execution"
	"github.com/ripixel/fitglue-community/pkg/pagination"
)

var (
	_ shared.Database    = (*MockDatabase)(nil)
	_ shared.Publisher   = (*MockPublisher)(nil)
	_ shared.Notifier    = (*MockNotifier)(nil)
	_ shared.SecretStore = (*MockSecretStore)(nil)
)

// --- Mock Database ---
type MockDatabase struct {
	SetExecutionFunc    func(ctx context.Context, record *execution.Record) error
	UpdateExecutionFunc func(ctx context.Context, id string, data map[string]interface{}) error

	FetchActivityPageFunc func(ctx context.Context, userID string, cursor *social.SortKey, dir pagination.Direction, limit int) ([]social.ActivityItem, error)

	SaveReactionFunc func(ctx context.Context, postID, actorID string, value social.ReactionValue) (bool, error)
	GetReactionFunc  func(ctx context.Context, postID, actorID string) (social.ReactionValue, error)

	SaveCommentFunc func(ctx context.Context, c social.NewComment) (*social.Comment, error)
	GetCommentFunc  func(ctx context.Context, commentID string) (*social.Comment, error)

	CreatePostFunc func(ctx context.Context, post *social.Post) error
	GetPostFunc    func(ctx context.Context, postID string) (*social.Post, error)

	RecordNotificationFunc func(ctx context.Context, n *social.Notification) error
	ListNotificationsFunc  func(ctx context.Context, recipientID string, limit int) ([]social.Notification, error)
}

func (m *MockDatabase) SetExecution(ctx context.Context, record *execution.Record) error {
	if m.SetExecutionFunc != nil {
		return m.SetExecutionFunc(ctx, record)
	}
	return nil
}
func (m *MockDatabase) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateExecutionFunc != nil {
		return m.UpdateExecutionFunc(ctx, id, data)
	}
	return nil
}

func (m *MockDatabase) FetchActivityPage(ctx context.Context, userID string, cursor *social.SortKey, dir pagination.Direction, limit int) ([]social.ActivityItem, error) {
	if m.FetchActivityPageFunc != nil {
		return m.FetchActivityPageFunc(ctx, userID, cursor, dir, limit)
	}
	return nil, nil
}

func (m *MockDatabase) SaveReaction(ctx context.Context, postID, actorID string, value social.ReactionValue) (bool, error) {
	if m.SaveReactionFunc != nil {
		return m.SaveReactionFunc(ctx, postID, actorID, value)
	}
	return true, nil
}
func (m *MockDatabase) GetReaction(ctx context.Context, postID, actorID string) (social.ReactionValue, error) {
	if m.GetReactionFunc != nil {
		return m.GetReactionFunc(ctx, postID, actorID)
	}
	return social.ReactionUnliked, nil
}

func (m *MockDatabase) SaveComment(ctx context.Context, c social.NewComment) (*social.Comment, error) {
	if m.SaveCommentFunc != nil {
		return m.SaveCommentFunc(ctx, c)
	}
	return &social.Comment{ID: "mock-comment", PostID: c.PostID, AuthorID: c.AuthorID, Text: c.Text, ParentID: c.ParentID, ParentAuthorID: c.ParentAuthorID}, nil
}
func (m *MockDatabase) GetComment(ctx context.Context, commentID string) (*social.Comment, error) {
	if m.GetCommentFunc != nil {
		return m.GetCommentFunc(ctx, commentID)
	}
	return nil, fgerrors.ErrCommentNotFound
}

func (m *MockDatabase) CreatePost(ctx context.Context, post *social.Post) error {
	if m.CreatePostFunc != nil {
		return m.CreatePostFunc(ctx, post)
	}
	return nil
}
func (m *MockDatabase) GetPost(ctx context.Context, postID string) (*social.Post, error) {
	if m.GetPostFunc != nil {
		return m.GetPostFunc(ctx, postID)
	}
	return nil, fgerrors.ErrPostNotFound
}

func (m *MockDatabase) RecordNotification(ctx context.Context, n *social.Notification) error {
	if m.RecordNotificationFunc != nil {
		return m.RecordNotificationFunc(ctx, n)
	}
	return nil
}
func (m *MockDatabase) ListNotifications(ctx context.Context, recipientID string, limit int) ([]social.Notification, error) {
	if m.ListNotificationsFunc != nil {
		return m.ListNotificationsFunc(ctx, recipientID, limit)
	}
	return nil, nil
}

func (m *MockDatabase) Close() error { return nil }

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// --- Mock Notifier ---
type MockNotifier struct {
	NotifyReactionFunc func(ctx context.Context, e social.ReactionChanged) error
	NotifyCommentFunc  func(ctx context.Context, e social.CommentCreated) error
}

func (m *MockNotifier) NotifyReaction(ctx context.Context, e social.ReactionChanged) error {
	if m.NotifyReactionFunc != nil {
		return m.NotifyReactionFunc(ctx, e)
	}
	return nil
}
func (m *MockNotifier) NotifyComment(ctx context.Context, e social.CommentCreated) error {
	if m.NotifyCommentFunc != nil {
		return m.NotifyCommentFunc(ctx, e)
	}
	return nil
}

// --- Mock Secret Store ---
type MockSecretStore struct {
	GetSecretFunc func(ctx context.Context, projectID, name string) (string, error)
}

func (m *MockSecretStore) GetSecret(ctx context.Context, projectID, name string) (string, error) {
	if m.GetSecretFunc != nil {
		return m.GetSecretFunc(ctx, projectID, name)
	}
	return "mock-secret", nil
}
