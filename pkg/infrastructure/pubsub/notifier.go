package pubsub

import (
	"context"
	"log/slog"

	shared "github.com/ripixel/fitglue-community/pkg"
	"github.com/ripixel/fitglue-community/pkg/domain/social"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
)

// EventSource is the CloudEvent source for social activity.
const EventSource = "/fitglue/community"

// EventNotifier publishes social activity as CloudEvents on the social topic.
type EventNotifier struct {
	Publisher shared.Publisher
	Topic     string
	Logger    *slog.Logger
}

var _ shared.Notifier = (*EventNotifier)(nil)

func NewEventNotifier(pub shared.Publisher, logger *slog.Logger) *EventNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventNotifier{Publisher: pub, Topic: shared.TopicSocialActivity, Logger: logger.With("component", "notifier")}
}

func (n *EventNotifier) NotifyReaction(ctx context.Context, e social.ReactionChanged) error {
	return n.publish(ctx, social.EventTypeReactionChanged, e)
}

func (n *EventNotifier) NotifyComment(ctx context.Context, e social.CommentCreated) error {
	return n.publish(ctx, social.EventTypeCommentCreated, e)
}

func (n *EventNotifier) publish(ctx context.Context, eventType string, data interface{}) error {
	ce, err := NewCloudEvent(EventSource, eventType, data)
	if err != nil {
		return fgerrors.ErrPubSubError.WithMessage("build cloud event").WithCause(err)
	}
	msgID, err := n.Publisher.PublishCloudEvent(ctx, n.Topic, ce)
	if err != nil {
		return fgerrors.ErrPubSubError.WithCause(err).WithMetadata("event_type", eventType)
	}
	n.Logger.Debug("Published social event", "event_type", eventType, "event_id", ce.ID(), "message_id", msgID)
	return nil
}
