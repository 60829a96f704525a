package pubsub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/ripixel/fitglue-community/pkg"
	"github.com/ripixel/fitglue-community/pkg/domain/social"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
	"github.com/ripixel/fitglue-community/pkg/testing/mocks"
)

func TestNotifyReactionPublishesCloudEvent(t *testing.T) {
	var gotTopic string
	var got event.Event
	pub := &mocks.MockPublisher{
		PublishCloudEventFunc: func(ctx context.Context, topic string, e event.Event) (string, error) {
			gotTopic = topic
			got = e
			return "msg-1", nil
		},
	}
	n := NewEventNotifier(pub, nil)

	in := social.ReactionChanged{PostID: "p1", PostAuthorID: "a1", ActorID: "u2", Value: social.ReactionLiked, OccurredAt: time.Now().UTC()}
	if err := n.NotifyReaction(context.Background(), in); err != nil {
		t.Fatalf("NotifyReaction failed: %v", err)
	}

	if gotTopic != shared.TopicSocialActivity {
		t.Errorf("topic = %q, want %q", gotTopic, shared.TopicSocialActivity)
	}
	if got.Type() != social.EventTypeReactionChanged {
		t.Errorf("type = %q", got.Type())
	}
	if got.Source() != EventSource {
		t.Errorf("source = %q", got.Source())
	}
	if len(got.ID()) != 26 {
		t.Errorf("expected a ULID event id, got %q", got.ID())
	}

	var payload social.ReactionChanged
	if err := got.DataAs(&payload); err != nil {
		t.Fatalf("DataAs: %v", err)
	}
	if payload.PostID != "p1" || payload.Value != social.ReactionLiked {
		t.Errorf("payload = %+v", payload)
	}
}

func TestNotifyCommentWrapsPublishFailure(t *testing.T) {
	pub := &mocks.MockPublisher{
		PublishCloudEventFunc: func(ctx context.Context, topic string, e event.Event) (string, error) {
			return "", errors.New("topic not found")
		},
	}
	n := NewEventNotifier(pub, nil)

	err := n.NotifyComment(context.Background(), social.CommentCreated{Comment: social.Comment{ID: "c1"}})
	if !errors.Is(err, fgerrors.ErrPubSubError) {
		t.Fatalf("err = %v, want pubsub error", err)
	}
}

func TestLogPublisher(t *testing.T) {
	e, err := NewCloudEvent(EventSource, social.EventTypeCommentCreated, map[string]string{"id": "c1"})
	if err != nil {
		t.Fatal(err)
	}
	id, err := (&LogPublisher{}).PublishCloudEvent(context.Background(), shared.TopicSocialActivity, e)
	if err != nil || id != "mock-"+e.ID() {
		t.Errorf("PublishCloudEvent = %q, %v", id, err)
	}
}

func TestAttributesMirrorEventContext(t *testing.T) {
	e, err := NewCloudEvent(EventSource, social.EventTypeReactionChanged, map[string]string{"post_id": "p1"})
	if err != nil {
		t.Fatal(err)
	}
	if e.Time().IsZero() {
		t.Error("event time should be set")
	}

	attrs := attributes(e)
	want := map[string]string{
		"ce-id":          e.ID(),
		"ce-type":        social.EventTypeReactionChanged,
		"ce-source":      EventSource,
		"ce-specversion": "1.0",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attribute %s = %q, want %q", k, attrs[k], v)
		}
	}
}
