package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/ripixel/fitglue-community/pkg/bootstrap"
	"github.com/ripixel/fitglue-community/pkg/domain/social"
	"github.com/ripixel/fitglue-community/pkg/execution"
	infrapubsub "github.com/ripixel/fitglue-community/pkg/infrastructure/pubsub"
	"github.com/ripixel/fitglue-community/pkg/testing/mocks"
	"github.com/ripixel/fitglue-community/pkg/types"
)

func pubsubEnvelope(t *testing.T, inner event.Event) event.Event {
	t.Helper()
	msg, err := types.Envelope(inner)
	if err != nil {
		t.Fatal(err)
	}

	outer := event.New()
	outer.SetID("outer-msg-id")
	outer.SetType("google.cloud.pubsub.topic.v1.messagePublished")
	outer.SetSource("//pubsub")
	if err := outer.SetData(event.ApplicationJSON, msg); err != nil {
		t.Fatal(err)
	}
	return outer
}

func TestRecordNotificationForReply(t *testing.T) {
	var recorded []social.Notification
	var children []*execution.Record
	svc = &bootstrap.Service{
		DB: &mocks.MockDatabase{
			SetExecutionFunc: func(ctx context.Context, record *execution.Record) error {
				if record.ParentExecutionID != "" {
					children = append(children, record)
				}
				return nil
			},
			RecordNotificationFunc: func(ctx context.Context, n *social.Notification) error {
				recorded = append(recorded, *n)
				return nil
			},
		},
	}
	defer func() { svc = nil }()

	payload := social.CommentCreated{
		Comment: social.Comment{
			ID: "c9", PostID: "p1", AuthorID: "u3", Text: "Agreed",
			ParentID: "c1", ParentAuthorID: "u2", CreatedAt: time.Now().UTC(),
		},
		PostAuthorID: "author",
	}
	inner, err := infrapubsub.NewCloudEvent(infrapubsub.EventSource, social.EventTypeCommentCreated, payload)
	if err != nil {
		t.Fatal(err)
	}

	if err := RecordNotification(context.Background(), pubsubEnvelope(t, inner)); err != nil {
		t.Fatalf("RecordNotification: %v", err)
	}

	if len(recorded) != 2 {
		t.Fatalf("recorded %d notifications, want 2", len(recorded))
	}
	if recorded[0].RecipientID != "author" || recorded[1].RecipientID != "u2" {
		t.Errorf("recipients = %s, %s", recorded[0].RecipientID, recorded[1].RecipientID)
	}
	for _, n := range recorded {
		if n.Kind != social.KindComment || n.CommentID != "c9" || n.ActorID != "u3" {
			t.Errorf("notification = %+v", n)
		}
		if !strings.HasPrefix(n.ID, inner.ID()+"_") {
			t.Errorf("notification id %q should derive from event id", n.ID)
		}
	}
	if len(children) != 2 {
		t.Errorf("child executions = %d, want one per recipient", len(children))
	}
}

func TestRecordNotificationSkipsSelfLike(t *testing.T) {
	called := false
	svc = &bootstrap.Service{
		DB: &mocks.MockDatabase{
			RecordNotificationFunc: func(ctx context.Context, n *social.Notification) error {
				called = true
				return nil
			},
		},
	}
	defer func() { svc = nil }()

	inner, err := infrapubsub.NewCloudEvent(infrapubsub.EventSource, social.EventTypeReactionChanged, social.ReactionChanged{
		PostID: "p1", PostAuthorID: "author", ActorID: "author", Value: social.ReactionLiked,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := RecordNotification(context.Background(), inner); err != nil {
		t.Fatalf("RecordNotification: %v", err)
	}
	if called {
		t.Error("self like must not notify")
	}
}

func TestRecordNotificationStoreFailure(t *testing.T) {
	svc = &bootstrap.Service{
		DB: &mocks.MockDatabase{
			RecordNotificationFunc: func(ctx context.Context, n *social.Notification) error {
				return errors.New("unavailable")
			},
		},
	}
	defer func() { svc = nil }()

	inner, err := infrapubsub.NewCloudEvent(infrapubsub.EventSource, social.EventTypeReactionChanged, social.ReactionChanged{
		PostID: "p1", PostAuthorID: "author", ActorID: "u2", Value: social.ReactionLiked,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := RecordNotification(context.Background(), inner); err == nil {
		t.Fatal("store failure must surface so Pub/Sub redelivers")
	}
}

func TestRecordNotificationIgnoresUnknownType(t *testing.T) {
	svc = &bootstrap.Service{DB: &mocks.MockDatabase{}}
	defer func() { svc = nil }()

	e := event.New()
	e.SetID("x")
	e.SetType("com.fitglue.unrelated")
	e.SetSource("/test")
	if err := RecordNotification(context.Background(), e); err != nil {
		t.Fatalf("unknown type should be skipped, got %v", err)
	}
}
