package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/ripixel/fitglue-community/pkg/bootstrap"
	"github.com/ripixel/fitglue-community/pkg/domain/social"
	"github.com/ripixel/fitglue-community/pkg/execution"
	"github.com/ripixel/fitglue-community/pkg/framework"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.CloudEvent("RecordNotification", RecordNotification)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		svc, svcErr = bootstrap.NewService(ctx)
		if svcErr != nil {
			slog.Error("Failed to initialize service", "error", svcErr)
		}
	})
	return svc, svcErr
}

// RecordNotification consumes social activity events and writes inbox entries.
func RecordNotification(ctx context.Context, e event.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent("notifier", svc, notifyHandler)(ctx, e)
}

func notifyHandler(ctx context.Context, e event.Event, fwCtx *framework.FrameworkContext) (interface{}, error) {
	var (
		recipients []string
		template   social.Notification
	)

	switch e.Type() {
	case social.EventTypeReactionChanged:
		var payload social.ReactionChanged
		if err := e.DataAs(&payload); err != nil {
			return nil, fmt.Errorf("event.DataAs: %w", err)
		}
		recipients = payload.Recipients()
		template = social.Notification{ActorID: payload.ActorID, PostID: payload.PostID, Kind: social.KindLike, CreatedAt: payload.OccurredAt}

	case social.EventTypeCommentCreated:
		var payload social.CommentCreated
		if err := e.DataAs(&payload); err != nil {
			return nil, fmt.Errorf("event.DataAs: %w", err)
		}
		recipients = payload.Recipients()
		c := payload.Comment
		template = social.Notification{ActorID: c.AuthorID, PostID: c.PostID, Kind: social.KindComment, CommentID: c.ID, CreatedAt: c.CreatedAt}

	default:
		fwCtx.Logger.Warn("Ignoring unknown event type", "event_type", e.Type())
		return map[string]interface{}{"status": "SKIPPED", "event_type": e.Type()}, nil
	}

	if len(recipients) == 0 {
		fwCtx.Logger.Info("No recipients for event", "event_type", e.Type(), "post_id", template.PostID)
		return map[string]interface{}{"status": "SKIPPED", "reason": "no recipients"}, nil
	}

	db := fwCtx.Service.DB
	recorded := []string{}
	for _, recipient := range recipients {
		n := template
		n.RecipientID = recipient
		// Keyed by event so a redelivered message does not duplicate the entry.
		n.ID = e.ID() + "_" + recipient

		childID, err := execution.LogChildExecutionStart(ctx, db, "notifier-recipient", fwCtx.ExecutionID, execution.ExecutionOptions{
			UserID:      recipient,
			TriggerType: "fanout",
			Inputs:      map[string]string{"notification_id": n.ID, "kind": string(n.Kind)},
		})
		if err != nil {
			fwCtx.Logger.Warn("Failed to log child execution", "recipient", recipient, "error", err)
		}

		if err := db.RecordNotification(ctx, &n); err != nil {
			if logErr := execution.LogFailure(ctx, db, childID, err, nil); logErr != nil {
				fwCtx.Logger.Warn("Failed to log child failure", "error", logErr)
			}
			return map[string]interface{}{"status": "FAILED", "recorded": recorded}, fmt.Errorf("record notification for %s: %w", recipient, err)
		}
		if logErr := execution.LogSuccess(ctx, db, childID, map[string]string{"notification_id": n.ID}); logErr != nil {
			fwCtx.Logger.Warn("Failed to log child success", "error", logErr)
		}
		recorded = append(recorded, recipient)
	}

	fwCtx.Logger.Info("Recorded notifications", "event_type", e.Type(), "recipients", recorded)
	return map[string]interface{}{
		"status":     "SUCCESS",
		"event_type": e.Type(),
		"recipients": recorded,
	}, nil
}
