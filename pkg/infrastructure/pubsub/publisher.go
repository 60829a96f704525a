package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/ripixel/fitglue-community/pkg"
)

// attributes mirrors the CloudEvent context into message attributes so
// subscribers can filter without decoding the body.
func attributes(e event.Event) map[string]string {
	return map[string]string{
		"ce-id":          e.ID(),
		"ce-type":        e.Type(),
		"ce-source":      e.Source(),
		"ce-specversion": e.SpecVersion(),
	}
}

// PubSubAdapter publishes structured CloudEvents on Google Cloud Pub/Sub.
// Topic handles are reused across calls; Close flushes and stops them.
type PubSubAdapter struct {
	Client *pubsub.Client
	Logger *slog.Logger

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

var _ shared.Publisher = (*PubSubAdapter)(nil)

func NewPubSubAdapter(client *pubsub.Client, logger *slog.Logger) *PubSubAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PubSubAdapter{Client: client, Logger: logger.With("component", "pubsub")}
}

func (a *PubSubAdapter) topic(id string) *pubsub.Topic {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.topics == nil {
		a.topics = make(map[string]*pubsub.Topic)
	}
	t, ok := a.topics[id]
	if !ok {
		t = a.Client.Topic(id)
		a.topics[id] = t
	}
	return t
}

func (a *PubSubAdapter) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	body, err := json.Marshal(e)
	if err != nil {
		logger.Error("Failed to marshal CloudEvent", "topic", topicID, "event_id", e.ID(), "error", err)
		return "", err
	}

	res := a.topic(topicID).Publish(ctx, &pubsub.Message{Data: body, Attributes: attributes(e)})
	msgID, err := res.Get(ctx)
	if err != nil {
		logger.Error("Failed to publish message", "topic", topicID, "event_type", e.Type(), "error", err)
		return "", err
	}
	logger.Info("Published CloudEvent",
		"topic", topicID,
		"event_type", e.Type(),
		"event_id", e.ID(),
		"message_id", msgID,
		"size_bytes", len(body))
	return msgID, nil
}

// Close stops every cached topic and then the client.
func (a *PubSubAdapter) Close() error {
	a.mu.Lock()
	for id, t := range a.topics {
		t.Stop()
		delete(a.topics, id)
	}
	a.mu.Unlock()
	return a.Client.Close()
}

// LogPublisher stands in for Pub/Sub in local runs. It logs the event and
// returns a fake message ID.
type LogPublisher struct {
	Logger *slog.Logger
}

var _ shared.Publisher = (*LogPublisher)(nil)

func (p *LogPublisher) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("MOCK PUBLISH", "topic", topicID, "event_type", e.Type(), "attributes", attributes(e), "data", string(body))
	return "mock-" + e.ID(), nil
}
