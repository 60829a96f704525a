package types

import (
	"encoding/json"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
)

// PubSubMessage is the payload of a Pub/Sub push delivered as a CloudEvent.
// Social events are published as structured CloudEvents, so Message.Data
// holds a whole JSON-encoded event.
type PubSubMessage struct {
	Message struct {
		Data        []byte            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId,omitempty"`
		PublishTime time.Time         `json:"publishTime,omitempty"`
	} `json:"message"`
	Subscription string `json:"subscription,omitempty"`
}

// Envelope wraps inner the way a Pub/Sub push subscription delivers it.
func Envelope(inner event.Event) (PubSubMessage, error) {
	var msg PubSubMessage
	data, err := json.Marshal(inner)
	if err != nil {
		return msg, err
	}
	msg.Message.Data = data
	msg.Message.MessageID = inner.ID()
	return msg, nil
}

// Inner decodes the CloudEvent carried in the message. ok is false when the
// data is not a typed CloudEvent.
func (m PubSubMessage) Inner() (event.Event, bool) {
	if len(m.Message.Data) == 0 {
		return event.Event{}, false
	}
	var inner event.Event
	if err := json.Unmarshal(m.Message.Data, &inner); err != nil || inner.Type() == "" {
		return event.Event{}, false
	}
	return inner, true
}
