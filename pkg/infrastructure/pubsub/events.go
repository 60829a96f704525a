package pubsub

import (
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/oklog/ulid/v2"
)

// NewCloudEvent builds a v1.0 event whose ID sorts by creation time.
// Redeliveries of one published event share that ID, which downstream
// consumers use as an idempotency key.
func NewCloudEvent(source, eventType string, data interface{}) (cloudevents.Event, error) {
	now := time.Now().UTC()
	e := cloudevents.NewEvent(cloudevents.VersionV1)
	e.SetID(ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String())
	e.SetType(eventType)
	e.SetSource(source)
	e.SetTime(now)
	return e, e.SetData(cloudevents.ApplicationJSON, data)
}
