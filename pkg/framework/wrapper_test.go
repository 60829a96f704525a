package framework

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/ripixel/fitglue-community/pkg/bootstrap"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
	"github.com/ripixel/fitglue-community/pkg/execution"
	"github.com/ripixel/fitglue-community/pkg/testing/mocks"
	"github.com/ripixel/fitglue-community/pkg/types"
)

// statusRecorder collects every status written for an execution.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []execution.Status
}

func (r *statusRecorder) db() *mocks.MockDatabase {
	return &mocks.MockDatabase{
		SetExecutionFunc: func(ctx context.Context, record *execution.Record) error {
			r.add(record.Status)
			return nil
		},
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			if s, ok := data["status"].(int32); ok {
				r.add(execution.Status(s))
			}
			return nil
		},
	}
}

func (r *statusRecorder) add(s execution.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *statusRecorder) get() []execution.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]execution.Status(nil), r.statuses...)
}

func assertStatuses(t *testing.T, got []execution.Status, want ...execution.Status) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", got, want)
		}
	}
}

func TestWrapCloudEvent(t *testing.T) {
	rec := &statusRecorder{}
	svc := &bootstrap.Service{DB: rec.db()}

	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		if fwCtx.Service != svc {
			t.Error("Service not injected correctly")
		}
		if fwCtx.ExecutionID == "" {
			t.Error("ExecutionID not generated")
		}
		return "ok", nil
	}

	e := event.New()
	e.SetType("google.cloud.pubsub.topic.v1.messagePublished")
	e.SetSource("test-source")

	if err := WrapCloudEvent("test-service", svc, handler)(context.Background(), e); err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
	assertStatuses(t, rec.get(), execution.StatusPending, execution.StatusStarted, execution.StatusSuccess)
}

func TestWrapCloudEvent_Failure(t *testing.T) {
	rec := &statusRecorder{}
	svc := &bootstrap.Service{DB: rec.db()}

	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		return nil, errors.New("simulated error")
	}

	err := WrapCloudEvent("test-service", svc, handler)(context.Background(), event.New())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	assertStatuses(t, rec.get(), execution.StatusPending, execution.StatusStarted, execution.StatusFailed)
}

func TestWrapCloudEvent_UnwrapsNestedEvent(t *testing.T) {
	svc := &bootstrap.Service{DB: &mocks.MockDatabase{}}

	expectedID := "inner-event-123"
	expectedType := "com.fitglue.social.comment.created"

	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		if e.ID() != expectedID {
			t.Errorf("Expected event ID %s, got %s", expectedID, e.ID())
		}
		if e.Type() != expectedType {
			t.Errorf("Expected event type %s, got %s", expectedType, e.Type())
		}
		var payload map[string]string
		if err := e.DataAs(&payload); err != nil || payload["foo"] != "bar" {
			t.Errorf("inner payload = %v, %v", payload, err)
		}
		return "ok", nil
	}

	inner := event.New()
	inner.SetID(expectedID)
	inner.SetType(expectedType)
	inner.SetSource("/test/source")
	if err := inner.SetData(event.ApplicationJSON, map[string]string{"foo": "bar"}); err != nil {
		t.Fatal(err)
	}
	psMsg, err := types.Envelope(inner)
	if err != nil {
		t.Fatal(err)
	}

	outer := event.New()
	outer.SetID("outer-msg-id")
	outer.SetType("google.cloud.pubsub.topic.v1.messagePublished")
	outer.SetSource("//pubsub")
	if err := outer.SetData(event.ApplicationJSON, psMsg); err != nil {
		t.Fatal(err)
	}

	if err := WrapCloudEvent("test-service", svc, handler)(context.Background(), outer); err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
}

func TestWrapHTTP(t *testing.T) {
	rec := &statusRecorder{}
	svc := &bootstrap.Service{DB: rec.db()}

	h := WrapHTTP("test-http", svc, func(w http.ResponseWriter, r *http.Request, fwCtx *FrameworkContext) (interface{}, error) {
		return map[string]bool{"changed": true}, nil
	})

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}")))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if strings.TrimSpace(w.Body.String()) != `{"changed":true}` {
		t.Errorf("body = %s", w.Body.String())
	}
	assertStatuses(t, rec.get(), execution.StatusPending, execution.StatusStarted, execution.StatusSuccess)
}

func TestWrapHTTP_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fgerrors.ErrPostNotFound, http.StatusNotFound},
		{"validation", fgerrors.ErrValidation.WithMessage("text required"), http.StatusBadRequest},
		{"bad token", fgerrors.ErrInvalidPageToken, http.StatusBadRequest},
		{"method", fgerrors.ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{"timeout", fgerrors.ErrTimeout, http.StatusGatewayTimeout},
		{"storage", fgerrors.ErrStorageError.WithMessage("save reaction"), http.StatusServiceUnavailable},
		{"retryable", fgerrors.ErrFetchFailed, http.StatusServiceUnavailable},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &bootstrap.Service{DB: &mocks.MockDatabase{}}
			h := WrapHTTP("test-http", svc, func(w http.ResponseWriter, r *http.Request, fwCtx *FrameworkContext) (interface{}, error) {
				return nil, tt.err
			})
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/", nil))

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			var body errorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != string(fgerrors.GetCode(tt.err)) {
				t.Errorf("code = %q", body.Code)
			}
			if tt.name == "plain" && body.Message != "internal error" {
				t.Errorf("internal error details leaked: %q", body.Message)
			}
		})
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var v struct {
		PostID string `json:"post_id"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"post_id":"p1","extra":1}`))
	if err := DecodeJSON(r, &v); !errors.Is(err, fgerrors.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}
