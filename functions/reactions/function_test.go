package reactions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/ripixel/fitglue-community/pkg/bootstrap"
	"github.com/ripixel/fitglue-community/pkg/domain/social"
	"github.com/ripixel/fitglue-community/pkg/testing/mocks"
)

func TestSetReaction(t *testing.T) {
	stored := map[string]social.ReactionValue{}
	mockDB := &mocks.MockDatabase{
		GetPostFunc: func(ctx context.Context, postID string) (*social.Post, error) {
			return &social.Post{ID: postID, AuthorID: "author"}, nil
		},
		SaveReactionFunc: func(ctx context.Context, postID, actorID string, value social.ReactionValue) (bool, error) {
			key := postID + "/" + actorID
			if stored[key] == value {
				return false, nil
			}
			stored[key] = value
			return true, nil
		},
	}
	var published []string
	mockPub := &mocks.MockPublisher{
		PublishCloudEventFunc: func(ctx context.Context, topic string, e event.Event) (string, error) {
			published = append(published, e.Type())
			return "msg-1", nil
		},
	}

	cfg := &bootstrap.Config{ProjectID: "test-project", StoreBackend: bootstrap.BackendFirestore, PageSize: 5, MaxPageSize: 50}
	s, err := bootstrap.Assemble(context.Background(), cfg, mockDB, mockPub, &mocks.MockSecretStore{}, nil)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	svc = s
	defer func() { svc = nil }()

	body := `{"post_id":"p1","actor_id":"u2","value":"liked"}`
	for i, want := range []string{`{"changed":true}`, `{"changed":false}`} {
		w := httptest.NewRecorder()
		SetReaction(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		if w.Code != http.StatusOK {
			t.Fatalf("call %d status = %d, body = %s", i, w.Code, w.Body.String())
		}
		if got := strings.TrimSpace(w.Body.String()); got != want {
			t.Errorf("call %d body = %s, want %s", i, got, want)
		}
	}

	if len(published) != 1 || published[0] != social.EventTypeReactionChanged {
		t.Errorf("published = %v, want one reaction event", published)
	}

	w := httptest.NewRecorder()
	SetReaction(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"post_id":"p1","actor_id":"u2","value":"love"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown value status = %d, want 400", w.Code)
	}
}
