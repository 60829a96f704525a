package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ripixel/fitglue-community/pkg/bootstrap"
	"github.com/ripixel/fitglue-community/pkg/domain/social"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
	"github.com/ripixel/fitglue-community/pkg/pagination"
	"github.com/ripixel/fitglue-community/pkg/testing/mocks"
)

func injectService(t *testing.T, db *mocks.MockDatabase) {
	t.Helper()
	cfg := &bootstrap.Config{ProjectID: "test-project", StoreBackend: bootstrap.BackendFirestore, PageSize: 2, MaxPageSize: 10}
	s, err := bootstrap.Assemble(context.Background(), cfg, db, &mocks.MockPublisher{}, &mocks.MockSecretStore{}, nil)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	svc = s
	t.Cleanup(func() { svc = nil })
}

func TestActivityFeed(t *testing.T) {
	base := time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)
	var gotUser string
	db := &mocks.MockDatabase{
		FetchActivityPageFunc: func(ctx context.Context, userID string, cursor *social.SortKey, dir pagination.Direction, limit int) ([]social.ActivityItem, error) {
			gotUser = userID
			return []social.ActivityItem{
				{ID: "b", Kind: social.KindLike, ActorID: userID, PostID: "p1", CreatedAt: base.Add(time.Minute)},
				{ID: "a", Kind: social.KindComment, ActorID: userID, PostID: "p1", CreatedAt: base, Text: "nice"},
			}, nil
		},
	}
	injectService(t, db)

	w := httptest.NewRecorder()
	ActivityFeed(w, httptest.NewRequest(http.MethodGet, "/?user_id=u1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Items         []social.ActivityItem `json:"items"`
		NextPageToken string                `json:"next_page_token"`
		PrevPageToken string                `json:"prev_page_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotUser != "u1" || len(resp.Items) != 2 {
		t.Fatalf("user %q, items %+v", gotUser, resp.Items)
	}
	if resp.NextPageToken == "" {
		t.Error("full page should carry a next token")
	}
	if resp.PrevPageToken != "" {
		t.Error("first page should not carry a prev token")
	}
}

func TestActivityFeedBadInput(t *testing.T) {
	injectService(t, &mocks.MockDatabase{})

	tests := []struct {
		name   string
		method string
		url    string
		want   int
	}{
		{"missing user", http.MethodGet, "/", http.StatusBadRequest},
		{"bad page size", http.MethodGet, "/?user_id=u1&page_size=lots", http.StatusBadRequest},
		{"bad token", http.MethodGet, "/?user_id=u1&page_token=garbage", http.StatusBadRequest},
		{"wrong method", http.MethodPost, "/?user_id=u1", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ActivityFeed(w, httptest.NewRequest(tt.method, tt.url, nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestGetPost(t *testing.T) {
	db := &mocks.MockDatabase{
		GetPostFunc: func(ctx context.Context, postID string) (*social.Post, error) {
			if postID == "p1" {
				return &social.Post{ID: "p1", AuthorID: "author", Title: "Tempo", LikeCount: 3}, nil
			}
			return nil, fgerrors.ErrPostNotFound
		},
	}
	injectService(t, db)

	w := httptest.NewRecorder()
	GetPost(w, httptest.NewRequest(http.MethodGet, "/?post_id=p1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var post social.Post
	if err := json.Unmarshal(w.Body.Bytes(), &post); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if post.LikeCount != 3 || post.Title != "Tempo" {
		t.Errorf("post = %+v", post)
	}

	w = httptest.NewRecorder()
	GetPost(w, httptest.NewRequest(http.MethodGet, "/?post_id=ghost", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing post status = %d, want 404", w.Code)
	}
}
