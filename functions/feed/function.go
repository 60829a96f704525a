package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/ripixel/fitglue-community/pkg/bootstrap"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
	"github.com/ripixel/fitglue-community/pkg/framework"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.HTTP("ActivityFeed", ActivityFeed)
	functions.HTTP("GetPost", GetPost)
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

// ActivityFeed serves GET ?user_id=&page_token=&page_size=
func ActivityFeed(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("service init failed: %v", err), http.StatusInternalServerError)
		return
	}
	framework.WrapHTTP("activity-feed", svc, activityFeedHandler)(w, r)
}

func activityFeedHandler(w http.ResponseWriter, r *http.Request, fwCtx *framework.FrameworkContext) (interface{}, error) {
	if err := framework.RequireMethod(r, http.MethodGet); err != nil {
		return nil, err
	}
	q := r.URL.Query()
	pageSize := 0
	if raw := strings.TrimSpace(q.Get("page_size")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fgerrors.ErrValidation.WithMessage("page_size must be a non-negative integer")
		}
		pageSize = n
	}

	page, err := fwCtx.Service.Feed.ActivityPage(r.Context(), q.Get("user_id"), q.Get("page_token"), pageSize)
	if err != nil {
		return nil, err
	}
	fwCtx.Logger.Info("Served activity page", "user_id", q.Get("user_id"), "items", len(page.Items), "has_next", page.NextPageToken != "")
	return page, nil
}

// GetPost serves GET ?post_id=
func GetPost(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("service init failed: %v", err), http.StatusInternalServerError)
		return
	}
	framework.WrapHTTP("get-post", svc, getPostHandler)(w, r)
}

func getPostHandler(w http.ResponseWriter, r *http.Request, fwCtx *framework.FrameworkContext) (interface{}, error) {
	if err := framework.RequireMethod(r, http.MethodGet); err != nil {
		return nil, err
	}
	postID := strings.TrimSpace(r.URL.Query().Get("post_id"))
	if postID == "" {
		return nil, fgerrors.ErrValidation.WithMessage("post_id is required")
	}

	lookup, err := fwCtx.Service.Feed.GetPost(r.Context(), postID)
	if err != nil {
		return nil, err
	}
	if err := lookup.Err(); err != nil {
		return nil, err
	}
	return lookup.Value, nil
}
