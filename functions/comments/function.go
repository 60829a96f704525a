package comments

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/ripixel/fitglue-community/pkg/bootstrap"
	"github.com/ripixel/fitglue-community/pkg/domain/social"
	"github.com/ripixel/fitglue-community/pkg/framework"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.HTTP("AddComment", AddComment)
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

type addCommentRequest struct {
	PostID         string `json:"post_id"`
	AuthorID       string `json:"author_id"`
	Text           string `json:"text"`
	ParentID       string `json:"parent_id,omitempty"`
	ParentAuthorID string `json:"parent_author_id,omitempty"`
}

// AddComment stores a comment (or reply) and returns it.
func AddComment(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("service init failed: %v", err), http.StatusInternalServerError)
		return
	}
	framework.WrapHTTP("add-comment", svc, addCommentHandler)(w, r)
}

func addCommentHandler(w http.ResponseWriter, r *http.Request, fwCtx *framework.FrameworkContext) (interface{}, error) {
	if err := framework.RequireMethod(r, http.MethodPost); err != nil {
		return nil, err
	}
	var req addCommentRequest
	if err := framework.DecodeJSON(r, &req); err != nil {
		return nil, err
	}

	created, err := fwCtx.Service.Feed.AddComment(r.Context(), social.NewComment{
		PostID:         req.PostID,
		AuthorID:       req.AuthorID,
		Text:           req.Text,
		ParentID:       req.ParentID,
		ParentAuthorID: req.ParentAuthorID,
	})
	if err != nil {
		return nil, err
	}
	fwCtx.Logger.Info("Comment stored", "post_id", created.PostID, "comment_id", created.ID, "reply", created.ParentID != "")
	return created, nil
}
