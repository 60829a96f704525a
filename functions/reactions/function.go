package reactions

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/ripixel/fitglue-community/pkg/bootstrap"
	"github.com/ripixel/fitglue-community/pkg/domain/social"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
	"github.com/ripixel/fitglue-community/pkg/framework"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.HTTP("SetReaction", SetReaction)
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

type setReactionRequest struct {
	PostID  string `json:"post_id"`
	ActorID string `json:"actor_id"`
	Value   string `json:"value"`
}

type setReactionResponse struct {
	Changed bool `json:"changed"`
}

// SetReaction stores a like or unlike. Sending the stored value again is a no-op.
func SetReaction(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("service init failed: %v", err), http.StatusInternalServerError)
		return
	}
	framework.WrapHTTP("set-reaction", svc, setReactionHandler)(w, r)
}

func setReactionHandler(w http.ResponseWriter, r *http.Request, fwCtx *framework.FrameworkContext) (interface{}, error) {
	if err := framework.RequireMethod(r, http.MethodPost); err != nil {
		return nil, err
	}
	var req setReactionRequest
	if err := framework.DecodeJSON(r, &req); err != nil {
		return nil, err
	}
	if req.PostID == "" || req.ActorID == "" {
		return nil, fgerrors.ErrValidation.WithMessage("post_id and actor_id are required")
	}
	value, ok := social.ParseReactionValue(req.Value)
	if !ok {
		return nil, fgerrors.ErrValidation.WithMessage(`value must be "liked" or "unliked"`)
	}

	changed, err := fwCtx.Service.Feed.SetReaction(r.Context(), req.PostID, req.ActorID, value)
	if err != nil {
		return nil, err
	}
	fwCtx.Logger.Info("Reaction stored", "post_id", req.PostID, "actor_id", req.ActorID, "value", string(value), "changed", changed)
	return setReactionResponse{Changed: changed}, nil
}
