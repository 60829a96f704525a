package framework

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/ripixel/fitglue-community/pkg/bootstrap"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
	"github.com/ripixel/fitglue-community/pkg/execution"
	"github.com/ripixel/fitglue-community/pkg/types"
)

// FrameworkContext is handed to every wrapped handler.
type FrameworkContext struct {
	Service     *bootstrap.Service
	Logger      *slog.Logger
	ExecutionID string
}

// HandlerFunc is the signature for a CloudEvent function handler.
// Returns outputs (for execution logging) and error.
type HandlerFunc func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error)

// HTTPHandlerFunc is the signature for an HTTP function handler. The returned
// value is written as the JSON response body.
type HTTPHandlerFunc func(w http.ResponseWriter, r *http.Request, fwCtx *FrameworkContext) (interface{}, error)

func (c *FrameworkContext) baseLogger() *slog.Logger {
	if c.Service != nil && c.Service.Logger != nil {
		return c.Service.Logger
	}
	return slog.Default()
}

// begin records PENDING then STARTED for one invocation. Logging failures
// never fail the function.
func begin(ctx context.Context, serviceName, trigger string, svc *bootstrap.Service, inputs interface{}) *FrameworkContext {
	fwCtx := &FrameworkContext{Service: svc}
	logger := fwCtx.baseLogger().With("service", serviceName)

	execID, err := execution.LogPending(ctx, svc.DB, serviceName, execution.ExecutionOptions{TriggerType: trigger})
	if err != nil {
		logger.Error("Failed to log execution pending", "error", err)
	}
	if err := execution.LogStart(ctx, svc.DB, execID, inputs, nil); err != nil {
		logger.Warn("Failed to log execution start", "error", err)
	}

	fwCtx.ExecutionID = execID
	fwCtx.Logger = logger.With("execution_id", execID)
	fwCtx.Logger.Info("Function started")
	return fwCtx
}

func finish(ctx context.Context, fwCtx *FrameworkContext, outputs interface{}, handlerErr error) {
	db := fwCtx.Service.DB
	if handlerErr != nil {
		fwCtx.Logger.Error("Function failed", "error", handlerErr, "code", string(fgerrors.GetCode(handlerErr)))
		if logErr := execution.LogFailure(ctx, db, fwCtx.ExecutionID, handlerErr, outputs); logErr != nil {
			fwCtx.Logger.Warn("Failed to log execution failure", "error", logErr)
		}
		return
	}
	fwCtx.Logger.Info("Function completed successfully")
	if logErr := execution.LogSuccess(ctx, db, fwCtx.ExecutionID, outputs); logErr != nil {
		fwCtx.Logger.Warn("Failed to log execution success", "error", logErr)
	}
}

// WrapCloudEvent wraps a handler with execution logging. Events delivered
// inside a Pub/Sub envelope are unwrapped so the handler sees the CloudEvent
// that was originally published.
func WrapCloudEvent(serviceName string, svc *bootstrap.Service, handler HandlerFunc) func(context.Context, event.Event) error {
	return func(ctx context.Context, e event.Event) error {
		inner := unwrapPubSub(e)
		fwCtx := begin(ctx, serviceName, "pubsub", svc, map[string]string{"event_id": inner.ID(), "event_type": inner.Type()})

		outputs, err := handler(ctx, inner, fwCtx)
		finish(ctx, fwCtx, outputs, err)
		return err
	}
}

func unwrapPubSub(e event.Event) event.Event {
	var msg types.PubSubMessage
	if err := json.Unmarshal(e.Data(), &msg); err != nil {
		return e
	}
	if inner, ok := msg.Inner(); ok {
		return inner
	}
	return e
}

// WrapHTTP wraps an HTTP handler with execution logging, JSON encoding and
// error-code to status mapping.
func WrapHTTP(serviceName string, svc *bootstrap.Service, handler HTTPHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		fwCtx := begin(ctx, serviceName, "http", svc, map[string]string{"method": r.Method, "path": r.URL.Path, "query": r.URL.RawQuery})

		out, err := handler(w, r, fwCtx)
		finish(ctx, fwCtx, out, err)
		if err != nil {
			writeJSON(w, StatusFor(err), errorBody(err))
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// StatusFor maps an error onto the HTTP status a client should see.
func StatusFor(err error) int {
	switch fgerrors.GetCode(err) {
	case fgerrors.CodePostNotFound, fgerrors.CodeCommentNotFound:
		return http.StatusNotFound
	case fgerrors.CodeValidationError, fgerrors.CodeInvalidPageToken:
		return http.StatusBadRequest
	case fgerrors.CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case fgerrors.CodeTimeoutError:
		return http.StatusGatewayTimeout
	}
	if fgerrors.IsRetryable(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func errorBody(err error) errorResponse {
	code := fgerrors.GetCode(err)
	msg := "internal error"
	if code != fgerrors.CodeInternalError {
		msg = err.Error()
	}
	return errorResponse{Code: string(code), Message: msg, Retryable: fgerrors.IsRetryable(err)}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// DecodeJSON reads a JSON request body into v, reporting malformed input as a validation error.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fgerrors.ErrValidation.WithMessage("malformed request body").WithCause(err)
	}
	return nil
}

// RequireMethod rejects requests whose method is not one of allowed.
func RequireMethod(r *http.Request, allowed ...string) error {
	for _, m := range allowed {
		if r.Method == m {
			return nil
		}
	}
	return fgerrors.ErrMethodNotAllowed.WithMetadata("method", r.Method)
}
