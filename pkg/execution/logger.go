package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of one function invocation.
type Status int32

const (
	StatusUnknown Status = iota
	StatusPending
	StatusStarted
	StatusSuccess
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusStarted:
		return "STARTED"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Record is the persisted trace of one invocation.
type Record struct {
	ExecutionID       string     `json:"execution_id" firestore:"execution_id"`
	Service           string     `json:"service" firestore:"service"`
	Status            Status     `json:"status" firestore:"status"`
	Timestamp         time.Time  `json:"timestamp" firestore:"timestamp"`
	StartTime         time.Time  `json:"start_time" firestore:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty" firestore:"end_time,omitempty"`
	UserID            string     `json:"user_id,omitempty" firestore:"user_id,omitempty"`
	TriggerType       string     `json:"trigger_type" firestore:"trigger_type"`
	ParentExecutionID string     `json:"parent_execution_id,omitempty" firestore:"parent_execution_id,omitempty"`
	InputsJSON        string     `json:"inputs_json,omitempty" firestore:"inputs_json,omitempty"`
	OutputsJSON       string     `json:"outputs_json,omitempty" firestore:"outputs_json,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty" firestore:"error_message,omitempty"`
}

// Store persists execution records
type Store interface {
	SetExecution(ctx context.Context, record *Record) error
	UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error
}

// ExecutionOptions contains optional fields for execution logging
type ExecutionOptions struct {
	UserID      string
	TriggerType string
	Inputs      interface{}
}

func newID(service string) string {
	return fmt.Sprintf("%s-%d", service, time.Now().UnixNano())
}

func encode(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// LogPending creates an execution record with PENDING status and captured inputs
func LogPending(ctx context.Context, db Store, service string, opts ExecutionOptions) (string, error) {
	execID := newID(service)
	now := time.Now().UTC()

	record := &Record{
		ExecutionID: execID,
		Service:     service,
		Status:      StatusPending,
		Timestamp:   now,
		StartTime:   now,
		UserID:      opts.UserID,
		TriggerType: opts.TriggerType,
		InputsJSON:  encode(opts.Inputs),
	}

	if err := db.SetExecution(ctx, record); err != nil {
		return execID, fmt.Errorf("failed to log execution pending: %w", err)
	}
	return execID, nil
}

// LogStart moves a record to STARTED and fills in metadata that was not known at PENDING time
func LogStart(ctx context.Context, db Store, execID string, inputs interface{}, opts *ExecutionOptions) error {
	updates := map[string]interface{}{
		"status":     int32(StatusStarted),
		"start_time": time.Now().UTC(),
	}
	if opts != nil {
		if opts.UserID != "" {
			updates["user_id"] = opts.UserID
		}
		if opts.TriggerType != "" {
			updates["trigger_type"] = opts.TriggerType
		}
	}
	if in := encode(inputs); in != "" {
		updates["inputs_json"] = in
	}

	if err := db.UpdateExecution(ctx, execID, updates); err != nil {
		return fmt.Errorf("failed to log execution start: %w", err)
	}
	return nil
}

// LogChildExecutionStart creates a STARTED record linked to a parent execution
func LogChildExecutionStart(ctx context.Context, db Store, service, parentExecutionID string, opts ExecutionOptions) (string, error) {
	execID := newID(service)
	now := time.Now().UTC()

	record := &Record{
		ExecutionID:       execID,
		Service:           service,
		Status:            StatusStarted,
		Timestamp:         now,
		StartTime:         now,
		UserID:            opts.UserID,
		TriggerType:       opts.TriggerType,
		ParentExecutionID: parentExecutionID,
		InputsJSON:        encode(opts.Inputs),
	}

	if err := db.SetExecution(ctx, record); err != nil {
		return execID, fmt.Errorf("failed to log child execution start: %w", err)
	}
	return execID, nil
}

// LogSuccess updates an execution record with SUCCESS status
func LogSuccess(ctx context.Context, db Store, execID string, outputs interface{}) error {
	return finish(ctx, db, execID, StatusSuccess, nil, outputs)
}

// LogFailure updates an execution record with FAILED status
func LogFailure(ctx context.Context, db Store, execID string, err error, outputs interface{}) error {
	return finish(ctx, db, execID, StatusFailed, err, outputs)
}

func finish(ctx context.Context, db Store, execID string, status Status, cause error, outputs interface{}) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":    int32(status),
		"timestamp": now,
		"end_time":  now,
	}
	if cause != nil {
		updates["error_message"] = cause.Error()
	}
	if out := encode(outputs); out != "" {
		updates["outputs_json"] = out
	}

	if err := db.UpdateExecution(ctx, execID, updates); err != nil {
		return fmt.Errorf("failed to log execution %s: %w", status, err)
	}
	return nil
}
