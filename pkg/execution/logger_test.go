package execution_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ripixel/fitglue-community/pkg/execution"
)

type MockStore struct {
	SetExecutionFunc    func(ctx context.Context, record *execution.Record) error
	UpdateExecutionFunc func(ctx context.Context, id string, data map[string]interface{}) error
}

func (m *MockStore) SetExecution(ctx context.Context, record *execution.Record) error {
	if m.SetExecutionFunc != nil {
		return m.SetExecutionFunc(ctx, record)
	}
	return nil
}

func (m *MockStore) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateExecutionFunc != nil {
		return m.UpdateExecutionFunc(ctx, id, data)
	}
	return nil
}

func TestLogPending(t *testing.T) {
	store := &MockStore{
		SetExecutionFunc: func(ctx context.Context, record *execution.Record) error {
			if record.Status != execution.StatusPending {
				t.Errorf("Expected PENDING, got %v", record.Status)
			}
			if record.InputsJSON != "" {
				t.Errorf("Expected empty inputs JSON, got %q", record.InputsJSON)
			}
			if record.UserID != "user-1" {
				t.Errorf("Expected user-1, got %q", record.UserID)
			}
			return nil
		},
	}

	id, err := execution.LogPending(context.Background(), store, "feed", execution.ExecutionOptions{UserID: "user-1"})
	if err != nil {
		t.Fatalf("LogPending failed: %v", err)
	}
	if !strings.HasPrefix(id, "feed-") {
		t.Errorf("Expected ID to start with 'feed-', got %s", id)
	}
}

func TestLogPendingStoreError(t *testing.T) {
	store := &MockStore{
		SetExecutionFunc: func(ctx context.Context, record *execution.Record) error {
			return errors.New("unavailable")
		},
	}

	id, err := execution.LogPending(context.Background(), store, "feed", execution.ExecutionOptions{})
	if err == nil {
		t.Fatal("Expected error")
	}
	if id == "" {
		t.Error("Expected execution ID even on failure")
	}
}

func TestLogStart(t *testing.T) {
	store := &MockStore{
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			if status, ok := data["status"].(int32); !ok || execution.Status(status) != execution.StatusStarted {
				t.Errorf("Expected STARTED, got %v", data["status"])
			}
			if data["inputs_json"] != `{"post_id":"p1"}` {
				t.Errorf("Unexpected inputs_json %v", data["inputs_json"])
			}
			if data["user_id"] != "user-updated" {
				t.Errorf("Expected user_id 'user-updated', got %v", data["user_id"])
			}
			return nil
		},
	}

	inputs := map[string]string{"post_id": "p1"}
	if err := execution.LogStart(context.Background(), store, "exec-1", inputs, &execution.ExecutionOptions{UserID: "user-updated"}); err != nil {
		t.Fatalf("LogStart failed: %v", err)
	}
}

func TestLogSuccess(t *testing.T) {
	store := &MockStore{
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			if status, ok := data["status"].(int32); !ok || execution.Status(status) != execution.StatusSuccess {
				t.Errorf("Expected SUCCESS, got %v", data["status"])
			}
			if _, ok := data["error_message"]; ok {
				t.Error("Success must not carry an error message")
			}
			return nil
		},
	}

	if err := execution.LogSuccess(context.Background(), store, "exec-1", nil); err != nil {
		t.Fatalf("LogSuccess failed: %v", err)
	}
}

func TestLogFailureWithOutputs(t *testing.T) {
	store := &MockStore{
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			if status, ok := data["status"].(int32); !ok || execution.Status(status) != execution.StatusFailed {
				t.Errorf("Expected FAILED, got %v", data["status"])
			}
			if data["error_message"] != "oops" {
				t.Errorf("Expected oops, got %v", data["error_message"])
			}
			if data["outputs_json"] != `{"changed":false}` {
				t.Errorf("Unexpected outputs_json %v", data["outputs_json"])
			}
			return nil
		},
	}

	outputs := map[string]bool{"changed": false}
	if err := execution.LogFailure(context.Background(), store, "exec-1", errors.New("oops"), outputs); err != nil {
		t.Fatalf("LogFailure failed: %v", err)
	}
}

func TestLogChildExecutionStart(t *testing.T) {
	store := &MockStore{
		SetExecutionFunc: func(ctx context.Context, record *execution.Record) error {
			if record.Status != execution.StatusStarted {
				t.Errorf("Expected STARTED, got %v", record.Status)
			}
			if record.ParentExecutionID != "parent-exec-123" {
				t.Errorf("Expected parent-exec-123, got %q", record.ParentExecutionID)
			}
			return nil
		},
	}

	id, err := execution.LogChildExecutionStart(context.Background(), store, "notifier", "parent-exec-123", execution.ExecutionOptions{UserID: "user-1"})
	if err != nil {
		t.Fatalf("LogChildExecutionStart failed: %v", err)
	}
	if !strings.Contains(id, "notifier-") {
		t.Errorf("Expected ID to contain 'notifier-', got %s", id)
	}
}
