package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestWrappedSentinelMatchesIs(t *testing.T) {
	err := fmt.Errorf("save reaction: %w", ErrWriteFailed.WithCause(stderrors.New("deadline")))

	if !stderrors.Is(err, ErrWriteFailed) {
		t.Fatal("expected wrapped error to match ErrWriteFailed")
	}
	if stderrors.Is(err, ErrFetchFailed) {
		t.Error("did not expect match against a different code")
	}
	if GetCode(err) != CodeWriteFailed {
		t.Errorf("GetCode = %s, want %s", GetCode(err), CodeWriteFailed)
	}
	if !IsRetryable(err) {
		t.Error("expected write failure to be retryable")
	}
}

func TestGetCodeDefaults(t *testing.T) {
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %q, want empty", got)
	}
	if got := GetCode(stderrors.New("plain")); got != CodeInternalError {
		t.Errorf("GetCode(plain) = %q, want %q", got, CodeInternalError)
	}
}

func TestWithMetadataDoesNotMutateSentinel(t *testing.T) {
	e := ErrPostNotFound.WithMetadata("post_id", "p1")

	if e.Metadata["post_id"] != "p1" {
		t.Errorf("expected metadata post_id=p1, got %v", e.Metadata)
	}
	if len(ErrPostNotFound.Metadata) != 0 {
		t.Error("sentinel metadata was mutated")
	}
	if !IsNotFound(e) {
		t.Error("expected IsNotFound to be true")
	}
}

func TestErrorString(t *testing.T) {
	e := Wrap(stderrors.New("boom"), CodeStorageError, "write failed")
	want := "[STORAGE_ERROR] write failed: boom"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}
