package secrets

import (
	"context"
	"hash/crc32"
	"testing"
)

func TestGetSecret_EnvVar(t *testing.T) {
	t.Setenv("page_token_key", "local_value")

	adapter := &SecretsAdapter{}
	val, err := adapter.GetSecret(context.Background(), "test-project", "page_token_key")
	if err != nil {
		t.Fatalf("Expected check to succeed, got error: %v", err)
	}
	if val != "local_value" {
		t.Errorf("Expected 'local_value', got '%s'", val)
	}
}

func TestGetSecret_UpperCaseEnvVar(t *testing.T) {
	t.Setenv("PAGE_TOKEN_KEY", "upper_value")

	adapter := &SecretsAdapter{}
	val, err := adapter.GetSecret(context.Background(), "test-project", "page_token_key")
	if err != nil {
		t.Fatalf("Expected check to succeed, got error: %v", err)
	}
	if val != "upper_value" {
		t.Errorf("Expected 'upper_value', got '%s'", val)
	}
}

func TestChecksumMatches(t *testing.T) {
	data := []byte("s3cret")
	sum := int64(crc32.Checksum(data, crc32.MakeTable(crc32.Castagnoli)))
	bad := sum + 1

	if !checksumMatches(data, nil) {
		t.Error("missing checksum should pass")
	}
	if !checksumMatches(data, &sum) {
		t.Error("matching checksum should pass")
	}
	if checksumMatches(data, &bad) {
		t.Error("mismatched checksum should fail")
	}
}

func TestGetSecret_EnvOnlyMissing(t *testing.T) {
	adapter := &SecretsAdapter{EnvOnly: true}
	if _, err := adapter.GetSecret(context.Background(), "test-project", "fitglue_missing_secret"); err == nil {
		t.Fatal("Expected error for missing env-only secret")
	}
}
