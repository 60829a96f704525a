package secrets

import (
	"context"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	shared "github.com/ripixel/fitglue-community/pkg"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
)

// SecretsAdapter reads secrets from Secret Manager. An environment variable
// named after the secret (as-is, then upper-cased) takes precedence, which is
// how local runs supply the page token key.
type SecretsAdapter struct {
	Logger *slog.Logger
	// EnvOnly disables Secret Manager; a secret missing from the environment is an error.
	EnvOnly bool
}

var _ shared.SecretStore = (*SecretsAdapter)(nil)

func (a *SecretsAdapter) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *SecretsAdapter) GetSecret(ctx context.Context, projectID, secretName string) (string, error) {
	if val, ok := lookupEnv(secretName); ok {
		a.logger().Debug("Using local env var for secret", "component", "secrets", "secret", secretName)
		return val, nil
	}
	if a.EnvOnly {
		return "", fgerrors.ErrSecretError.WithMessage("secret not set in environment").WithMetadata("secret", secretName)
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", fgerrors.ErrSecretError.WithMessage("create secretmanager client").WithCause(err)
	}
	defer client.Close()

	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, secretName)
	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fgerrors.ErrSecretError.WithCause(err).WithMetadata("secret", secretName)
	}

	if !checksumMatches(result.Payload.Data, result.Payload.DataCrc32C) {
		return "", fgerrors.ErrSecretError.WithMessage("data corruption detected").WithMetadata("secret", secretName)
	}
	return string(result.Payload.Data), nil
}

func lookupEnv(name string) (string, bool) {
	if val := os.Getenv(name); val != "" {
		return val, true
	}
	if val := os.Getenv(strings.ToUpper(name)); val != "" {
		return val, true
	}
	return "", false
}

func checksumMatches(data []byte, want *int64) bool {
	if want == nil {
		return true
	}
	crc32c := crc32.MakeTable(crc32.Castagnoli)
	return int64(crc32.Checksum(data, crc32c)) == *want
}
