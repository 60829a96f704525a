package pagination

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ripixel/fitglue-community/pkg/domain/social"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
)

// PageToken is the opaque state handed to HTTP clients between page requests.
type PageToken struct {
	Key social.SortKey `json:"k"`
	Dir Direction      `json:"d"`
}

// TokenCodec signs and verifies page tokens so clients cannot forge cursors.
type TokenCodec struct {
	key []byte
}

// NewTokenCodec returns a codec keyed by secret. An empty secret still
// produces well-formed tokens but offers no tamper protection.
func NewTokenCodec(secret []byte) *TokenCodec {
	k := make([]byte, len(secret))
	copy(k, secret)
	return &TokenCodec{key: k}
}

// Encode serializes t as base64url(json) "." base64url(hmac).
func (c *TokenCodec) Encode(t PageToken) (string, error) {
	if !t.Dir.Valid() {
		return "", fmt.Errorf("invalid token direction: %q", t.Dir)
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(c.sign(payload)), nil
}

// Decode verifies and parses a token produced by Encode.
func (c *TokenCodec) Decode(token string) (PageToken, error) {
	if token == "" {
		return PageToken{}, fgerrors.ErrInvalidPageToken.WithMessage("empty token")
	}
	body, sig, ok := strings.Cut(token, ".")
	if !ok {
		return PageToken{}, fgerrors.ErrInvalidPageToken.WithMessage("malformed token")
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return PageToken{}, fgerrors.ErrInvalidPageToken.WithCause(err)
	}
	mac, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return PageToken{}, fgerrors.ErrInvalidPageToken.WithCause(err)
	}
	if !hmac.Equal(mac, c.sign(payload)) {
		return PageToken{}, fgerrors.ErrInvalidPageToken.WithMessage("signature mismatch")
	}

	var t PageToken
	if err := json.Unmarshal(payload, &t); err != nil {
		return PageToken{}, fgerrors.ErrInvalidPageToken.WithCause(err)
	}
	if !t.Dir.Valid() || t.Key.ID == "" {
		return PageToken{}, fgerrors.ErrInvalidPageToken.WithMessage("incomplete token")
	}
	return t, nil
}

func (c *TokenCodec) sign(payload []byte) []byte {
	h := hmac.New(sha256.New, c.key)
	h.Write(payload)
	return h.Sum(nil)
}
