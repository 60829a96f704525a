package pagination

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ripixel/fitglue-community/pkg/domain/social"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
)

func TestTokenRoundTrip(t *testing.T) {
	codec := NewTokenCodec([]byte("secret"))
	want := PageToken{
		Key: social.SortKey{CreatedAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC), ID: "c07"},
		Dir: DirectionPrev,
	}

	token, err := codec.Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Dir != want.Dir || got.Key.ID != want.Key.ID || !got.Key.CreatedAt.Equal(want.Key.CreatedAt) {
		t.Errorf("Decode = %+v, want %+v", got, want)
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	codec := NewTokenCodec([]byte("secret"))
	token, err := codec.Encode(PageToken{Key: social.SortKey{ID: "c01"}, Dir: DirectionNext})
	if err != nil {
		t.Fatal(err)
	}
	body, sig, _ := strings.Cut(token, ".")

	forged, err := NewTokenCodec([]byte("other")).Encode(PageToken{Key: social.SortKey{ID: "c99"}, Dir: DirectionNext})
	if err != nil {
		t.Fatal(err)
	}
	forgedBody, _, _ := strings.Cut(forged, ".")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no separator", body},
		{"bad base64", "!!!." + sig},
		{"swapped payload", forgedBody + "." + sig},
		{"other key", forged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token)
			if !errors.Is(err, fgerrors.ErrInvalidPageToken) {
				t.Errorf("Decode(%q) err = %v, want invalid page token", tt.token, err)
			}
		})
	}
}

func TestTokenEncodeRejectsUnknownDirection(t *testing.T) {
	if _, err := NewTokenCodec(nil).Encode(PageToken{Key: social.SortKey{ID: "x"}, Dir: "sideways"}); err == nil {
		t.Error("expected error for unknown direction")
	}
}

func TestCursorStoreSet(t *testing.T) {
	s := NewCursorStore()
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	c := CursorFromItems([]social.ActivityItem{{ID: "a"}, {ID: "b"}})
	if err := s.Set(2, c); err == nil {
		t.Error("expected gap to be rejected")
	}
	if err := s.Set(1, c); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	got, ok := s.Get(1)
	if !ok || got.First.ID != "a" || got.Last.ID != "b" {
		t.Errorf("Get(1) = %+v, %v", got, ok)
	}
	if err := s.Set(1, CursorFromItems([]social.ActivityItem{{ID: "z"}})); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if got, _ := s.Get(1); got.First.ID != "z" {
		t.Errorf("refresh not applied: %+v", got)
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"": DirectionNext, "next": DirectionNext, "prev": DirectionPrev} {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDirection("up"); err == nil {
		t.Error("expected error for unknown direction")
	}
}
