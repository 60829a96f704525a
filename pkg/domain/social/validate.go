package social

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
)

// MaxCommentLength is the longest comment accepted, in runes.
const MaxCommentLength = 1000

var commentPolicy = bluemonday.StrictPolicy()

// maxSanitizePasses bounds plainText; real input settles in one or two passes.
const maxSanitizePasses = 4

// plainText decodes entities, strips markup and decodes again until the text
// stops changing, so encoded markup cannot survive as tags.
func plainText(text string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		next := strings.TrimSpace(html.UnescapeString(commentPolicy.Sanitize(html.UnescapeString(text))))
		if next == text {
			break
		}
		text = next
	}
	return text
}

// ValidateCommentText strips markup and whitespace and enforces length limits.
// The returned text is plain (unescaped) and safe to store. Running it on its
// own output returns the same text.
func ValidateCommentText(text string) (string, error) {
	clean := plainText(text)
	if clean == "" {
		return "", fgerrors.ErrValidation.WithMessage("comment text is required")
	}
	if n := utf8.RuneCountInString(clean); n > MaxCommentLength {
		return "", fgerrors.ErrValidation.WithMessage(fmt.Sprintf("comment text is %d characters, limit is %d", n, MaxCommentLength))
	}
	return clean, nil
}

// Validate checks the identifiers on a comment write and sanitizes its text.
func (c NewComment) Validate() (NewComment, error) {
	if strings.TrimSpace(c.PostID) == "" {
		return c, fgerrors.ErrValidation.WithMessage("post id is required")
	}
	if strings.TrimSpace(c.AuthorID) == "" {
		return c, fgerrors.ErrValidation.WithMessage("author id is required")
	}
	if c.ParentAuthorID != "" && c.ParentID == "" {
		return c, fgerrors.ErrValidation.WithMessage("parent author given without parent comment")
	}
	text, err := ValidateCommentText(c.Text)
	if err != nil {
		return c, err
	}
	c.Text = text
	return c, nil
}
