package api

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/luno/jettison/errors"

	"example.com/workouts/internal/domain"
)

// Cursor marks the last workout of a page.
type Cursor struct {
	Date time.Time
	ID   domain.ID
}

// EncodeCursor serialises the cursor to a string token.
func EncodeCursor(c *Cursor) string {
	if c == nil {
		return ""
	}
	raw := c.Date.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses the encoded cursor token. A blank token yields nil.
func DecodeCursor(token string) (*Cursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, errors.Wrap(err, "decode cursor")
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, errors.New("invalid cursor format")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, errors.Wrap(err, "parse cursor time")
	}
	return &Cursor{Date: ts, ID: domain.ID(parts[1])}, nil
}
