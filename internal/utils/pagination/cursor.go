package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidToken is returned for page tokens this package did not issue.
var ErrInvalidToken = errors.New("invalid pagination token")

// Cursor is the opaque pagination state we encode/decode.
// DatingID + TimeUnix (in millis) establish a stable cursor over
// datings ordered newest first.
type Cursor struct {
	DatingID int64 `json:"dating_id"`
	TimeUnix int64 `json:"time_unix,omitempty"`
}

// At positions a cursor right after the row (id, t).
func At(id int64, t time.Time) Cursor {
	return Cursor{DatingID: id, TimeUnix: t.UnixMilli()}
}

// Time is the cursor timestamp in UTC.
func (c Cursor) Time() time.Time {
	return time.UnixMilli(c.TimeUnix).UTC()
}

// IsZero reports whether c points at the first page.
func (c Cursor) IsZero() bool {
	return c.DatingID == 0 && c.TimeUnix == 0
}

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidToken
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, ErrInvalidToken
	}
	if c.DatingID < 0 || c.TimeUnix < 0 {
		return Cursor{}, ErrInvalidToken
	}
	return c, nil
}
