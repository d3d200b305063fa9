// Package cursor provides opaque pagination token encoding/decoding for the
// security event journal.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cursor represents the internal state of a journal pagination cursor.
// The journal is append-only, so cursors paginate forward only.
type Cursor struct {
	// Seq is the last sequence number the previous page delivered.
	// The next page starts at seq > Seq.
	Seq int64 `json:"seq"`
}

// Encode encodes a cursor to an opaque base64 string.
func Encode(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode decodes an opaque base64 string to a cursor.
// Returns an error if the token is invalid or malformed.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, fmt.Errorf("empty token")
	}

	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode base64: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}
	return c, nil
}
