package book

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrInvalidCursor is returned when a cursor does not point into the list
// it is applied to, e.g. after a new scan replaced it.
var ErrInvalidCursor = errors.New("invalid cursor")

// CursorData is the position encoded in a page cursor.
type CursorData struct {
	RunID   string `json:"run_id,omitempty"`
	AfterID string `json:"after_id,omitempty"`
}

// EncodeCursor encodes cursor data as URL-safe base64 JSON.
func EncodeCursor(data CursorData) string {
	if data.AfterID == "" {
		return ""
	}
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(jsonBytes)
}

// DecodeCursor decodes a cursor string; the empty string is the first page.
func DecodeCursor(cursor string) (CursorData, error) {
	if cursor == "" {
		return CursorData{}, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return CursorData{}, ErrInvalidCursor
	}

	var data CursorData
	if err := json.Unmarshal(decoded, &data); err != nil {
		return CursorData{}, ErrInvalidCursor
	}
	return data, nil
}

// Paginate returns up to limit books following afterID, and the id to
// continue from ("" on the last page). limit <= 0 returns everything.
func Paginate(books []Book, afterID string, limit int) ([]Book, string, error) {
	start := 0
	if afterID != "" {
		start = -1
		for i, b := range books {
			if b.ID == afterID {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, "", ErrInvalidCursor
		}
	}

	rest := books[start:]
	if limit <= 0 || len(rest) <= limit {
		return rest, "", nil
	}
	page := rest[:limit]
	return page, page[len(page)-1].ID, nil
}
