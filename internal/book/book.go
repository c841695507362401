package book

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a book is not part of the current working set.
var ErrNotFound = errors.New("book not found")

const (
	DefaultTitle   = "Unknown title"
	DefaultAuthor  = "Unknown author"
	DefaultSummary = "No summary available."
)

// Book is one detected entry of an extraction run.
type Book struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	Summary string `json:"summary"`
	Genre   Genre  `json:"genre"`
	Status  Status `json:"status"`
	Cover   Cover  `json:"cover"`
}

// CoverSource tells whether a cover was generated locally or found upstream.
type CoverSource string

const (
	CoverPlaceholder CoverSource = "placeholder"
	CoverResolved    CoverSource = "resolved"
)

// Cover is the image locator shown for a book.
type Cover struct {
	URL    string      `json:"url"`
	Source CoverSource `json:"source"`
}

// PlaceholderCover wraps a generated locator.
func PlaceholderCover(url string) Cover {
	return Cover{URL: url, Source: CoverPlaceholder}
}

// IsPlaceholder reports whether the cover can still be upgraded.
func (c Cover) IsPlaceholder() bool {
	return c.Source != CoverResolved
}

// Upgrade replaces a placeholder with a resolved locator. A resolved cover
// is never replaced again.
func (c *Cover) Upgrade(url string) bool {
	if !c.IsPlaceholder() || url == "" {
		return false
	}
	c.URL = url
	c.Source = CoverResolved
	return true
}

// NewID returns a fresh identifier for a book record.
func NewID() string {
	return uuid.NewString()
}

// Query filters the working set the way the toolbar does: free-text search
// on title or author plus optional status and genre.
type Query struct {
	Search string
	Status Status
	Genre  Genre
}

// Matches reports whether b passes every filter set on q.
func (q Query) Matches(b Book) bool {
	if s := strings.ToLower(strings.TrimSpace(q.Search)); s != "" {
		if !strings.Contains(strings.ToLower(b.Title), s) && !strings.Contains(strings.ToLower(b.Author), s) {
			return false
		}
	}
	if q.Status != "" && b.Status != q.Status {
		return false
	}
	if q.Genre != "" && b.Genre != q.Genre {
		return false
	}
	return true
}

// Filter returns the books matching q, preserving order.
func Filter(books []Book, q Query) []Book {
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if q.Matches(b) {
			out = append(out, b)
		}
	}
	return out
}
