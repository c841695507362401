// Package cover finds real cover images for detected books and streams
// them back as they resolve.
package cover

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// ISBNSearcher queries a bibliographic search API for the best match's ISBNs.
type ISBNSearcher interface {
	SearchISBNs(ctx context.Context, q string) ([]string, error)
}

// ISBNResolver maps (title, author) to a single ISBN. Lookup failures are
// soft misses: they are logged and reported as "not found".
type ISBNResolver struct {
	searcher ISBNSearcher
	logger   zerolog.Logger
}

func NewISBNResolver(searcher ISBNSearcher, logger zerolog.Logger) *ISBNResolver {
	return &ISBNResolver{searcher: searcher, logger: logger}
}

// FindISBN prefers an ISBN-13 among the candidates and otherwise takes the first one.
func (r *ISBNResolver) FindISBN(ctx context.Context, title, author string) (string, bool) {
	candidates, err := r.searcher.SearchISBNs(ctx, title+" "+author)
	if err != nil {
		r.logger.Debug().Err(err).Str("title", title).Msg("isbn search failed")
		return "", false
	}
	return PickISBN(candidates)
}

// PickISBN returns the first candidate starting with 978 or 979, else the
// first non-empty candidate.
func PickISBN(candidates []string) (string, bool) {
	for _, c := range candidates {
		if strings.HasPrefix(c, "978") || strings.HasPrefix(c, "979") {
			return c, true
		}
	}
	for _, c := range candidates {
		if c != "" {
			return c, true
		}
	}
	return "", false
}
