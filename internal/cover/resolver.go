package cover

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"shelfscan/internal/book"
	"shelfscan/internal/placeholder"
	"shelfscan/internal/platform/cache"

	"github.com/rs/zerolog"
)

// Kind tags how a cover was obtained.
type Kind string

const (
	Resolved              Kind = "resolved"
	FellBackToPlaceholder Kind = "placeholder"
)

// Fallback reasons.
const (
	ReasonNoISBN      = "no isbn"
	ReasonNotFound    = "cover not found"
	ReasonProbeFailed = "cover probe failed"
)

// Outcome is the result of resolving one book's cover. URL is never empty.
type Outcome struct {
	Kind   Kind   `json:"kind"`
	URL    string `json:"url"`
	ISBN   string `json:"isbn,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// IsResolved reports whether a real cover was found.
func (o Outcome) IsResolved() bool {
	return o.Kind == Resolved
}

// Cover converts the outcome into a book cover.
func (o Outcome) Cover() book.Cover {
	if o.IsResolved() {
		return book.Cover{URL: o.URL, Source: book.CoverResolved}
	}
	return book.PlaceholderCover(o.URL)
}

// ISBNFinder looks up an ISBN for a title/author pair.
type ISBNFinder interface {
	FindISBN(ctx context.Context, title, author string) (string, bool)
}

// CoverProber checks whether a cover image exists for an ISBN.
type CoverProber interface {
	CoverExists(ctx context.Context, isbn string) (bool, error)
	CoverURL(isbn string) string
}

// Resolver turns (title, author) into a cover locator, falling back to the
// generated placeholder whenever a real cover cannot be confirmed.
type Resolver struct {
	isbns       ISBNFinder
	covers      CoverProber
	placeholder *placeholder.Generator
	cache       cache.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

type ResolverConfig struct {
	Placeholder *placeholder.Generator
	// Cache memoizes resolved covers only; nil disables it.
	Cache    cache.Client
	CacheTTL time.Duration
}

func NewResolver(isbns ISBNFinder, covers CoverProber, cfg ResolverConfig, logger zerolog.Logger) *Resolver {
	if cfg.Placeholder == nil {
		cfg.Placeholder = placeholder.Default
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.Nop{}
	}
	return &Resolver{
		isbns:       isbns,
		covers:      covers,
		placeholder: cfg.Placeholder,
		cache:       cfg.Cache,
		cacheTTL:    cfg.CacheTTL,
		logger:      logger,
	}
}

// Resolve never fails: every miss returns the placeholder for the same pair.
func (r *Resolver) Resolve(ctx context.Context, title, author string) Outcome {
	key := cache.Key("cover", title, author)
	if out, ok := r.cached(ctx, key); ok {
		return out
	}

	isbn, ok := r.isbns.FindISBN(ctx, title, author)
	if !ok {
		return r.fallback(title, author, "", ReasonNoISBN)
	}

	exists, err := r.covers.CoverExists(ctx, isbn)
	if err != nil {
		r.logger.Debug().Err(err).Str("isbn", isbn).Msg("cover probe failed")
		return r.fallback(title, author, isbn, ReasonProbeFailed)
	}
	if !exists {
		return r.fallback(title, author, isbn, ReasonNotFound)
	}

	out := Outcome{Kind: Resolved, URL: r.covers.CoverURL(isbn), ISBN: isbn}
	r.logger.Debug().Str("title", title).Str("isbn", isbn).Msg("cover found")
	r.store(ctx, key, out)
	return out
}

func (r *Resolver) fallback(title, author, isbn, reason string) Outcome {
	r.logger.Debug().Str("title", title).Str("reason", reason).Msg("using placeholder cover")
	return Outcome{
		Kind:   FellBackToPlaceholder,
		URL:    r.placeholder.URL(title, author),
		ISBN:   isbn,
		Reason: reason,
	}
}

func (r *Resolver) cached(ctx context.Context, key string) (Outcome, bool) {
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Debug().Err(err).Msg("cover cache read failed")
		}
		return Outcome{}, false
	}
	var out Outcome
	if err := json.Unmarshal(raw, &out); err != nil || !out.IsResolved() || out.URL == "" {
		return Outcome{}, false
	}
	return out, true
}

func (r *Resolver) store(ctx context.Context, key string, out Outcome) {
	raw, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.cacheTTL); err != nil {
		r.logger.Debug().Err(err).Msg("cover cache write failed")
	}
}
