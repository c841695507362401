package cover

import (
	"context"

	"shelfscan/internal/book"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// CoverResolver resolves a single cover; it must not fail.
type CoverResolver interface {
	Resolve(ctx context.Context, title, author string) Outcome
}

// Update reports a real cover found for one book.
type Update struct {
	BookID  string  `json:"book_id"`
	Outcome Outcome `json:"outcome"`
}

// Loader resolves covers for a whole book list concurrently.
type Loader struct {
	resolver    CoverResolver
	maxInFlight int
	logger      zerolog.Logger
}

// NewLoader builds a loader. maxInFlight <= 0 runs one resolution per book at once.
func NewLoader(resolver CoverResolver, maxInFlight int, logger zerolog.Logger) *Loader {
	return &Loader{resolver: resolver, maxInFlight: maxInFlight, logger: logger}
}

type target struct {
	id, title, author string
}

// Stream starts one resolution per book and emits an Update for each real
// cover found, in completion order. Placeholder fallbacks are not emitted.
// The channel is closed once every resolution has settled.
func (l *Loader) Stream(ctx context.Context, books []book.Book) <-chan Update {
	targets := make([]target, len(books))
	for i, b := range books {
		targets[i] = target{id: b.ID, title: b.Title, author: b.Author}
	}

	updates := make(chan Update, len(targets))

	go func() {
		defer close(updates)

		var g errgroup.Group
		if l.maxInFlight > 0 {
			g.SetLimit(l.maxInFlight)
		}
		for _, t := range targets {
			t := t
			g.Go(func() error {
				out := l.resolver.Resolve(ctx, t.title, t.author)
				if out.IsResolved() {
					updates <- Update{BookID: t.id, Outcome: out}
				}
				return nil
			})
		}
		_ = g.Wait()

		l.logger.Debug().Int("books", len(targets)).Msg("cover loading settled")
	}()

	return updates
}

// Load runs Stream and calls fn for every update. It returns after all
// resolutions have settled.
func (l *Loader) Load(ctx context.Context, books []book.Book, fn func(Update)) {
	for u := range l.Stream(ctx, books) {
		fn(u)
	}
}
