// Package shelf keeps the books of the latest scan and applies cover
// updates to them as they arrive.
package shelf

import (
	"sync"

	"shelfscan/internal/book"
	"shelfscan/internal/cover"

	"github.com/google/uuid"
)

// Run identifies one extraction result. Cover updates carry the run they
// were started for so late arrivals from a replaced list are dropped.
type Run struct {
	ID    string      `json:"run_id"`
	Books []book.Book `json:"books"`
}

// Snapshot is a consistent copy of the library state.
type Snapshot struct {
	RunID         string      `json:"run_id"`
	Books         []book.Book `json:"books"`
	CoversPending int         `json:"covers_pending"`
}

// Library is the in-memory working set. Safe for concurrent use.
type Library struct {
	mu      sync.RWMutex
	runID   string
	books   []book.Book
	index   map[string]int
	pending int
}

func NewLibrary() *Library {
	return &Library{index: map[string]int{}}
}

// Replace discards the current list and starts a new run with books.
func (l *Library) Replace(books []book.Book) Run {
	copied := make([]book.Book, len(books))
	copy(copied, books)

	index := make(map[string]int, len(copied))
	pending := 0
	for i, b := range copied {
		index[b.ID] = i
		if b.Cover.IsPlaceholder() {
			pending++
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.runID = uuid.NewString()
	l.books = copied
	l.index = index
	l.pending = pending

	out := make([]book.Book, len(copied))
	copy(out, copied)
	return Run{ID: l.runID, Books: out}
}

// ApplyCover upgrades one book's placeholder cover. It reports false when
// the run is stale, the book is unknown or the cover was already resolved.
func (l *Library) ApplyCover(runID string, u cover.Update) bool {
	if !u.Outcome.IsResolved() || u.Outcome.URL == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if runID != l.runID {
		return false
	}
	i, ok := l.index[u.BookID]
	if !ok {
		return false
	}
	if !l.books[i].Cover.Upgrade(u.Outcome.URL) {
		return false
	}
	if l.pending > 0 {
		l.pending--
	}
	return true
}

// Settle marks cover loading for runID as finished. Books that never got
// an update keep their placeholder.
func (l *Library) Settle(runID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if runID == l.runID {
		l.pending = 0
	}
}

func (l *Library) RunID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.runID
}

// List returns the books of the current run that match q, in extraction order.
func (l *Library) List(q book.Query) []book.Book {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return book.Filter(l.books, q)
}

// Get returns a book of the current run by id.
func (l *Library) Get(id string) (book.Book, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.index[id]
	if !ok {
		return book.Book{}, book.ErrNotFound
	}
	return l.books[i], nil
}

func (l *Library) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	books := make([]book.Book, len(l.books))
	copy(books, l.books)
	return Snapshot{RunID: l.runID, Books: books, CoversPending: l.pending}
}
