package shelf

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"shelfscan/internal/book"
	"shelfscan/internal/cover"
	"shelfscan/internal/extract"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeInfo    NoticeKind = "info"
	NoticeWarning NoticeKind = "warning"
)

// Notice is a short user-facing message about an action.
type Notice struct {
	ID      string     `json:"id"`
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

func newNotice(kind NoticeKind, format string, args ...any) Notice {
	return Notice{ID: uuid.NewString(), Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Analyzer turns an image into a parsed book list.
type Analyzer interface {
	Analyze(ctx context.Context, img extract.Image, apiKey string) ([]book.Book, error)
}

// CoverStreamer resolves covers in the background and streams real ones back.
type CoverStreamer interface {
	Stream(ctx context.Context, books []book.Book) <-chan cover.Update
}

// ScanResult is what a successful scan hands back before covers load.
type ScanResult struct {
	RunID  string      `json:"run_id"`
	Books  []book.Book `json:"books"`
	Notice Notice      `json:"notice"`
}

// Service ties extraction, cover loading and the working set together.
type Service struct {
	analyzer Analyzer
	covers   CoverStreamer
	library  *Library
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(analyzer Analyzer, covers CoverStreamer, library *Library, logger zerolog.Logger) *Service {
	return &Service{
		analyzer: analyzer,
		covers:   covers,
		library:  library,
		logger:   logger,
	}
}

func (s *Service) Library() *Library {
	return s.library
}

// Scan extracts books from img, replaces the working set and starts cover
// loading for the new run. On error the previous list is left untouched.
func (s *Service) Scan(ctx context.Context, img extract.Image, apiKey string) (ScanResult, error) {
	books, err := s.analyzer.Analyze(ctx, img, apiKey)
	if err != nil {
		return ScanResult{}, err
	}

	// Replace and startCovers share one critical section so the newest run
	// is always the one whose covers keep loading.
	s.mu.Lock()
	run := s.library.Replace(books)
	s.startCovers(run)
	s.mu.Unlock()

	var notice Notice
	if len(run.Books) == 0 {
		notice = newNotice(NoticeInfo, "No books were detected in the image")
	} else {
		notice = newNotice(NoticeSuccess, "%d book(s) detected!", len(run.Books))
	}

	s.logger.Info().Str("run_id", run.ID).Int("books", len(run.Books)).Msg("scan completed")
	return ScanResult{RunID: run.ID, Books: run.Books, Notice: notice}, nil
}

// startCovers cancels the previous run's loading and streams covers for
// run into the library. The request context is not used: loading outlives it.
// s.mu must be held.
func (s *Service) startCovers(run Run) {
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		applied := 0
		for u := range s.covers.Stream(ctx, run.Books) {
			if s.library.ApplyCover(run.ID, u) {
				applied++
			}
		}
		s.library.Settle(run.ID)
		s.logger.Debug().Str("run_id", run.ID).Int("covers", applied).Msg("covers applied")
	}()
}

// Wait blocks until every background cover load has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close stops the current cover load and waits for it to return.
func (s *Service) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Request records a request for a book. It has no side effect beyond the notice.
func (s *Service) Request(id string) (Notice, error) {
	b, err := s.library.Get(id)
	if err != nil {
		return Notice{}, err
	}
	return newNotice(NoticeSuccess, `Request sent for "%s"!`, b.Title), nil
}

// Notify registers interest in a lent book. It has no side effect beyond the notice.
func (s *Service) Notify(id string) (Notice, error) {
	b, err := s.library.Get(id)
	if err != nil {
		return Notice{}, err
	}
	return newNotice(NoticeInfo, `You will be notified when "%s" is available.`, b.Title), nil
}

// LooksLikeAPIKey is a loose shape check for OpenAI keys. A false result is
// worth a warning, not a refusal.
func LooksLikeAPIKey(key string) bool {
	return strings.HasPrefix(key, "sk-") && len(key) > 20
}
