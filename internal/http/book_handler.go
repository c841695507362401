package http

import (
	"errors"
	"net/http"
	"strconv"

	"shelfscan/internal/book"
	"shelfscan/internal/httpx"
	"shelfscan/internal/shelf"

	"github.com/go-chi/chi/v5"
)

// BookActions are the per-book buttons of the shelf view.
type BookActions interface {
	Request(id string) (shelf.Notice, error)
	Notify(id string) (shelf.Notice, error)
}

type BookHandler struct {
	library *shelf.Library
	actions BookActions
}

func NewBookHandler(library *shelf.Library, actions BookActions) *BookHandler {
	return &BookHandler{library: library, actions: actions}
}

type listQuery struct {
	Search string `validate:"max=200"`
	Status string `validate:"omitempty,status"`
	Genre  string `validate:"omitempty,genre"`
	Limit  *int   `validate:"omitempty,min=1,max=100"`
}

// List handles GET /v1/books?search=&status=&genre=&limit=&cursor=.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq := listQuery{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Genre:  q.Get("genre"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters",
				[]httpx.ErrorDetail{{Field: "limit", Message: "limit must be a number"}})
			return
		}
		lq.Limit = &n
	}
	if details := ValidateStruct(lq); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters", details)
		return
	}

	snap := h.library.Snapshot()

	cursor, err := book.DecodeCursor(q.Get("cursor"))
	if err != nil || (cursor.AfterID != "" && cursor.RunID != snap.RunID) {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_CURSOR", "Cursor is invalid or belongs to an earlier scan", nil)
		return
	}

	matched := book.Filter(snap.Books, book.Query{
		Search: lq.Search,
		Status: book.Status(lq.Status),
		Genre:  book.Genre(lq.Genre),
	})
	limit := 0
	if lq.Limit != nil {
		limit = *lq.Limit
	}
	page, nextID, err := book.Paginate(matched, cursor.AfterID, limit)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_CURSOR", "Cursor is invalid or belongs to an earlier scan", nil)
		return
	}

	meta := httpx.Meta{
		"run_id":         snap.RunID,
		"total":          len(matched),
		"covers_pending": snap.CoversPending,
	}
	if nextID != "" {
		meta["next_cursor"] = book.EncodeCursor(book.CursorData{RunID: snap.RunID, AfterID: nextID})
	}
	httpx.JSONSuccess(w, r, page, meta)
}

// Get handles GET /v1/books/{id}.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.library.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeBookError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Request handles POST /v1/books/{id}/request.
func (h *BookHandler) Request(w http.ResponseWriter, r *http.Request) {
	notice, err := h.actions.Request(chi.URLParam(r, "id"))
	if err != nil {
		writeBookError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, notice, nil)
}

// Notify handles POST /v1/books/{id}/notify.
func (h *BookHandler) Notify(w http.ResponseWriter, r *http.Request) {
	notice, err := h.actions.Notify(chi.URLParam(r, "id"))
	if err != nil {
		writeBookError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, notice, nil)
}

func writeBookError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, book.ErrNotFound) {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		return
	}
	httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
}
