package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"shelfscan/internal/book"
	"shelfscan/internal/cover"
	"shelfscan/internal/extract"
	"shelfscan/internal/placeholder"
	"shelfscan/internal/shelf"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Minimal PNG signature plus IHDR so mimetype detects image/png.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

type mockScanner struct {
	mock.Mock
}

func (m *mockScanner) Scan(ctx context.Context, img extract.Image, apiKey string) (shelf.ScanResult, error) {
	args := m.Called(ctx, img, apiKey)
	return args.Get(0).(shelf.ScanResult), args.Error(1)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

func sampleBooks() []book.Book {
	return []book.Book{
		{
			ID: "b1", Title: "Dune", Author: "Frank Herbert", Genre: book.GenreFiction,
			Status: book.StatusAvailable, Cover: book.PlaceholderCover(placeholder.URL("Dune", "Frank Herbert")),
		},
		{
			ID: "b2", Title: "Clean Code", Author: "Robert C. Martin", Genre: book.GenreTech,
			Status: book.StatusLent, Cover: book.PlaceholderCover(placeholder.URL("Clean Code", "Robert C. Martin")),
		},
	}
}

func newTestRouter(scanner Scanner, lib *shelf.Library, defaultKey string) http.Handler {
	svc := shelf.NewService(nil, nil, lib, zerolog.Nop())
	return NewRouter(RouterConfig{
		Scans:          NewScanHandler(scanner, defaultKey, 1<<20, zerolog.Nop()),
		Books:          NewBookHandler(lib, svc),
		Ready:          func() bool { return defaultKey != "" },
		Logger:         zerolog.Nop(),
		MaxUploadBytes: 1 << 20,
	})
}

func multipartBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "shelf.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postScan(t *testing.T, h http.Handler, key string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "image", data)
	req := httptest.NewRequest(http.MethodPost, "/v1/scans", body)
	req.Header.Set("Content-Type", ct)
	if key != "" {
		req.Header.Set(apiKeyHeader, key)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestScanHandler_Success(t *testing.T) {
	s := new(mockScanner)
	s.On("Scan", mock.Anything, mock.MatchedBy(func(img extract.Image) bool {
		return img.MIMEType == "image/png" && img.Name == "shelf.png"
	}), "sk-abcdefghijklmnopqrstuvwxyz").Return(shelf.ScanResult{
		RunID:  "run-1",
		Books:  sampleBooks(),
		Notice: shelf.Notice{Kind: shelf.NoticeSuccess, Message: "2 book(s) detected!"},
	}, nil)

	w := postScan(t, newTestRouter(s, shelf.NewLibrary(), ""), "sk-abcdefghijklmnopqrstuvwxyz", pngBytes)

	assert.Equal(t, http.StatusCreated, w.Code)
	env := decode(t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "run-1", env.Meta["run_id"])
	assert.EqualValues(t, 2, env.Meta["total"])
	assert.NotContains(t, env.Meta, "warning")
	assert.NotEmpty(t, env.Meta["request_id"])

	var result shelf.ScanResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "2 book(s) detected!", result.Notice.Message)
	s.AssertExpectations(t)
}

func TestScanHandler_DefaultKeyAndWarning(t *testing.T) {
	s := new(mockScanner)
	s.On("Scan", mock.Anything, mock.Anything, "configured").Return(shelf.ScanResult{RunID: "r"}, nil)

	w := postScan(t, newTestRouter(s, shelf.NewLibrary(), "configured"), "", pngBytes)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, decode(t, w).Meta, "warning")
}

func TestScanHandler_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		data     []byte
		wantCode string
	}{
		{"missing key", "", pngBytes, "MISSING_API_KEY"},
		{"not an image", "sk-key", []byte("hello, world"), "INVALID_IMAGE"},
		{"gif rejected", "sk-key", []byte("GIF89a\x01\x00\x01\x00"), "INVALID_IMAGE"},
		{"empty upload", "sk-key", []byte{}, "INVALID_IMAGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(mockScanner)
			w := postScan(t, newTestRouter(s, shelf.NewLibrary(), ""), tt.key, tt.data)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decode(t, w).Error.Code)
			s.AssertNotCalled(t, "Scan", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestScanHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"transport", &extract.TransportError{StatusCode: 401, Message: "Incorrect API key provided"}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"empty", extract.ErrEmptyResponse, http.StatusBadGateway, "EMPTY_MODEL_RESPONSE"},
		{"parse", &extract.ParseError{Raw: "nope", Err: fmt.Errorf("invalid character")}, http.StatusBadGateway, "UNREADABLE_MODEL_OUTPUT"},
		{"shape", &extract.ShapeError{Raw: "{}", Kind: "object"}, http.StatusBadGateway, "UNREADABLE_MODEL_OUTPUT"},
		{"encoding", &extract.EncodingError{Err: fmt.Errorf("bad")}, http.StatusBadRequest, "INVALID_IMAGE"},
		{"missing key", extract.ErrMissingAPIKey, http.StatusBadRequest, "MISSING_API_KEY"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
		{"wrapped deadline", &extract.TransportError{Message: "OpenAI request failed: context deadline exceeded", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "TIMEOUT"},
		{"wrapped cancel", &extract.TransportError{Message: "OpenAI request failed: context canceled", Err: fmt.Errorf("post: %w", context.Canceled)}, http.StatusGatewayTimeout, "TIMEOUT"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(mockScanner)
			s.On("Scan", mock.Anything, mock.Anything, "sk-key").Return(shelf.ScanResult{}, tt.err)

			w := postScan(t, newTestRouter(s, shelf.NewLibrary(), ""), "sk-key", pngBytes)

			assert.Equal(t, tt.wantStatus, w.Code)
			env := decode(t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}

	t.Run("transport message is passed through", func(t *testing.T) {
		s := new(mockScanner)
		s.On("Scan", mock.Anything, mock.Anything, "sk-key").
			Return(shelf.ScanResult{}, &extract.TransportError{StatusCode: 401, Message: "Incorrect API key provided"})

		w := postScan(t, newTestRouter(s, shelf.NewLibrary(), ""), "sk-key", pngBytes)
		assert.Equal(t, "Incorrect API key provided", decode(t, w).Error.Message)
	})
}

func TestBookHandler_List(t *testing.T) {
	lib := shelf.NewLibrary()
	run := lib.Replace(sampleBooks())
	lib.ApplyCover(run.ID, cover.Update{BookID: "b1", Outcome: cover.Outcome{Kind: cover.Resolved, URL: "https://covers/dune.jpg"}})
	h := newTestRouter(new(mockScanner), lib, "")

	tests := []struct {
		name      string
		query     string
		wantIDs   []string
		wantTotal int
	}{
		{"all", "", []string{"b1", "b2"}, 2},
		{"search title", "?search=dune", []string{"b1"}, 1},
		{"search author case-insensitive", "?search=ROBERT", []string{"b2"}, 1},
		{"status", "?status=lent", []string{"b2"}, 1},
		{"genre", "?genre=Tech", []string{"b2"}, 1},
		{"no match", "?genre=Essay", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/books"+tt.query, nil))

			require.Equal(t, http.StatusOK, w.Code)
			env := decode(t, w)
			var books []book.Book
			require.NoError(t, json.Unmarshal(env.Data, &books))

			ids := make([]string, 0, len(books))
			for _, b := range books {
				ids = append(ids, b.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.EqualValues(t, tt.wantTotal, env.Meta["total"])
			assert.Equal(t, run.ID, env.Meta["run_id"])
			assert.EqualValues(t, 1, env.Meta["covers_pending"])
		})
	}
}

func TestBookHandler_ListValidation(t *testing.T) {
	h := newTestRouter(new(mockScanner), shelf.NewLibrary(), "")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/books?status=stolen&genre=Poetry", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	fields := map[string]bool{}
	for _, d := range env.Error.Details {
		fields[d.Field] = true
	}
	assert.True(t, fields["status"])
	assert.True(t, fields["genre"])
}

func TestBookHandler_ListPagination(t *testing.T) {
	lib := shelf.NewLibrary()
	lib.Replace(append(sampleBooks(), book.Book{
		ID: "b3", Title: "Emma", Author: "Jane Austen", Genre: book.GenreFiction, Status: book.StatusAvailable,
		Cover: book.PlaceholderCover(placeholder.URL("Emma", "Jane Austen")),
	}))
	h := newTestRouter(new(mockScanner), lib, "")

	get := func(query string) (*httptest.ResponseRecorder, envelope, []book.Book) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/books"+query, nil))
		env := decode(t, w)
		var books []book.Book
		if env.Success {
			require.NoError(t, json.Unmarshal(env.Data, &books))
		}
		return w, env, books
	}

	w, env, books := get("?limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, books, 2)
	assert.EqualValues(t, 3, env.Meta["total"])
	next, ok := env.Meta["next_cursor"].(string)
	require.True(t, ok)

	w, env, books = get("?limit=2&cursor=" + next)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, books, 1)
	assert.Equal(t, "b3", books[0].ID)
	assert.NotContains(t, env.Meta, "next_cursor")

	w, env, _ = get("?limit=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	w, env, _ = get("?limit=ten")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	lib.Replace(sampleBooks())
	w, env, _ = get("?limit=2&cursor=" + next)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CURSOR", env.Error.Code)
}

func TestBookHandler_GetAndActions(t *testing.T) {
	lib := shelf.NewLibrary()
	lib.Replace(sampleBooks())
	h := newTestRouter(new(mockScanner), lib, "")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/books/b1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var b book.Book
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &b))
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, book.CoverPlaceholder, b.Cover.Source)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/books/b1/request", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var n shelf.Notice
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &n))
	assert.Equal(t, `Request sent for "Dune"!`, n.Message)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/books/b2/notify", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &n))
	assert.Equal(t, `You will be notified when "Clean Code" is available.`, n.Message)

	for _, path := range []string{"/v1/books/missing", "/v1/books/missing/request", "/v1/books/missing/notify"} {
		method := http.MethodPost
		if path == "/v1/books/missing" {
			method = http.MethodGet
		}
		w = httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestRouter_HealthAndReady(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(new(mockScanner), shelf.NewLibrary(), "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	newTestRouter(new(mockScanner), shelf.NewLibrary(), "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	newTestRouter(new(mockScanner), shelf.NewLibrary(), "sk-key").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(new(mockScanner), shelf.NewLibrary(), "").ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/books/b1", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
