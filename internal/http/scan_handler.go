package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"shelfscan/internal/extract"
	"shelfscan/internal/httpx"
	"shelfscan/internal/shelf"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

const apiKeyHeader = "X-OpenAI-Key"

var allowedImageTypes = []string{"image/jpeg", "image/png"}

// Scanner runs a scan and reports the resulting working set.
type Scanner interface {
	Scan(ctx context.Context, img extract.Image, apiKey string) (shelf.ScanResult, error)
}

type ScanHandler struct {
	scanner        Scanner
	defaultKey     string
	maxUploadBytes int64
	logger         zerolog.Logger
}

func NewScanHandler(scanner Scanner, defaultKey string, maxUploadBytes int64, logger zerolog.Logger) *ScanHandler {
	return &ScanHandler{
		scanner:        scanner,
		defaultKey:     defaultKey,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Create handles POST /v1/scans with a multipart "image" field.
func (h *ScanHandler) Create(w http.ResponseWriter, r *http.Request) {
	apiKey := r.Header.Get(apiKeyHeader)
	if apiKey == "" {
		apiKey = h.defaultKey
	}
	if apiKey == "" {
		httpx.JSONError(w, r, http.StatusBadRequest, "MISSING_API_KEY", extract.ErrMissingAPIKey.Error(), nil)
		return
	}

	img, err := h.readUpload(r)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_IMAGE", err.Error(),
			[]httpx.ErrorDetail{{Field: "image", Message: err.Error()}})
		return
	}

	result, err := h.scanner.Scan(r.Context(), img, apiKey)
	if err != nil {
		h.writeScanError(w, r, err)
		return
	}

	meta := httpx.Meta{"run_id": result.RunID, "total": len(result.Books)}
	if !shelf.LooksLikeAPIKey(apiKey) {
		meta["warning"] = "API key does not look like an OpenAI key"
	}
	httpx.JSONSuccessCreated(w, r, result, meta)
}

func (h *ScanHandler) readUpload(r *http.Request) (extract.Image, error) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return extract.Image{}, errors.New("expected a multipart form with an image field")
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return extract.Image{}, errors.New("image field is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return extract.Image{}, errors.New("could not read the uploaded image")
	}
	if len(data) == 0 {
		return extract.Image{}, errors.New("uploaded image is empty")
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedImageTypes...) {
		return extract.Image{}, errors.New("only JPEG and PNG images are supported")
	}
	return extract.Image{Name: header.Filename, MIMEType: mt.String(), Data: data}, nil
}

// writeScanError maps the extraction error taxonomy to HTTP responses.
func (h *ScanHandler) writeScanError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		transportErr *extract.TransportError
		parseErr     *extract.ParseError
		shapeErr     *extract.ShapeError
		encodingErr  *extract.EncodingError
	)

	switch {
	case errors.Is(err, extract.ErrMissingAPIKey):
		httpx.JSONError(w, r, http.StatusBadRequest, "MISSING_API_KEY", err.Error(), nil)
	case errors.As(err, &encodingErr):
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_IMAGE", err.Error(), nil)
	// Before the transport case: the vision client wraps context errors in TransportError.
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.JSONError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "The scan did not finish in time", nil)
	case errors.As(err, &transportErr):
		h.logger.Warn().Err(err).Int("upstream_status", transportErr.StatusCode).Msg("vision request failed")
		httpx.JSONError(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error(), nil)
	case errors.Is(err, extract.ErrEmptyResponse):
		httpx.JSONError(w, r, http.StatusBadGateway, "EMPTY_MODEL_RESPONSE", err.Error(), nil)
	case errors.As(err, &parseErr), errors.As(err, &shapeErr):
		h.logger.Warn().Err(err).Msg("unreadable model output")
		httpx.JSONError(w, r, http.StatusBadGateway, "UNREADABLE_MODEL_OUTPUT", err.Error(), nil)
	default:
		h.logger.Error().Err(err).Msg("scan failed")
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
	}
}
