package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"

	"shelfscan/internal/book"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// Image is an uploaded or on-disk photo.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// DataURI encodes img as data:<mime>;base64,<payload>. The MIME type is
// sniffed when the caller did not set one.
func (img Image) DataURI() string {
	mime := img.MIMEType
	if mime == "" {
		mime = mimetype.Detect(img.Data).String()
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// ReadImage loads path from disk.
func ReadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, &EncodingError{Path: path, Err: err}
	}
	if len(data) == 0 {
		return Image{}, &EncodingError{Path: path, Err: errors.New("file is empty")}
	}
	return Image{
		Name:     filepath.Base(path),
		MIMEType: mimetype.Detect(data).String(),
		Data:     data,
	}, nil
}

// Extractor returns the raw model reply for an image.
type Extractor interface {
	Extract(ctx context.Context, imageDataURI, apiKey string) (string, error)
}

// BookParser turns raw model output into book records.
type BookParser interface {
	Parse(raw string) ([]book.Book, error)
}

// Pipeline is the single entry point: image in, books with placeholder covers out.
type Pipeline struct {
	extractor Extractor
	parser    BookParser
	logger    zerolog.Logger
}

func NewPipeline(extractor Extractor, parser BookParser, logger zerolog.Logger) *Pipeline {
	return &Pipeline{extractor: extractor, parser: parser, logger: logger}
}

// AnalyzeFile reads path and runs Analyze on it.
func (p *Pipeline) AnalyzeFile(ctx context.Context, path, apiKey string) ([]book.Book, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	img, err := ReadImage(path)
	if err != nil {
		return nil, err
	}
	return p.Analyze(ctx, img, apiKey)
}

// Analyze runs extraction then parsing. An empty result is not an error.
// Cover resolution is left to the caller.
func (p *Pipeline) Analyze(ctx context.Context, img Image, apiKey string) ([]book.Book, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if len(img.Data) == 0 {
		return nil, &EncodingError{Path: img.Name, Err: errors.New("image is empty")}
	}

	raw, err := p.extractor.Extract(ctx, img.DataURI(), apiKey)
	if err != nil {
		p.logger.Warn().Err(err).Str("image", img.Name).Msg("extraction failed")
		return nil, err
	}

	books, err := p.parser.Parse(raw)
	if err != nil {
		p.logger.Warn().Err(err).Str("image", img.Name).Msg("model output rejected")
		return nil, err
	}

	p.logger.Info().Str("image", img.Name).Int("books", len(books)).Msg("extraction completed")
	return books, nil
}
