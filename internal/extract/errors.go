package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResponse means the model answered without any text.
	ErrEmptyResponse = errors.New("empty response from the vision model")
	// ErrMissingAPIKey is returned before any network call when no credential is set.
	ErrMissingAPIKey = errors.New("missing OpenAI API key")
)

// TransportError covers a failed call to the completion endpoint: the
// request never completed or the endpoint answered with a non-2xx status.
type TransportError struct {
	// StatusCode is 0 when no response was received.
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError means the model output was not valid JSON after fence stripping.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse the model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ShapeError means the model output was valid JSON but not an array.
type ShapeError struct {
	Raw  string
	Kind string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("invalid response format: expected a JSON array, got %s", e.Kind)
}

// EncodingError means the image could not be read or turned into a data URI.
type EncodingError struct {
	Path string
	Err  error
}

func (e *EncodingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("read image %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("read image: %v", e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}
