package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shelfscan/internal/book"
	"shelfscan/internal/platform/openai"

	"github.com/rs/zerolog"
)

const (
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.3
)

// Prompt is the instruction sent alongside the shelf photo.
var Prompt = buildPrompt()

func buildPrompt() string {
	genres := make([]string, len(book.Genres))
	for i, g := range book.Genres {
		genres[i] = string(g)
	}

	return `You are a book expert. Analyze this photo of a bookshelf and identify ALL visible books.

For every book you can identify (even partially), provide:
- title: the exact title of the book
- author: the author's name (if you know it, otherwise "` + book.DefaultAuthor + `")
- summary: a 2-3 sentence summary describing the book
- genre: one of these categories: ` + strings.Join(genres, ", ") + `

IMPORTANT:
- Identify as MANY books as possible, even if you only see part of the title
- Books may be in any language
- Reply ONLY with a valid JSON array, no markdown, no explanation

Expected format:
[{"title": "Title", "author": "Author", "summary": "Summary...", "genre": "Fiction"}]`
}

// CompletionClient is the wire client used by VisionClient.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, apiKey string, body openai.Request) (*openai.Response, error)
}

// VisionClient sends a shelf photo to a multimodal model and returns its raw reply.
type VisionClient struct {
	client      CompletionClient
	model       string
	maxTokens   int
	temperature float64
	logger      zerolog.Logger
}

type VisionConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

func NewVisionClient(client CompletionClient, cfg VisionConfig, logger zerolog.Logger) *VisionClient {
	if cfg.Model == "" {
		cfg.Model = openai.DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &VisionClient{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

// Extract makes exactly one completion call and returns the first choice's text.
func (v *VisionClient) Extract(ctx context.Context, imageDataURI, apiKey string) (string, error) {
	resp, err := v.client.CreateChatCompletion(ctx, apiKey, openai.Request{
		Model:       v.model,
		Messages:    []openai.Message{openai.UserMessage(Prompt, imageDataURI)},
		MaxTokens:   v.maxTokens,
		Temperature: v.temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &TransportError{StatusCode: apiErr.StatusCode, Message: apiErr.Error(), Err: err}
		}
		return "", &TransportError{Message: fmt.Sprintf("OpenAI request failed: %v", err), Err: err}
	}

	content := resp.FirstContent()
	v.logger.Debug().Str("model", v.model).Str("raw", content).Msg("vision model response")

	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
