package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"shelfscan/internal/book"
	"shelfscan/internal/placeholder"

	"github.com/rs/zerolog"
)

var (
	jsonFence  = regexp.MustCompile("```json\\n?")
	plainFence = regexp.MustCompile("```\\n?")
)

// Parser turns the model's raw reply into normalized book records.
type Parser struct {
	NewID       func() string
	Status      book.StatusPolicy
	Placeholder *placeholder.Generator
	Logger      zerolog.Logger
}

// NewParser wires the production ID, status and placeholder policies.
func NewParser(logger zerolog.Logger) *Parser {
	return &Parser{
		NewID:       book.NewID,
		Status:      book.RandomStatus,
		Placeholder: placeholder.Default,
		Logger:      logger,
	}
}

// StripFences removes markdown code-fence markers the model sometimes adds.
func StripFences(raw string) string {
	s := jsonFence.ReplaceAllString(raw, "")
	s = plainFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Parse decodes raw into books. It fails only when the cleaned text is not
// JSON or not an array; every element is then repaired, never rejected.
func (p *Parser) Parse(raw string) ([]book.Book, error) {
	clean := StripFences(raw)

	var decoded any
	if err := json.Unmarshal([]byte(clean), &decoded); err != nil {
		p.Logger.Debug().Str("raw", raw).Err(err).Msg("model response is not JSON")
		return nil, &ParseError{Raw: raw, Err: err}
	}

	items, ok := decoded.([]any)
	if !ok {
		p.Logger.Debug().Str("raw", raw).Msg("model response is not a JSON array")
		return nil, &ShapeError{Raw: raw, Kind: jsonKind(decoded)}
	}

	books := make([]book.Book, 0, len(items))
	for _, item := range items {
		fields, _ := item.(map[string]any)
		books = append(books, p.normalize(fields))
	}
	return books, nil
}

func (p *Parser) normalize(fields map[string]any) book.Book {
	title := stringField(fields, "title", book.DefaultTitle)
	author := stringField(fields, "author", book.DefaultAuthor)
	genre, _ := fields["genre"].(string)

	return book.Book{
		ID:      p.NewID(),
		Title:   title,
		Author:  author,
		Summary: stringField(fields, "summary", book.DefaultSummary),
		Genre:   book.NormalizeGenre(genre),
		Status:  p.Status(),
		Cover:   book.PlaceholderCover(p.Placeholder.URL(title, author)),
	}
}

func stringField(fields map[string]any, key, def string) string {
	s, ok := fields[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
