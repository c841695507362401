package extract

import (
	"errors"
	"fmt"
	"testing"

	"shelfscan/internal/book"
	"shelfscan/internal/placeholder"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	n := 0
	return &Parser{
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
		Status:      book.FixedStatus(book.StatusAvailable),
		Placeholder: placeholder.Default,
		Logger:      zerolog.Nop(),
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `[{"title":"A"}]`, `[{"title":"A"}]`},
		{"json fence", "```json\n[{\"title\":\"A\"}]\n```", `[{"title":"A"}]`},
		{"plain fence", "```\n[]\n```\n", `[]`},
		{"fence without newline", "```json[]```", `[]`},
		{"surrounding whitespace", "  \n```json\n[]\n```  ", `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestParser_FencedEqualsUnfenced(t *testing.T) {
	raw := `[{"title":"Dune","author":"Frank Herbert","summary":"Spice.","genre":"Science"},{"title":"Emma"}]`

	plain, err := newTestParser().Parse(raw)
	require.NoError(t, err)
	fenced, err := newTestParser().Parse("```json\n" + raw + "\n```")
	require.NoError(t, err)

	assert.Equal(t, plain, fenced)
}

func TestParser_DuneScenario(t *testing.T) {
	raw := `[{"title":"Dune","author":"Frank Herbert","summary":"...","genre":"Science"}]`

	books, err := NewParser(zerolog.Nop()).Parse(raw)
	require.NoError(t, err)
	require.Len(t, books, 1)

	b := books[0]
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, "Frank Herbert", b.Author)
	assert.Equal(t, "...", b.Summary)
	assert.Equal(t, book.GenreScience, b.Genre)
	assert.Equal(t, book.CoverPlaceholder, b.Cover.Source)
	assert.Equal(t, placeholder.URL("Dune", "Frank Herbert"), b.Cover.URL)

	again, err := NewParser(zerolog.Nop()).Parse(raw)
	require.NoError(t, err)
	assert.NotEqual(t, b.ID, again[0].ID)
}

func TestParser_Defaults(t *testing.T) {
	books, err := newTestParser().Parse(`[{"title":"X"}]`)
	require.NoError(t, err)
	require.Len(t, books, 1)

	assert.Equal(t, "X", books[0].Title)
	assert.Equal(t, book.DefaultAuthor, books[0].Author)
	assert.Equal(t, book.DefaultSummary, books[0].Summary)
	assert.Equal(t, book.GenreFiction, books[0].Genre)
	assert.Equal(t, placeholder.URL("X", book.DefaultAuthor), books[0].Cover.URL)
}

func TestParser_Normalization(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want book.Book
	}{
		{
			name: "empty strings",
			raw:  `[{"title":"","author":"  ","summary":"","genre":""}]`,
			want: book.Book{Title: book.DefaultTitle, Author: book.DefaultAuthor, Summary: book.DefaultSummary, Genre: book.GenreFiction},
		},
		{
			name: "unknown genre",
			raw:  `[{"title":"T","author":"A","summary":"S","genre":"Poetry"}]`,
			want: book.Book{Title: "T", Author: "A", Summary: "S", Genre: book.GenreFiction},
		},
		{
			name: "wrong case genre",
			raw:  `[{"title":"T","author":"A","summary":"S","genre":"tech"}]`,
			want: book.Book{Title: "T", Author: "A", Summary: "S", Genre: book.GenreFiction},
		},
		{
			name: "non-string fields",
			raw:  `[{"title":42,"author":null,"summary":["x"],"genre":7}]`,
			want: book.Book{Title: book.DefaultTitle, Author: book.DefaultAuthor, Summary: book.DefaultSummary, Genre: book.GenreFiction},
		},
		{
			name: "non-object element",
			raw:  `["just a string"]`,
			want: book.Book{Title: book.DefaultTitle, Author: book.DefaultAuthor, Summary: book.DefaultSummary, Genre: book.GenreFiction},
		},
		{
			name: "valid genre kept",
			raw:  `[{"title":"T","author":"A","summary":"S","genre":"Self-Help"}]`,
			want: book.Book{Title: "T", Author: "A", Summary: "S", Genre: book.GenreSelfHelp},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books, err := newTestParser().Parse(tt.raw)
			require.NoError(t, err)
			require.Len(t, books, 1)

			got := books[0]
			assert.Equal(t, tt.want.Title, got.Title)
			assert.Equal(t, tt.want.Author, got.Author)
			assert.Equal(t, tt.want.Summary, got.Summary)
			assert.Equal(t, tt.want.Genre, got.Genre)
			assert.Equal(t, "id-1", got.ID)
			assert.Equal(t, book.StatusAvailable, got.Status)
			assert.NotEmpty(t, got.Cover.URL)
		})
	}
}

func TestParser_EmptyArray(t *testing.T) {
	books, err := newTestParser().Parse("```json\n[]\n```")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestParser_Errors(t *testing.T) {
	t.Run("not json", func(t *testing.T) {
		_, err := newTestParser().Parse("I could not see any books, sorry.")
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr))
		assert.Equal(t, "I could not see any books, sorry.", parseErr.Raw)
	})

	t.Run("truncated json", func(t *testing.T) {
		_, err := newTestParser().Parse(`[{"title":"Dune"`)
		var parseErr *ParseError
		assert.True(t, errors.As(err, &parseErr))
	})

	shapes := map[string]string{
		`{"title":"Dune"}`: "object",
		`"books"`:          "string",
		`12`:               "number",
		`null`:             "null",
	}
	for raw, kind := range shapes {
		t.Run("shape "+kind, func(t *testing.T) {
			_, err := newTestParser().Parse("```json\n" + raw + "\n```")
			var shapeErr *ShapeError
			require.True(t, errors.As(err, &shapeErr))
			assert.Equal(t, kind, shapeErr.Kind)
		})
	}
}

func TestParser_UniqueIDs(t *testing.T) {
	books, err := NewParser(zerolog.Nop()).Parse(`[{"title":"A"},{"title":"A"},{"title":"A"}]`)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, b := range books {
		assert.False(t, seen[b.ID])
		seen[b.ID] = true
	}
}
