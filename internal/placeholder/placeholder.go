// Package placeholder builds deterministic text-overlay cover locators used
// until a real cover is found.
package placeholder

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

const (
	DefaultBaseURL = "https://placehold.co"
	DefaultSize    = "300x400"
	DefaultFont    = "playfair-display"

	maxTitleLen  = 30
	maxAuthorLen = 20
	ellipsis     = "..."
)

// Color is a background/foreground pair, as hex without the leading '#'.
type Color struct {
	Background string
	Foreground string
}

// Palette is indexed by the title/author hash.
var Palette = []Color{
	{"6366f1", "ffffff"}, // indigo
	{"8b5cf6", "ffffff"}, // violet
	{"ec4899", "ffffff"}, // pink
	{"f59e0b", "ffffff"}, // amber
	{"10b981", "ffffff"}, // emerald
	{"3b82f6", "ffffff"}, // blue
	{"ef4444", "ffffff"}, // red
	{"14b8a6", "ffffff"}, // teal
}

// Generator renders placeholder locators. The zero value is not usable; use
// New or Default.
type Generator struct {
	BaseURL string
	Size    string
	Font    string
	Palette []Color
}

// Default uses placehold.co with the stock palette.
var Default = New(DefaultBaseURL)

// New returns a generator pointed at baseURL with default size, font and palette.
func New(baseURL string) *Generator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Generator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Size:    DefaultSize,
		Font:    DefaultFont,
		Palette: Palette,
	}
}

// URL returns the placeholder locator for (title, author). Same input, same output.
func (g *Generator) URL(title, author string) string {
	color := g.Color(title, author)
	// The service turns a literal "\n" into a line break.
	text := truncate(title, maxTitleLen) + `\n\n` + truncate(author, maxAuthorLen)

	return fmt.Sprintf("%s/%s/%s/%s?text=%s&font=%s",
		g.BaseURL, g.Size, color.Background, color.Foreground, escapeComponent(text), g.Font)
}

// Color picks the palette entry for (title, author).
func (g *Generator) Color(title, author string) Color {
	idx := Hash(title+author) % int64(len(g.Palette))
	return g.Palette[idx]
}

// URL is shorthand for Default.URL.
func URL(title, author string) string {
	return Default.URL(title, author)
}

// Hash is a polynomial rolling hash (h = h*31 + c) over UTF-16 code units in
// a wrapping int32 accumulator. The absolute value is taken in 64 bits so
// math.MinInt32 stays positive.
func Hash(s string) int64 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// truncate shortens s to max UTF-16 code units, the same unit Hash uses.
// A surrogate pair split by the cut is dropped whole.
func truncate(s string, max int) string {
	units := utf16.Encode([]rune(s))
	if len(units) <= max {
		return s
	}
	cut := units[:max-len(ellipsis)]
	if n := len(cut); n > 0 && cut[n-1] >= 0xD800 && cut[n-1] < 0xDC00 {
		cut = cut[:n-1]
	}
	return string(utf16.Decode(cut)) + ellipsis
}

const upperhex = "0123456789ABCDEF"

// escapeComponent percent-encodes the UTF-8 bytes of s, leaving the URI
// component unreserved set A-Z a-z 0-9 - _ . ! ~ * ' ( ) as is.
func escapeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0F])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
