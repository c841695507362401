package book

import (
	"math/rand"
)

// Genre is one of a closed set of shelf categories.
type Genre string

const (
	GenreFiction   Genre = "Fiction"
	GenreTech      Genre = "Tech"
	GenreEssay     Genre = "Essay"
	GenreScience   Genre = "Science"
	GenreBiography Genre = "Biography"
	GenreSelfHelp  Genre = "Self-Help"
)

// DefaultGenre replaces any value outside the enumeration.
const DefaultGenre = GenreFiction

// Genres lists the enumeration in display order.
var Genres = []Genre{GenreFiction, GenreTech, GenreEssay, GenreScience, GenreBiography, GenreSelfHelp}

// ParseGenre matches s exactly against the enumeration.
func ParseGenre(s string) (Genre, bool) {
	for _, g := range Genres {
		if string(g) == s {
			return g, true
		}
	}
	return "", false
}

// NormalizeGenre collapses unknown values to DefaultGenre.
func NormalizeGenre(s string) Genre {
	if g, ok := ParseGenre(s); ok {
		return g
	}
	return DefaultGenre
}

// Status is the lending state shown on a card.
type Status string

const (
	StatusAvailable Status = "available"
	StatusLent      Status = "lent"
)

// ParseStatus accepts the two known states.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusAvailable, StatusLent:
		return Status(s), true
	}
	return "", false
}

// StatusPolicy assigns a status to a freshly created record. There is no
// lending backend, so the default is a coin flip.
type StatusPolicy func() Status

// RandomStatus marks roughly 70% of books as available.
func RandomStatus() Status {
	if rand.Float64() > 0.3 {
		return StatusAvailable
	}
	return StatusLent
}

// FixedStatus always returns s.
func FixedStatus(s Status) StatusPolicy {
	return func() Status { return s }
}
