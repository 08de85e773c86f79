// Package slug generates the short identifiers that URLs are published under.
package slug

import (
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the set of characters slugs are drawn from. It leaves out
// 0, 1, I, O and l, which are easily confused with each other.
const Alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const (
	// DefaultLength is the length of a slug when no collision forced a longer one.
	DefaultLength = 8

	// MaxLength is the widest slug the urls table can hold.
	MaxLength = 32

	// fixedAttempts is the number of attempts made at the base length
	// before every further attempt adds one character.
	fixedAttempts = 3
)

// ErrInvalidLength is returned when a non-positive slug length is requested.
var ErrInvalidLength = errors.New("slug length must be positive")

// Generator produces random slugs. It holds no mutable state and is safe
// for concurrent use.
type Generator struct {
	length int
}

// NewGenerator returns a Generator whose base slug length is length.
// Lengths shorter than DefaultLength are raised to DefaultLength.
func NewGenerator(length int) *Generator {
	if length < DefaultLength {
		length = DefaultLength
	}

	return &Generator{length: length}
}

// Length returns the base slug length.
func (g *Generator) Length() int {
	return g.length
}

// Generate returns a slug of exactly length characters drawn uniformly from Alphabet.
func (g *Generator) Generate(length int) (string, error) {
	const op = "slug.Generator.Generate"

	if length <= 0 {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidLength)
	}

	s, err := gonanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate slug: %w", op, err)
	}

	return s, nil
}

// LengthForAttempt returns the slug length to use on the given zero-based
// attempt: base for the first few attempts, then one more character per attempt.
func LengthForAttempt(base, attempt int) int {
	if attempt < fixedAttempts {
		return base
	}
	return base + attempt - fixedAttempts + 1
}

// IsValid reports whether s could have been produced by a Generator.
func IsValid(s string) bool {
	if len(s) < DefaultLength || len(s) > MaxLength {
		return false
	}

	for i := 0; i < len(s); i++ {
		if !inAlphabet(s[i]) {
			return false
		}
	}

	return true
}

func inAlphabet(c byte) bool {
	for i := 0; i < len(Alphabet); i++ {
		if Alphabet[i] == c {
			return true
		}
	}
	return false
}
