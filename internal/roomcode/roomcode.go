// Package roomcode generates the short codes players type to join a room.
package roomcode

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Alphabet omits 0/O and 1/I so codes survive being read out loud.
const alphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"

// Length is the number of characters in a room code.
const Length = 5

// RandSource interface for dependency injection of randomness
type RandSource interface {
	IntN(n int) int
}

// Generator handles room code generation with configurable randomness
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator with optional RandSource
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new room code using crypto/rand
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new room code using the generator's RandSource
func (g *Generator) Generate() string {
	buf := make([]byte, Length)

	if g.randSource != nil {
		// Use provided RandSource for deterministic testing
		for i := range buf {
			buf[i] = alphabet[g.randSource.IntN(len(alphabet))]
		}
		return string(buf)
	}

	random := make([]byte, Length)
	if _, err := rand.Read(random); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}
	for i, b := range random {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}

// Normalize uppercases and trims a user-supplied code so lookups are
// case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks if a room code is well-formed (correct length, valid alphabet)
func Validate(code string) error {
	if len(code) != Length {
		return fmt.Errorf("room code must be exactly %d characters, got %d", Length, len(code))
	}

	for i, char := range code {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}

	return nil
}
