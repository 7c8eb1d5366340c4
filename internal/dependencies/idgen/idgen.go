package idgen

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// Generator produces identifiers and can be mocked for testing
type Generator interface {
	// NewID returns a unique record identifier with the given prefix
	NewID(prefix string) string

	// Token returns an unguessable opaque token with the given prefix
	Token(prefix string) string
}

// RandomGenerator implements Generator with UUIDs and crypto/rand tokens
type RandomGenerator struct{}

// New creates a new RandomGenerator
func New() *RandomGenerator {
	return &RandomGenerator{}
}

// NewID returns prefix followed by a random UUID
func (g *RandomGenerator) NewID(prefix string) string {
	return prefix + uuid.NewString()
}

// Token returns prefix followed by 32 random bytes, base64url encoded
func (g *RandomGenerator) Token(prefix string) string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}
