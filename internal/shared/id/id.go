// Package id provides request ID generation for the bridge.
//
// IDs are prefixed ULIDs (req_*): lexicographically sortable, unique, and
// readable in logs and in the persisted markdown entries.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequestID identifies one action request end to end: it is returned to the
// caller, written into log entries, and attached to the upstream message.
type RequestID string

// RequestPrefix marks request IDs in logs and persisted entries.
const RequestPrefix = "req"

func (id RequestID) String() string { return string(id) }

// Generator generates ULIDs with an optional prefix.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator with secure entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewRequestID generates a new request ID.
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// IsValid checks whether a string is a well-formed request ID.
func IsValid(id string) bool {
	const prefix = RequestPrefix + "_"
	if len(id) <= len(prefix) || id[:len(prefix)] != prefix {
		return false
	}
	_, err := ulid.Parse(id[len(prefix):])
	return err == nil
}
