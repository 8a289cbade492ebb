// Package ids provides the unique-id capability used for account and item
// identifiers. Any generator satisfies the contract as long as ids never
// collide within a process.
package ids

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator produces unique identifiers.
type Generator interface {
	NewID() string
}

// UUID generates random UUIDv4 identifiers.
type UUID struct{}

// NewID returns a new UUID string.
func (UUID) NewID() string { return uuid.NewString() }

// Sequence generates "ID<n>" identifiers from a monotonic counter. Output is
// deterministic, which makes it the generator of choice in tests and in the
// interactive console where short ids are typed by hand.
type Sequence struct {
	mu   sync.Mutex
	next int
}

// NewSequence returns a Sequence starting at 1000.
func NewSequence() *Sequence { return &Sequence{next: 1000} }

// NewID returns the next id in the sequence.
func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := fmt.Sprintf("ID%d", s.next)
	s.next++
	return id
}
