package clock

import (
	"sync"
	"time"
)

// Clock abstracts time operations for testability. Auctions use it both to
// stamp accepted bids and to judge whether their time window has elapsed.
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by the system clock.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time { return time.Now() }

// Mock is a Clock that returns a controllable time. It starts at T and only
// moves when Advance is called, which lets tests drive an auction past its
// end time deterministically.
type Mock struct {
	mu sync.Mutex
	T  time.Time
}

// NewMock returns a Mock frozen at t.
func NewMock(t time.Time) *Mock { return &Mock{T: t} }

// Now returns the mock's current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.T
}

// Advance moves the mock's time forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.T = m.T.Add(d)
}
