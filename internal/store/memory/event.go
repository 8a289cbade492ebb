package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jensholdgaard/auction-house/internal/clock"
	"github.com/jensholdgaard/auction-house/internal/event"
)

// EventStore implements event.Store with an in-process append-only slice.
type EventStore struct {
	mu     sync.RWMutex
	events []event.Event
	nextID int
	clock  clock.Clock
}

// NewEventStore returns an empty EventStore.
func NewEventStore(clk clock.Clock) *EventStore {
	return &EventStore{nextID: 1, clock: clk}
}

func (s *EventStore) Append(_ context.Context, events ...event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		e.ID = fmt.Sprintf("evt-%d", s.nextID)
		s.nextID++
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.clock.Now()
		}
		s.events = append(s.events, e)
	}
	return nil
}

func (s *EventStore) Load(_ context.Context, aggregateID string) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []event.Event
	for _, e := range s.events {
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *EventStore) LoadByType(_ context.Context, eventType event.Type) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []event.Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}
