// Package memory contains an in-memory event publisher for development and
// tests.
package memory

import (
	"context"
	"sync"

	"github.com/comparee-ai/landing-ingest/internal/ingest"
)

// Publisher records published events for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []ingest.PageCreatedEvent
}

// New returns an empty memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// PublishPageCreated records the event.
func (p *Publisher) PublishPageCreated(_ context.Context, ev ingest.PageCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// Events returns the recorded events.
func (p *Publisher) Events() []ingest.PageCreatedEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ingest.PageCreatedEvent, len(p.events))
	copy(out, p.events)
	return out
}
