package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comparee-ai/landing-ingest/internal/ingest"
)

func TestPublisher_RecordsEvents(t *testing.T) {
	t.Parallel()

	p := New()
	ev := ingest.PageCreatedEvent{
		ID:        "id-1",
		Slug:      "best-ai-tools",
		Title:     "Best AI Tools",
		Language:  "en",
		Dialect:   "ai",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.PublishPageCreated(context.Background(), ev))

	events := p.Events()
	require.Len(t, events, 1)
	require.Equal(t, ev, events[0])
}

func TestPublisher_EventsReturnsCopy(t *testing.T) {
	t.Parallel()

	p := New()
	require.NoError(t, p.PublishPageCreated(context.Background(), ingest.PageCreatedEvent{Slug: "a"}))

	events := p.Events()
	events[0].Slug = "mutated"
	require.Equal(t, "a", p.Events()[0].Slug)
}
