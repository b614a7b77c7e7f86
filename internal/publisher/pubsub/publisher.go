// Package pubsub publishes page-created events to a Google Cloud Pub/Sub
// topic for downstream consumers (search indexing, cache warmers).
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/comparee-ai/landing-ingest/internal/ingest"
)

// Publisher wraps a Pub/Sub topic.
type Publisher struct {
	topic *pubsub.Topic
}

// New creates a Publisher for the provided topic.
func New(topic *pubsub.Topic) *Publisher {
	return &Publisher{topic: topic}
}

// Connect opens a Pub/Sub client and binds the topic.
func Connect(ctx context.Context, projectID, topicName string) (*Publisher, *pubsub.Client, error) {
	if projectID == "" || topicName == "" {
		return nil, nil, errors.New("pubsub project id and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return New(client.Topic(topicName)), client, nil
}

// PublishPageCreated marshals the event to JSON and publishes it.
func (p *Publisher) PublishPageCreated(ctx context.Context, ev ingest.PageCreatedEvent) error {
	if p.topic == nil {
		return errors.New("pubsub topic is not configured")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event":    "page.created",
			"language": ev.Language,
		},
	}
	if _, err := p.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
