// Package pubsub publishes batch results to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/profile-image-resolver/internal/results"
)

// Config names the destination topic.
type Config struct {
	ProjectID string
	TopicID   string
}

// Publisher sends one JSON message per result.
type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// New wraps an existing topic. The caller keeps ownership of its client.
func New(topic *pubsub.Topic) *Publisher {
	return &Publisher{topic: topic}
}

// Open creates a client with Application Default Credentials and checks the
// topic exists.
func Open(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.ProjectID == "" || cfg.TopicID == "" {
		return nil, fmt.Errorf("publish.project_id and publish.topic are required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(cfg.TopicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check topic %s: %w", cfg.TopicID, err)
	}
	if !exists {
		_ = client.Close()
		return nil, fmt.Errorf("topic %s does not exist", cfg.TopicID)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// Record publishes the result and waits for the server acknowledgement.
func (p *Publisher) Record(ctx context.Context, r results.Result) error {
	if p == nil || p.topic == nil {
		return fmt.Errorf("pubsub publisher is not configured")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"run_id":   r.RunID,
			"account":  r.Account,
			"strategy": r.Strategy,
			"resolved": strconv.FormatBool(r.Resolved),
		},
	}
	if _, err := p.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish result for %s: %w", r.Account, err)
	}
	return nil
}

// Close flushes pending messages and closes an owned client.
func (p *Publisher) Close() error {
	if p == nil || p.topic == nil {
		return nil
	}
	p.topic.Stop()
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			return fmt.Errorf("close pubsub client: %w", err)
		}
	}
	return nil
}
