package client

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"cloud.google.com/go/pubsub"
)

const defaultPublishTimeout = 10 * time.Second

// PubSubClient publishes JSON events to a single topic.
type PubSubClient struct {
	client  *pubsub.Client
	topic   *pubsub.Topic
	timeout time.Duration
}

// NewPubSubClient creates a publisher for projectID/topicID.
func NewPubSubClient(ctx context.Context, projectID, topicID string) (*PubSubClient, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	// Attempt events are sparse; flush each one instead of waiting to batch.
	topic.PublishSettings.CountThreshold = 1

	return &PubSubClient{
		client:  client,
		topic:   topic,
		timeout: defaultPublishTimeout,
	}, nil
}

// Close flushes pending messages and closes the client.
func (c *PubSubClient) Close() {
	c.topic.Stop()
	c.client.Close()
}

// Publish sends data as JSON with attrs and waits for the server ack, at most
// the publish timeout.
func (c *PubSubClient) Publish(ctx context.Context, data any, attrs map[string]string) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	attributes := map[string]string{"content_type": "application/json"}
	maps.Copy(attributes, attrs)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result := c.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: attributes,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", c.topic.ID(), err)
	}
	return nil
}
