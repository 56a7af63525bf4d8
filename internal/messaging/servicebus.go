package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"example.com/eventhub/config"
	"example.com/eventhub/internal/metrics"
)

// Publisher defines the interface for notification fan-out to the message
// bus. Publishing is advisory: a failed publish never affects the
// authoritative status write or the notification log.
type Publisher interface {
	PublishMessage(ctx context.Context, message interface{}, queueName string) error
	Close(ctx context.Context) error
}

// AzureServiceBusClient implements Publisher using Azure Service Bus
type AzureServiceBusClient struct {
	client *azservicebus.Client
}

// NewPublisher creates a new message bus publisher. When the bus is
// disabled by configuration a no-op publisher is returned.
func NewPublisher(cfg config.ServiceBusConfig) (Publisher, error) {
	if !cfg.Enabled {
		return &noopPublisher{}, nil
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create service bus client: %w", err)
	}

	return &AzureServiceBusClient{client: client}, nil
}

// PublishMessage publishes a message to a queue
func (c *AzureServiceBusClient) PublishMessage(ctx context.Context, message interface{}, queueName string) error {
	collector := metrics.GetMetricsCollector()

	sender, err := c.client.NewSender(queueName, nil)
	if err != nil {
		collector.RecordError(metrics.ErrorTypeMessageBus)
		return fmt.Errorf("failed to create sender for queue %s: %w", queueName, err)
	}
	defer sender.Close(ctx)

	messageBytes, err := json.Marshal(message)
	if err != nil {
		collector.RecordError(metrics.ErrorTypeMessageBus)
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	sbMessage := &azservicebus.Message{
		Body: messageBytes,
	}

	if err := sender.SendMessage(ctx, sbMessage, nil); err != nil {
		collector.RecordError(metrics.ErrorTypeMessageBus)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// Close closes the client
func (c *AzureServiceBusClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// noopPublisher is used when the message bus is disabled
type noopPublisher struct{}

func (p *noopPublisher) PublishMessage(ctx context.Context, message interface{}, queueName string) error {
	return nil
}

func (p *noopPublisher) Close(ctx context.Context) error {
	return nil
}

// IsDisconnectionError checks whether an error looks like a transient
// AMQP disconnection worth retrying
func IsDisconnectionError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "amqp: link detached") ||
		strings.Contains(errMsg, "awaiting send: context deadline exceeded")
}

// RetryWithBackoff retries an operation with exponential backoff
func RetryWithBackoff(ctx context.Context, fn func() error, maxRetries int) error {
	var err error

	for retry := 0; retry < maxRetries; retry++ {
		err = fn()
		if err == nil {
			return nil
		}

		if !IsDisconnectionError(err) {
			return err
		}

		backoff := time.Duration(1<<uint(retry)) * time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}

		select {
		case <-time.After(backoff):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}
