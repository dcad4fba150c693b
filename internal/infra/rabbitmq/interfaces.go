package rabbitmq

import "context"

// PublisherInterface is the ledger's event emission port.
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

var _ PublisherInterface = (*Publisher)(nil)
