package ports

import (
	"context"

	"tablehub/domain/profile"
)

// Priority levels for profile requests. Higher is served first.
const (
	PriorityLow    = 0
	PriorityNormal = 1
	PriorityHigh   = 2
	MaxPriority    = 3
)

// Delivery is one consumed profile request. Ack must be called exactly
// once, after the message outcome is settled.
type Delivery struct {
	Body    []byte
	Request profile.Request
	Ack     func()
}

// Broker is the message fabric connecting discoverers, the profiler
// and downstream subscribers. Mirrors a profile fanout exchange bound
// to a priority queue, a datasets topic exchange, and a failed_profile
// queue.
type Broker interface {
	// PublishProfileRequest submits a request to the profile exchange
	// with the given priority (0-3).
	PublishProfileRequest(ctx context.Context, req profile.Request, priority int) error

	// ConsumeProfileRequests returns a prefetch-1 consumer channel.
	// The next delivery is only handed out after the previous one is
	// acked. The channel closes when ctx is done.
	ConsumeProfileRequests(ctx context.Context) (<-chan Delivery, error)

	// PublishDataset broadcasts a freshly written profile on the
	// datasets topic exchange, routed on the dataset id.
	PublishDataset(ctx context.Context, routingKey string, p *profile.Profile) error

	// SubscribeDatasets delivers profiles whose routing key equals the
	// given key ("" subscribes to all). The returned cancel func
	// releases the subscription.
	SubscribeDatasets(ctx context.Context, routingKey string) (<-chan *profile.Profile, func(), error)

	// PublishFailed moves a message body verbatim to failed_profile.
	PublishFailed(ctx context.Context, body []byte) error
}
