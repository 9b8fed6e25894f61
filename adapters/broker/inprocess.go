// Package broker provides an in-process message fabric with the same
// shape as the production exchanges: a priority queue for profile
// requests, a topic exchange for freshly profiled datasets, and a dead
// queue for failed requests.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"tablehub/domain/profile"
	"tablehub/internal/logging"
	"tablehub/ports"
)

const subscriberBuffer = 16

type queued struct {
	body []byte
	req  profile.Request
}

type subscription struct {
	key string
	ch  chan *profile.Profile
}

// InProcess is a single-node ports.Broker. Deliveries are prioritized
// (high first, FIFO within a level) and handed to the consumer one at a
// time: the next message waits for the previous ack.
type InProcess struct {
	mu      sync.Mutex
	queues  [ports.MaxPriority + 1][]queued
	pending chan struct{}
	subs    map[int]*subscription
	nextSub int
	failed  [][]byte
	log     *logging.Logger
}

// NewInProcess creates an empty broker
func NewInProcess() *InProcess {
	return &InProcess{
		pending: make(chan struct{}, 1),
		subs:    map[int]*subscription{},
		log:     logging.NewDefaultLogger("broker"),
	}
}

// PublishProfileRequest implements ports.Broker
func (b *InProcess) PublishProfileRequest(_ context.Context, req profile.Request, priority int) error {
	if priority < 0 {
		priority = 0
	}
	if priority > ports.MaxPriority {
		priority = ports.MaxPriority
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode profile request: %w", err)
	}
	b.mu.Lock()
	b.queues[priority] = append(b.queues[priority], queued{body: body, req: req})
	b.mu.Unlock()
	b.wake()
	return nil
}

// ConsumeProfileRequests implements ports.Broker
func (b *InProcess) ConsumeProfileRequests(ctx context.Context) (<-chan ports.Delivery, error) {
	out := make(chan ports.Delivery)
	go func() {
		defer close(out)
		for {
			msg, ok := b.pop()
			if !ok {
				select {
				case <-ctx.Done():
					return
				case <-b.pending:
					continue
				}
			}

			acked := make(chan struct{})
			delivery := ports.Delivery{
				Body:    msg.body,
				Request: msg.req,
				Ack: func() {
					close(acked)
				},
			}
			select {
			case <-ctx.Done():
				b.requeue(msg)
				return
			case out <- delivery:
			}
			// prefetch 1
			select {
			case <-ctx.Done():
				return
			case <-acked:
			}
		}
	}()
	return out, nil
}

func (b *InProcess) pop() (queued, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for p := ports.MaxPriority; p >= 0; p-- {
		if len(b.queues[p]) > 0 {
			msg := b.queues[p][0]
			b.queues[p] = b.queues[p][1:]
			return msg, true
		}
	}
	return queued{}, false
}

func (b *InProcess) requeue(msg queued) {
	b.mu.Lock()
	b.queues[ports.PriorityNormal] = append([]queued{msg}, b.queues[ports.PriorityNormal]...)
	b.mu.Unlock()
	b.wake()
}

func (b *InProcess) wake() {
	select {
	case b.pending <- struct{}{}:
	default:
	}
}

// PublishDataset implements ports.Broker
func (b *InProcess) PublishDataset(_ context.Context, routingKey string, p *profile.Profile) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if sub.key != "" && sub.key != routingKey {
			continue
		}
		select {
		case sub.ch <- p:
		default:
			b.log.Warn("dropping dataset %s for slow subscriber on %q", p.ID, sub.key)
		}
	}
	return nil
}

// SubscribeDatasets implements ports.Broker
func (b *InProcess) SubscribeDatasets(_ context.Context, routingKey string) (<-chan *profile.Profile, func(), error) {
	sub := &subscription{key: routingKey, ch: make(chan *profile.Profile, subscriberBuffer)}
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel, nil
}

// PublishFailed implements ports.Broker
func (b *InProcess) PublishFailed(_ context.Context, body []byte) error {
	b.mu.Lock()
	b.failed = append(b.failed, append([]byte(nil), body...))
	b.mu.Unlock()
	return nil
}

// Failed returns the bodies moved to the dead queue, oldest first
func (b *InProcess) Failed() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.failed))
	copy(out, b.failed)
	return out
}
