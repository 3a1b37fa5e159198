package queue

import (
	"context"

	"github.com/DianaV2002/nft-evo-tickets/internal/model"
)

type Delivery struct {
	Data *model.EventNotification
	Ack  func()
	Nack func(requeue bool)
}

// NotificationQueue carries event-registry notifications from the services
// to the indexer worker. Publishing happens after the database transaction
// commits; the notification is observable output, never state the core
// reads back.
type NotificationQueue interface {
	Publish(ctx context.Context, n *model.EventNotification) error
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

// MemoryNotificationQueue is a channel-backed queue for single-process
// deployments and tests.
type MemoryNotificationQueue struct {
	ch chan *model.EventNotification
}

func NewMemoryNotificationQueue(bufferSize int) NotificationQueue {
	return &MemoryNotificationQueue{
		ch: make(chan *model.EventNotification, bufferSize),
	}
}

func (q *MemoryNotificationQueue) Publish(ctx context.Context, n *model.EventNotification) error {
	select {
	case q.ch <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryNotificationQueue) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-q.ch:
				if !ok {
					return
				}

				out <- Delivery{
					Data: n,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if !requeue {
							return
						}
						// Requeue must not wedge the consumer when the
						// buffer is full and the subscription is gone.
						select {
						case q.ch <- n:
						case <-ctx.Done():
						}
					},
				}
			}
		}
	}()

	return out, nil
}
