package worker

import (
	"context"

	"github.com/DianaV2002/nft-evo-tickets/internal/queue"
	"github.com/DianaV2002/nft-evo-tickets/internal/repository"
	"github.com/DianaV2002/nft-evo-tickets/pkg/logger"

	"go.uber.org/zap"
)

// NotificationWorker drains the notification queue into the
// event_notifications table, the feed off-ledger indexers consume.
type NotificationWorker interface {
	Start(ctx context.Context) error
}

type NotificationWorkerImpl struct {
	repository repository.NotificationRepository
	queue      queue.NotificationQueue
}

func NewNotificationWorker(repository repository.NotificationRepository, queue queue.NotificationQueue) NotificationWorker {
	return &NotificationWorkerImpl{
		repository: repository,
		queue:      queue,
	}
}

func (w *NotificationWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		log := logger.WithComponent("worker")
		for msg := range msgs {
			if err := w.repository.Record(ctx, msg.Data); err != nil {
				log.Warn("record notification failed, will retry",
					zap.String("kind", string(msg.Data.Kind)),
					zap.Uint64("event_id", msg.Data.EventID),
					zap.Error(err))
				msg.Nack(true)
			} else {
				msg.Ack()
			}
		}
	}()
	return nil
}
