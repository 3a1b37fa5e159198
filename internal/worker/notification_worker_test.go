package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DianaV2002/nft-evo-tickets/internal/model"
	"github.com/DianaV2002/nft-evo-tickets/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockNotificationRepository records calls without a database.
type mockNotificationRepository struct {
	onRecord func(n *model.EventNotification) error
}

func (m *mockNotificationRepository) Record(ctx context.Context, n *model.EventNotification) error {
	return m.onRecord(n)
}

func (m *mockNotificationRepository) ListByEvent(ctx context.Context, eventID uint64) ([]*model.EventNotification, error) {
	return nil, nil
}

func TestNotificationWorker_RecordsDeliveries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := queue.NewMemoryNotificationQueue(10)

	recorded := make(chan *model.EventNotification, 1)
	repo := &mockNotificationRepository{
		onRecord: func(n *model.EventNotification) error {
			recorded <- n
			return nil
		},
	}

	w := NewNotificationWorker(repo, q)
	require.NoError(t, w.Start(ctx))

	n := &model.EventNotification{Kind: model.NotificationEventCreated, EventID: 42}
	require.NoError(t, q.Publish(ctx, n))

	select {
	case got := <-recorded:
		assert.Equal(t, uint64(42), got.EventID)
		assert.Equal(t, model.NotificationEventCreated, got.Kind)
	case <-time.After(time.Second):
		t.Fatal("worker never recorded the notification")
	}
}

func TestNotificationWorker_RetriesFailedRecord(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := queue.NewMemoryNotificationQueue(10)

	var attempts atomic.Int32
	succeeded := make(chan struct{}, 1)
	repo := &mockNotificationRepository{
		onRecord: func(n *model.EventNotification) error {
			if attempts.Add(1) == 1 {
				return errors.New("transient insert failure")
			}
			succeeded <- struct{}{}
			return nil
		},
	}

	w := NewNotificationWorker(repo, q)
	require.NoError(t, w.Start(ctx))

	require.NoError(t, q.Publish(ctx, &model.EventNotification{Kind: model.NotificationEventUpdated, EventID: 7}))

	select {
	case <-succeeded:
		assert.GreaterOrEqual(t, attempts.Load(), int32(2))
	case <-time.After(time.Second):
		t.Fatal("worker never retried the failed delivery")
	}
}
