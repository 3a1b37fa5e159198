package repository

import (
	"context"

	"github.com/DianaV2002/nft-evo-tickets/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository persists event notifications consumed from the
// queue. The table is the feed off-ledger indexers read; nothing in the
// core reads it back.
type NotificationRepository interface {
	Record(ctx context.Context, n *model.EventNotification) error
	ListByEvent(ctx context.Context, eventID uint64) ([]*model.EventNotification, error)
}

type NotificationRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &NotificationRepositoryImpl{
		pool: pool,
	}
}

func (r *NotificationRepositoryImpl) Record(ctx context.Context, n *model.EventNotification) error {
	query := `
		INSERT INTO event_notifications (
			kind, event_id, authority, event_address, name,
			start_ts, end_ts, ticket_supply, emitted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var startTs, endTs any
	var supply any
	if n.Kind != model.NotificationEventDeleted {
		startTs, endTs, supply = n.StartTs, n.EndTs, n.TicketSupply
	}

	_, err := r.pool.Exec(ctx, query,
		n.Kind, n.EventID, n.Authority, n.EventAddress, n.Name,
		startTs, endTs, supply, n.EmittedAt,
	)
	return err
}

func (r *NotificationRepositoryImpl) ListByEvent(ctx context.Context, eventID uint64) ([]*model.EventNotification, error) {
	query := `
		SELECT kind, event_id, authority, event_address, name,
		       COALESCE(start_ts, 'epoch'::timestamptz),
		       COALESCE(end_ts, 'epoch'::timestamptz),
		       COALESCE(ticket_supply, 0),
		       emitted_at
		FROM event_notifications
		WHERE event_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*model.EventNotification, 0)
	for rows.Next() {
		var n model.EventNotification
		err := rows.Scan(
			&n.Kind, &n.EventID, &n.Authority, &n.EventAddress, &n.Name,
			&n.StartTs, &n.EndTs, &n.TicketSupply, &n.EmittedAt,
		)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}
