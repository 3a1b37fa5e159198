package repository

import (
	"context"
	"time"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	"github.com/DianaV2002/nft-evo-tickets/internal/model"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	FindByAddress(ctx context.Context, address addressing.Address) (*model.Event, error)
	SetScanner(ctx context.Context, address, scanner addressing.Address) (*model.Event, error)

	// Transaction methods
	Update(ctx context.Context, tx pgx.Tx, event *model.Event) (*model.Event, error)
	Delete(ctx context.Context, tx pgx.Tx, address addressing.Address) error
	FindByAddressWithLock(ctx context.Context, tx pgx.Tx, address addressing.Address) (*model.Event, error)
	IncrementTicketsSold(ctx context.Context, tx pgx.Tx, address addressing.Address) error
	CountTickets(ctx context.Context, tx pgx.Tx, address addressing.Address) (int, error)
}

type EventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &EventRepositoryImpl{
		pool: pool,
	}
}

const eventColumns = `address, event_id, authority, scanner, name, cover_image_url,
		start_ts, end_ts, ticket_supply, tickets_sold, version, created_at, updated_at`

func scanEvent(row pgx.Row, event *model.Event) error {
	return row.Scan(
		&event.Address,
		&event.EventID,
		&event.Authority,
		&event.Scanner,
		&event.Name,
		&event.CoverImageURL,
		&event.StartTs,
		&event.EndTs,
		&event.TicketSupply,
		&event.TicketsSold,
		&event.Version,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	query := `
		INSERT INTO events (
			address, event_id, authority, scanner, name, cover_image_url,
			start_ts, end_ts, ticket_supply, tickets_sold, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + eventColumns

	err := scanEvent(r.pool.QueryRow(ctx, query,
		event.Address, event.EventID, event.Authority, event.Scanner,
		event.Name, event.CoverImageURL, event.StartTs, event.EndTs,
		event.TicketSupply, event.TicketsSold, event.Version,
	), event)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrEventAlreadyInitialized
		}
		return nil, err
	}
	return event, nil
}

func (r *EventRepositoryImpl) List(ctx context.Context) ([]*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		var event model.Event
		if err := scanEvent(rows, &event); err != nil {
			return nil, err
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepositoryImpl) FindByAddress(ctx context.Context, address addressing.Address) (*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE address = $1
	`

	var event model.Event
	err := scanEvent(r.pool.QueryRow(ctx, query, address), &event)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *EventRepositoryImpl) FindByAddressWithLock(ctx context.Context, tx pgx.Tx, address addressing.Address) (*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE address = $1
		FOR UPDATE
	`

	var event model.Event
	err := scanEvent(tx.QueryRow(ctx, query, address), &event)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *EventRepositoryImpl) Update(ctx context.Context, tx pgx.Tx, event *model.Event) (*model.Event, error) {
	query := `
		UPDATE events
		SET name = $1, cover_image_url = $2, start_ts = $3, end_ts = $4,
		    ticket_supply = $5, updated_at = $6
		WHERE address = $7
		RETURNING ` + eventColumns

	var updated model.Event
	err := scanEvent(tx.QueryRow(ctx, query,
		event.Name, event.CoverImageURL, event.StartTs, event.EndTs,
		event.TicketSupply, time.Now().UTC(), event.Address,
	), &updated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (r *EventRepositoryImpl) SetScanner(ctx context.Context, address, scanner addressing.Address) (*model.Event, error) {
	query := `
		UPDATE events
		SET scanner = $1, updated_at = $2
		WHERE address = $3
		RETURNING ` + eventColumns

	var updated model.Event
	err := scanEvent(r.pool.QueryRow(ctx, query, scanner, time.Now().UTC(), address), &updated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (r *EventRepositoryImpl) IncrementTicketsSold(ctx context.Context, tx pgx.Tx, address addressing.Address) error {
	query := `
		UPDATE events
		SET tickets_sold = tickets_sold + 1, updated_at = $1
		WHERE address = $2 AND tickets_sold < ticket_supply
	`

	result, err := tx.Exec(ctx, query, time.Now().UTC(), address)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrSoldOut
	}
	return nil
}

func (r *EventRepositoryImpl) CountTickets(ctx context.Context, tx pgx.Tx, address addressing.Address) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tickets
		WHERE event_address = $1
	`

	var count int
	if err := tx.QueryRow(ctx, query, address).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *EventRepositoryImpl) Delete(ctx context.Context, tx pgx.Tx, address addressing.Address) error {
	result, err := tx.Exec(ctx, `DELETE FROM events WHERE address = $1`, address)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}
