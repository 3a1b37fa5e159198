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

type TicketRepository interface {
	FindByAddress(ctx context.Context, address addressing.Address) (*model.Ticket, error)
	ListByEvent(ctx context.Context, event addressing.Address) ([]*model.Ticket, error)
	ListByOwner(ctx context.Context, owner addressing.Address) ([]*model.Ticket, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, ticket *model.Ticket) (*model.Ticket, error)
	FindByAddressWithLock(ctx context.Context, tx pgx.Tx, address addressing.Address) (*model.Ticket, error)
	UpdateStage(ctx context.Context, tx pgx.Tx, address addressing.Address, stage model.Stage, wasScanned bool) error
	SetListed(ctx context.Context, tx pgx.Tx, address addressing.Address, price *int64, expiresAt *time.Time) error
	ClearListed(ctx context.Context, tx pgx.Tx, address addressing.Address, newOwner addressing.Address) error
}

type TicketRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &TicketRepositoryImpl{
		pool: pool,
	}
}

const ticketColumns = `address, event_address, owner, asset_unit, seat, stage,
		is_listed, was_scanned, listing_price, listing_expires_at, created_at, updated_at`

func scanTicket(row pgx.Row, ticket *model.Ticket) error {
	return row.Scan(
		&ticket.Address,
		&ticket.EventAddress,
		&ticket.Owner,
		&ticket.AssetUnit,
		&ticket.Seat,
		&ticket.Stage,
		&ticket.IsListed,
		&ticket.WasScanned,
		&ticket.ListingPrice,
		&ticket.ListingExpiresAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func (r *TicketRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, ticket *model.Ticket) (*model.Ticket, error) {
	query := `
		INSERT INTO tickets (
			address, event_address, owner, asset_unit, seat, stage, is_listed, was_scanned
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + ticketColumns

	err := scanTicket(tx.QueryRow(ctx, query,
		ticket.Address, ticket.EventAddress, ticket.Owner, ticket.AssetUnit,
		ticket.Seat, ticket.Stage, ticket.IsListed, ticket.WasScanned,
	), ticket)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrTicketAlreadyExists
		}
		return nil, err
	}
	return ticket, nil
}

func (r *TicketRepositoryImpl) FindByAddress(ctx context.Context, address addressing.Address) (*model.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE address = $1
	`

	var ticket model.Ticket
	err := scanTicket(r.pool.QueryRow(ctx, query, address), &ticket)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepositoryImpl) FindByAddressWithLock(ctx context.Context, tx pgx.Tx, address addressing.Address) (*model.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE address = $1
		FOR UPDATE
	`

	var ticket model.Ticket
	err := scanTicket(tx.QueryRow(ctx, query, address), &ticket)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepositoryImpl) ListByEvent(ctx context.Context, event addressing.Address) ([]*model.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE event_address = $1
		ORDER BY created_at DESC
	`
	return r.queryTickets(ctx, query, event)
}

func (r *TicketRepositoryImpl) ListByOwner(ctx context.Context, owner addressing.Address) ([]*model.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE owner = $1
		ORDER BY created_at DESC
	`
	return r.queryTickets(ctx, query, owner)
}

func (r *TicketRepositoryImpl) queryTickets(ctx context.Context, query string, arg any) ([]*model.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]*model.Ticket, 0)
	for rows.Next() {
		var ticket model.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		tickets = append(tickets, &ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *TicketRepositoryImpl) UpdateStage(ctx context.Context, tx pgx.Tx, address addressing.Address, stage model.Stage, wasScanned bool) error {
	// was_scanned is sticky: OR keeps it set once true.
	query := `
		UPDATE tickets
		SET stage = $1, was_scanned = was_scanned OR $2, updated_at = $3
		WHERE address = $4
	`

	result, err := tx.Exec(ctx, query, stage, wasScanned, time.Now().UTC(), address)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepositoryImpl) SetListed(ctx context.Context, tx pgx.Tx, address addressing.Address, price *int64, expiresAt *time.Time) error {
	query := `
		UPDATE tickets
		SET is_listed = TRUE, listing_price = $1, listing_expires_at = $2, updated_at = $3
		WHERE address = $4
	`

	result, err := tx.Exec(ctx, query, price, expiresAt, time.Now().UTC(), address)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepositoryImpl) ClearListed(ctx context.Context, tx pgx.Tx, address addressing.Address, newOwner addressing.Address) error {
	query := `
		UPDATE tickets
		SET owner = $1, is_listed = FALSE, listing_price = NULL,
		    listing_expires_at = NULL, updated_at = $2
		WHERE address = $3
	`

	result, err := tx.Exec(ctx, query, newOwner, time.Now().UTC(), address)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}
	return nil
}
