package repository

import (
	"context"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	"github.com/DianaV2002/nft-evo-tickets/internal/model"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ListingRepository interface {
	FindByTicket(ctx context.Context, ticket addressing.Address) (*model.Listing, error)
	List(ctx context.Context) ([]*model.Listing, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, listing *model.Listing) (*model.Listing, error)
	FindByTicketWithLock(ctx context.Context, tx pgx.Tx, ticket addressing.Address) (*model.Listing, error)
	Delete(ctx context.Context, tx pgx.Tx, address addressing.Address) error
}

type ListingRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewListingRepository(pool *pgxpool.Pool) ListingRepository {
	return &ListingRepositoryImpl{
		pool: pool,
	}
}

const listingColumns = `address, ticket_address, seller, price, created_at, expires_at`

func scanListing(row pgx.Row, listing *model.Listing) error {
	return row.Scan(
		&listing.Address,
		&listing.TicketAddress,
		&listing.Seller,
		&listing.Price,
		&listing.CreatedAt,
		&listing.ExpiresAt,
	)
}

// Create inserts the listing at its derived address. A second listing for
// the same ticket collides on the primary key and is rejected before any
// effect, which is the whole uniqueness mechanism.
func (r *ListingRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, listing *model.Listing) (*model.Listing, error) {
	query := `
		INSERT INTO listings (address, ticket_address, seller, price, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + listingColumns

	err := scanListing(tx.QueryRow(ctx, query,
		listing.Address, listing.TicketAddress, listing.Seller,
		listing.Price, listing.CreatedAt, listing.ExpiresAt,
	), listing)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrTicketAlreadyListed
		}
		return nil, err
	}
	return listing, nil
}

func (r *ListingRepositoryImpl) FindByTicket(ctx context.Context, ticket addressing.Address) (*model.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE ticket_address = $1
	`

	var listing model.Listing
	err := scanListing(r.pool.QueryRow(ctx, query, ticket), &listing)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}

func (r *ListingRepositoryImpl) FindByTicketWithLock(ctx context.Context, tx pgx.Tx, ticket addressing.Address) (*model.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE ticket_address = $1
		FOR UPDATE
	`

	var listing model.Listing
	err := scanListing(tx.QueryRow(ctx, query, ticket), &listing)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}

func (r *ListingRepositoryImpl) List(ctx context.Context) ([]*model.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]*model.Listing, 0)
	for rows.Next() {
		var listing model.Listing
		if err := scanListing(rows, &listing); err != nil {
			return nil, err
		}
		listings = append(listings, &listing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *ListingRepositoryImpl) Delete(ctx context.Context, tx pgx.Tx, address addressing.Address) error {
	result, err := tx.Exec(ctx, `DELETE FROM listings WHERE address = $1`, address)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrListingNotFound
	}
	return nil
}
