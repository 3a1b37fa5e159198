package repository

import (
	"context"
	"testing"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	"github.com/DianaV2002/nft-evo-tickets/internal/model"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestListing(t *testing.T, ticket *model.Ticket, seller addressing.Address, price int64) *model.Listing {
	t.Helper()
	repo := NewListingRepository(testDB)

	var created *model.Listing
	err := inTx(t, func(tx pgx.Tx) error {
		var err error
		created, err = repo.Create(context.Background(), tx, &model.Listing{
			Address:       addressing.ForListing(ticket.Address),
			TicketAddress: ticket.Address,
			Seller:        seller,
			Price:         price,
		})
		return err
	})
	require.NoError(t, err)
	return created
}

func TestListingRepository_Create(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewListingRepository(testDB)
	authority := addressing.ForIdentity("listing-authority")
	owner := addressing.ForIdentity("listing-owner")

	event := createTestEvent(t, authority, 1, 10)
	ticket := createTestTicket(t, event, owner, 0)

	t.Run("Success", func(t *testing.T) {
		created := createTestListing(t, ticket, owner, 5000)
		assert.Equal(t, addressing.ForListing(ticket.Address), created.Address)
		assert.Equal(t, int64(5000), created.Price)
		assert.Nil(t, created.ExpiresAt)
	})

	t.Run("TicketAlreadyListed", func(t *testing.T) {
		err := inTx(t, func(tx pgx.Tx) error {
			_, err := repo.Create(ctx, tx, &model.Listing{
				Address:       addressing.ForListing(ticket.Address),
				TicketAddress: ticket.Address,
				Seller:        owner,
				Price:         9000,
			})
			return err
		})
		assert.ErrorIs(t, err, apperrors.ErrTicketAlreadyListed)
	})
}

func TestListingRepository_FindByTicket(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewListingRepository(testDB)
	authority := addressing.ForIdentity("find-listing-authority")
	owner := addressing.ForIdentity("find-listing-owner")

	event := createTestEvent(t, authority, 2, 10)
	ticket := createTestTicket(t, event, owner, 0)
	createTestListing(t, ticket, owner, 1200)

	found, err := repo.FindByTicket(ctx, ticket.Address)
	require.NoError(t, err)
	assert.Equal(t, ticket.Address, found.TicketAddress)
	assert.Equal(t, owner, found.Seller)

	_, err = repo.FindByTicket(ctx, addressing.ForIdentity("unlisted"))
	assert.ErrorIs(t, err, apperrors.ErrListingNotFound)
}

func TestListingRepository_Delete(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewListingRepository(testDB)
	authority := addressing.ForIdentity("del-listing-authority")
	owner := addressing.ForIdentity("del-listing-owner")

	event := createTestEvent(t, authority, 3, 10)
	ticket := createTestTicket(t, event, owner, 0)
	listing := createTestListing(t, ticket, owner, 800)

	require.NoError(t, inTx(t, func(tx pgx.Tx) error {
		return repo.Delete(ctx, tx, listing.Address)
	}))

	_, err := repo.FindByTicket(ctx, ticket.Address)
	assert.ErrorIs(t, err, apperrors.ErrListingNotFound)

	// Relisting after deletion is a fresh escrow cycle.
	relisted := createTestListing(t, ticket, owner, 900)
	assert.Equal(t, listing.Address, relisted.Address)
}

func TestListingRepository_List(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewListingRepository(testDB)
	authority := addressing.ForIdentity("all-listing-authority")
	owner := addressing.ForIdentity("all-listing-owner")

	event := createTestEvent(t, authority, 4, 10)
	first := createTestTicket(t, event, owner, 0)
	second := createTestTicket(t, event, owner, 1)

	createTestListing(t, first, owner, 100)
	createTestListing(t, second, owner, 200)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
