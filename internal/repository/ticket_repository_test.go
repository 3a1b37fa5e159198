package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	"github.com/DianaV2002/nft-evo-tickets/internal/model"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inTx(t *testing.T, fn func(tx pgx.Tx) error) error {
	t.Helper()
	ctx := context.Background()

	tx, err := testDB.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func TestTicketRepository_Create(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewTicketRepository(testDB)
	authority := addressing.ForIdentity("tix-authority")
	owner := addressing.ForIdentity("tix-owner")

	event := createTestEvent(t, authority, 1, 10)

	t.Run("Success", func(t *testing.T) {
		ticket := createTestTicket(t, event, owner, 0)
		assert.Equal(t, addressing.ForTicket(event.Address, owner, 0), ticket.Address)
		assert.Equal(t, model.StagePrestige, ticket.Stage)
		assert.False(t, ticket.IsListed)
		assert.False(t, ticket.WasScanned)
	})

	t.Run("DuplicateAddress", func(t *testing.T) {
		err := inTx(t, func(tx pgx.Tx) error {
			_, err := repo.Create(ctx, tx, &model.Ticket{
				Address:      addressing.ForTicket(event.Address, owner, 0),
				EventAddress: event.Address,
				Owner:        owner,
				AssetUnit:    addressing.ForAssetUnit(event.Address, owner, 0),
				Stage:        model.StagePrestige,
			})
			return err
		})
		assert.ErrorIs(t, err, apperrors.ErrTicketAlreadyExists)
	})
}

func TestTicketRepository_UpdateStage(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewTicketRepository(testDB)
	authority := addressing.ForIdentity("stage-authority")
	owner := addressing.ForIdentity("stage-owner")

	event := createTestEvent(t, authority, 2, 10)
	ticket := createTestTicket(t, event, owner, 0)

	require.NoError(t, inTx(t, func(tx pgx.Tx) error {
		return repo.UpdateStage(ctx, tx, ticket.Address, model.StageQr, false)
	}))

	require.NoError(t, inTx(t, func(tx pgx.Tx) error {
		return repo.UpdateStage(ctx, tx, ticket.Address, model.StageScanned, true)
	}))

	found, err := repo.FindByAddress(ctx, ticket.Address)
	require.NoError(t, err)
	assert.Equal(t, model.StageScanned, found.Stage)
	assert.True(t, found.WasScanned)

	// The attendance flag is sticky: later transitions never clear it.
	require.NoError(t, inTx(t, func(tx pgx.Tx) error {
		return repo.UpdateStage(ctx, tx, ticket.Address, model.StageCollectible, false)
	}))

	found, err = repo.FindByAddress(ctx, ticket.Address)
	require.NoError(t, err)
	assert.Equal(t, model.StageCollectible, found.Stage)
	assert.True(t, found.WasScanned)
}

func TestTicketRepository_SetAndClearListed(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewTicketRepository(testDB)
	authority := addressing.ForIdentity("list-authority")
	owner := addressing.ForIdentity("list-owner")
	buyer := addressing.ForIdentity("list-buyer")

	event := createTestEvent(t, authority, 3, 10)
	ticket := createTestTicket(t, event, owner, 0)

	price := int64(2500)
	expires := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	require.NoError(t, inTx(t, func(tx pgx.Tx) error {
		return repo.SetListed(ctx, tx, ticket.Address, &price, &expires)
	}))

	found, err := repo.FindByAddress(ctx, ticket.Address)
	require.NoError(t, err)
	assert.True(t, found.IsListed)
	require.NotNil(t, found.ListingPrice)
	assert.Equal(t, price, *found.ListingPrice)
	require.NotNil(t, found.ListingExpiresAt)

	require.NoError(t, inTx(t, func(tx pgx.Tx) error {
		return repo.ClearListed(ctx, tx, ticket.Address, buyer)
	}))

	found, err = repo.FindByAddress(ctx, ticket.Address)
	require.NoError(t, err)
	assert.False(t, found.IsListed)
	assert.Nil(t, found.ListingPrice)
	assert.Nil(t, found.ListingExpiresAt)
	assert.Equal(t, buyer, found.Owner)
}

func TestTicketRepository_Listings(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewTicketRepository(testDB)
	authority := addressing.ForIdentity("query-authority")
	ownerA := addressing.ForIdentity("query-owner-a")
	ownerB := addressing.ForIdentity("query-owner-b")

	event := createTestEvent(t, authority, 4, 10)
	other := createTestEvent(t, authority, 5, 10)

	createTestTicket(t, event, ownerA, 0)
	createTestTicket(t, event, ownerB, 1)
	createTestTicket(t, other, ownerA, 0)

	byEvent, err := repo.ListByEvent(ctx, event.Address)
	require.NoError(t, err)
	assert.Len(t, byEvent, 2)

	byOwner, err := repo.ListByOwner(ctx, ownerA)
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	none, err := repo.ListByOwner(ctx, addressing.ForIdentity("nobody"))
	require.NoError(t, err)
	assert.Empty(t, none)
}
