package service

import (
	"context"
	"testing"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	"github.com/DianaV2002/nft-evo-tickets/internal/clock"
	"github.com/DianaV2002/nft-evo-tickets/internal/model"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketService_InitialStageFollowsEventTiming(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	authority := addressing.ForIdentity("organizer-stage")

	early := newServiceHarness(clock.NewFixed(beforeStart))
	event := createHarnessEvent(t, early, authority, 1, 10)

	owner := addressing.ForIdentity("holder-early")
	ticket, err := early.tickets.MintTicket(ctx, authority, MintTicketParams{
		EventAddress: event.Address,
		Owner:        owner,
		TicketIndex:  0,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StagePrestige, ticket.Stage)

	late := newServiceHarness(clock.NewFixed(duringEvent))
	lateOwner := addressing.ForIdentity("holder-late")
	ticket, err = late.tickets.MintTicket(ctx, authority, MintTicketParams{
		EventAddress: event.Address,
		Owner:        lateOwner,
		TicketIndex:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StageQr, ticket.Stage)
}

func TestTicketService_BuyPaysEventAuthority(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	h := newServiceHarness(clock.NewFixed(beforeStart))

	authority := addressing.ForIdentity("organizer-pay")
	event := createHarnessEvent(t, h, authority, 2, 10)

	buyer := addressing.ForIdentity("buyer-pay")
	seedWallet(t, buyer, 5000)

	_, err := h.tickets.BuyEventTicket(ctx, buyer, BuyTicketParams{
		EventAddress: event.Address,
		Price:        5000,
		TicketIndex:  0,
	})
	require.NoError(t, err)

	buyerBalance, err := h.ledger.Balance(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(0), buyerBalance)

	authorityBalance, err := h.ledger.Balance(ctx, authority)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), authorityBalance)
}

func TestTicketService_BuyInsufficientFundsLeavesNoTrace(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	h := newServiceHarness(clock.NewFixed(beforeStart))

	authority := addressing.ForIdentity("organizer-poor")
	event := createHarnessEvent(t, h, authority, 3, 10)

	buyer := addressing.ForIdentity("buyer-poor")
	seedWallet(t, buyer, 999)

	_, err := h.tickets.BuyEventTicket(ctx, buyer, BuyTicketParams{
		EventAddress: event.Address,
		Price:        1000,
		TicketIndex:  0,
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPayment)

	balance, err := h.ledger.Balance(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(999), balance)

	stored, err := h.eventRepo.FindByAddress(ctx, event.Address)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), stored.TicketsSold)

	tickets, err := h.tickets.ListByEvent(ctx, event.Address)
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestTicketService_SoldOutAndComplimentaryMint(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	h := newServiceHarness(clock.NewFixed(beforeStart))

	authority := addressing.ForIdentity("organizer-supply")
	event := createHarnessEvent(t, h, authority, 4, 1)

	buyer := addressing.ForIdentity("buyer-supply")
	_, err := h.tickets.BuyEventTicket(ctx, buyer, BuyTicketParams{
		EventAddress: event.Address,
		TicketIndex:  0,
	})
	require.NoError(t, err)

	second := addressing.ForIdentity("buyer-too-late")
	_, err = h.tickets.BuyEventTicket(ctx, second, BuyTicketParams{
		EventAddress: event.Address,
		TicketIndex:  1,
	})
	assert.ErrorIs(t, err, apperrors.ErrSoldOut)

	// Complimentary mints are not primary sales: they ignore the supply
	// cap and leave tickets_sold alone even on a sold-out event.
	guest := addressing.ForIdentity("vip-guest")
	_, err = h.tickets.MintTicket(ctx, authority, MintTicketParams{
		EventAddress: event.Address,
		Owner:        guest,
		TicketIndex:  2,
	})
	require.NoError(t, err)

	stored, err := h.eventRepo.FindByAddress(ctx, event.Address)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stored.TicketsSold)

	tickets, err := h.tickets.ListByEvent(ctx, event.Address)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
}

func TestTicketService_MintRequiresAuthority(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	h := newServiceHarness(clock.NewFixed(beforeStart))

	authority := addressing.ForIdentity("organizer-auth")
	event := createHarnessEvent(t, h, authority, 5, 10)

	stranger := addressing.ForIdentity("stranger")
	_, err := h.tickets.MintTicket(ctx, stranger, MintTicketParams{
		EventAddress: event.Address,
		Owner:        stranger,
		TicketIndex:  0,
	})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestTicketService_StageTransitionAuthorization(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	h := newServiceHarness(clock.NewFixed(beforeStart))

	authority := addressing.ForIdentity("organizer-gates")
	scanner := addressing.ForIdentity("door-scanner")
	event := createHarnessEvent(t, h, authority, 6, 10)
	_, err := h.events.SetScanner(ctx, authority, event.EventID, scanner)
	require.NoError(t, err)

	owner := addressing.ForIdentity("attendee")
	ticket, err := h.tickets.MintTicket(ctx, authority, MintTicketParams{
		EventAddress: event.Address,
		Owner:        owner,
		TicketIndex:  0,
	})
	require.NoError(t, err)
	require.Equal(t, model.StagePrestige, ticket.Stage)

	// Scanning skips the Qr stage entirely.
	_, err = h.tickets.UpdateTicket(ctx, scanner, ticket.Address, model.StageScanned)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTicketStage)

	// Only the authority activates tickets.
	_, err = h.tickets.UpdateTicket(ctx, scanner, ticket.Address, model.StageQr)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	updated, err := h.tickets.UpdateTicket(ctx, authority, ticket.Address, model.StageQr)
	require.NoError(t, err)
	assert.Equal(t, model.StageQr, updated.Stage)

	// Only the scanner delegate scans; the authority lost that role when
	// it delegated.
	_, err = h.tickets.UpdateTicket(ctx, authority, ticket.Address, model.StageScanned)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	scanned, err := h.tickets.UpdateTicket(ctx, scanner, ticket.Address, model.StageScanned)
	require.NoError(t, err)
	assert.Equal(t, model.StageScanned, scanned.Stage)
	assert.True(t, scanned.WasScanned)

	// A scanned ticket does not go back to Qr.
	_, err = h.tickets.UpdateTicket(ctx, authority, ticket.Address, model.StageQr)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTicketStage)
}

func TestTicketService_CollectiblePreconditions(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	h := newServiceHarness(clock.NewFixed(duringEvent))

	authority := addressing.ForIdentity("organizer-collect")
	event := createHarnessEvent(t, h, authority, 7, 10)

	owner := addressing.ForIdentity("collector")
	ticket, err := h.tickets.MintTicket(ctx, authority, MintTicketParams{
		EventAddress: event.Address,
		Owner:        owner,
		TicketIndex:  0,
	})
	require.NoError(t, err)
	require.Equal(t, model.StageQr, ticket.Stage)

	// Still mid-event.
	_, err = h.tickets.UpgradeToCollectible(ctx, owner, ticket.Address)
	assert.ErrorIs(t, err, apperrors.ErrEventNotOver)

	// Event over, ticket never scanned.
	after := newServiceHarness(clock.NewFixed(afterEnd))
	_, err = after.tickets.UpgradeToCollectible(ctx, owner, ticket.Address)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotScanned)

	_, err = h.tickets.UpdateTicket(ctx, authority, ticket.Address, model.StageScanned)
	require.NoError(t, err)

	upgraded, err := after.tickets.UpgradeToCollectible(ctx, owner, ticket.Address)
	require.NoError(t, err)
	assert.Equal(t, model.StageCollectible, upgraded.Stage)

	// The upgrade is one way.
	_, err = after.tickets.UpgradeToCollectible(ctx, owner, ticket.Address)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTicketStage)
}
