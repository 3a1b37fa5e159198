package service

import (
	"context"
	"errors"
	"time"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	"github.com/DianaV2002/nft-evo-tickets/internal/assets"
	"github.com/DianaV2002/nft-evo-tickets/internal/clock"
	"github.com/DianaV2002/nft-evo-tickets/internal/model"
	"github.com/DianaV2002/nft-evo-tickets/internal/payments"
	"github.com/DianaV2002/nft-evo-tickets/internal/repository"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MarketService interface {
	ListTicket(ctx context.Context, seller addressing.Address, ticket addressing.Address, price int64, expiresAt *time.Time) (*model.Listing, error)
	BuyListedTicket(ctx context.Context, buyer addressing.Address, ticket addressing.Address) (*model.Ticket, error)
	CancelListing(ctx context.Context, caller addressing.Address, ticket addressing.Address) error
	GetListing(ctx context.Context, ticket addressing.Address) (*model.Listing, error)
	ListListings(ctx context.Context) ([]*model.Listing, error)
}

type MarketServiceImpl struct {
	pool        *pgxpool.Pool
	listings    repository.ListingRepository
	tickets     repository.TicketRepository
	events      repository.EventRepository
	registry    assets.Registry
	ledger      payments.Ledger
	clock       clock.Clock
	feeBasisPts int64
}

func NewMarketService(
	pool *pgxpool.Pool,
	listingRepository repository.ListingRepository,
	ticketRepository repository.TicketRepository,
	eventRepository repository.EventRepository,
	registry assets.Registry,
	ledger payments.Ledger,
	clk clock.Clock,
	feeBasisPoints int64,
) MarketService {
	return &MarketServiceImpl{
		pool:        pool,
		listings:    listingRepository,
		tickets:     ticketRepository,
		events:      eventRepository,
		registry:    registry,
		ledger:      ledger,
		clock:       clk,
		feeBasisPts: feeBasisPoints,
	}
}

// ListTicket opens a resale offer: the asset unit moves from the seller
// into the listing's custody address in the same transaction that creates
// the listing record. A second listing for the same ticket collides on the
// derived listing address and fails before any effect.
func (s *MarketServiceImpl) ListTicket(ctx context.Context, seller addressing.Address, ticketAddr addressing.Address, price int64, expiresAt *time.Time) (*model.Listing, error) {
	if price < 0 {
		return nil, apperrors.ErrInvalidInput
	}

	now := s.clock.Now()
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, apperrors.ErrInvalidInput
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ticket, err := s.tickets.FindByAddressWithLock(ctx, tx, ticketAddr)
	if err != nil {
		return nil, err
	}
	if ticket.Owner != seller {
		return nil, apperrors.ErrUnauthorized
	}
	if ticket.IsListed {
		return nil, apperrors.ErrTicketAlreadyListed
	}
	if !ticket.Stage.Resalable() {
		return nil, apperrors.ErrCannotListInStage
	}

	listing := &model.Listing{
		Address:       addressing.ForListing(ticket.Address),
		TicketAddress: ticket.Address,
		Seller:        seller,
		Price:         price,
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
	}

	if _, err := s.listings.Create(ctx, tx, listing); err != nil {
		return nil, err
	}

	if err := s.registry.TransferUnit(ctx, tx, ticket.AssetUnit, seller, listing.Escrow()); err != nil {
		return nil, err
	}

	if err := s.tickets.SetListed(ctx, tx, ticket.Address, &price, expiresAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return listing, nil
}

// BuyListedTicket atomically swaps currency for the escrowed asset unit:
// the buyer pays the seller their share and the event authority the
// marketplace fee, the unit leaves custody for the buyer, ownership moves,
// and the listing is closed. If any step fails nothing takes effect and
// the listing stays open.
func (s *MarketServiceImpl) BuyListedTicket(ctx context.Context, buyer addressing.Address, ticketAddr addressing.Address) (*model.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ticket, err := s.tickets.FindByAddressWithLock(ctx, tx, ticketAddr)
	if err != nil {
		return nil, err
	}
	if !ticket.IsListed {
		return nil, apperrors.ErrTicketNotListed
	}

	listing, err := s.listings.FindByTicketWithLock(ctx, tx, ticket.Address)
	if err != nil {
		if errors.Is(err, apperrors.ErrListingNotFound) {
			return nil, apperrors.ErrTicketNotListed
		}
		return nil, err
	}

	// Expiry is advisory and checked only here; an expired listing stays
	// cancellable by the seller indefinitely.
	if listing.ExpiresAt != nil && s.clock.Now().After(*listing.ExpiresAt) {
		return nil, apperrors.ErrListingExpired
	}

	event, err := s.events.FindByAddressWithLock(ctx, tx, ticket.EventAddress)
	if err != nil {
		return nil, err
	}

	fee, sellerShare, err := payments.SplitFee(listing.Price, s.feeBasisPts)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Transfer(ctx, tx, buyer, listing.Seller, sellerShare); err != nil {
		return nil, err
	}
	if err := s.ledger.Transfer(ctx, tx, buyer, event.Authority, fee); err != nil {
		return nil, err
	}

	if err := s.registry.TransferUnit(ctx, tx, ticket.AssetUnit, listing.Escrow(), buyer); err != nil {
		return nil, err
	}

	if err := s.tickets.ClearListed(ctx, tx, ticket.Address, buyer); err != nil {
		return nil, err
	}

	if err := s.listings.Delete(ctx, tx, listing.Address); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	ticket.Owner = buyer
	ticket.IsListed = false
	ticket.ListingPrice = nil
	ticket.ListingExpiresAt = nil
	return ticket, nil
}

// CancelListing returns the asset unit from custody to the seller and
// closes the listing. The caller must be both the current ticket owner and
// the original lister; the two are checked independently.
func (s *MarketServiceImpl) CancelListing(ctx context.Context, caller addressing.Address, ticketAddr addressing.Address) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ticket, err := s.tickets.FindByAddressWithLock(ctx, tx, ticketAddr)
	if err != nil {
		return err
	}
	if ticket.Owner != caller {
		return apperrors.ErrUnauthorized
	}
	if !ticket.IsListed {
		return apperrors.ErrTicketNotListed
	}

	listing, err := s.listings.FindByTicketWithLock(ctx, tx, ticket.Address)
	if err != nil {
		if errors.Is(err, apperrors.ErrListingNotFound) {
			return apperrors.ErrTicketNotListed
		}
		return err
	}
	if listing.Seller != caller {
		return apperrors.ErrUnauthorized
	}

	if err := s.registry.TransferUnit(ctx, tx, ticket.AssetUnit, listing.Escrow(), listing.Seller); err != nil {
		return err
	}

	if err := s.tickets.ClearListed(ctx, tx, ticket.Address, ticket.Owner); err != nil {
		return err
	}

	if err := s.listings.Delete(ctx, tx, listing.Address); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *MarketServiceImpl) GetListing(ctx context.Context, ticket addressing.Address) (*model.Listing, error) {
	return s.listings.FindByTicket(ctx, ticket)
}

func (s *MarketServiceImpl) ListListings(ctx context.Context) ([]*model.Listing, error) {
	return s.listings.List(ctx)
}
