package service

import (
	"context"
	"errors"
	"time"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	"github.com/DianaV2002/nft-evo-tickets/internal/assets"
	"github.com/DianaV2002/nft-evo-tickets/internal/cache"
	"github.com/DianaV2002/nft-evo-tickets/internal/clock"
	"github.com/DianaV2002/nft-evo-tickets/internal/model"
	"github.com/DianaV2002/nft-evo-tickets/internal/payments"
	"github.com/DianaV2002/nft-evo-tickets/internal/repository"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"
	"github.com/DianaV2002/nft-evo-tickets/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// MintTicketParams describes an authority-issued (complimentary) ticket.
type MintTicketParams struct {
	EventAddress addressing.Address
	Owner        addressing.Address
	TicketIndex  uint64
	Seat         *string
	URIOverride  *string
}

// BuyTicketParams describes a primary-market purchase.
type BuyTicketParams struct {
	EventAddress addressing.Address
	Price        int64
	Seat         *string
	TicketIndex  uint64
}

type TicketService interface {
	MintTicket(ctx context.Context, authority addressing.Address, params MintTicketParams) (*model.Ticket, error)
	BuyEventTicket(ctx context.Context, buyer addressing.Address, params BuyTicketParams) (*model.Ticket, error)
	UpdateTicket(ctx context.Context, caller addressing.Address, ticket addressing.Address, newStage model.Stage) (*model.Ticket, error)
	UpdateTicketMetadata(ctx context.Context, caller addressing.Address, ticket addressing.Address, newStage model.Stage, newURI string) (*model.Ticket, error)
	UpgradeToCollectible(ctx context.Context, caller addressing.Address, ticket addressing.Address) (*model.Ticket, error)
	GetTicket(ctx context.Context, address addressing.Address) (*model.Ticket, error)
	ListByEvent(ctx context.Context, event addressing.Address) ([]*model.Ticket, error)
	ListByOwner(ctx context.Context, owner addressing.Address) ([]*model.Ticket, error)
	TicketQR(ctx context.Context, address addressing.Address) ([]byte, error)
}

type TicketServiceImpl struct {
	pool       *pgxpool.Pool
	repository repository.TicketRepository
	eventRepo  repository.EventRepository
	registry   assets.Registry
	ledger     payments.Ledger
	supplyGate cache.SupplyGate
	clock      clock.Clock
}

func NewTicketService(
	pool *pgxpool.Pool,
	ticketRepository repository.TicketRepository,
	eventRepository repository.EventRepository,
	registry assets.Registry,
	ledger payments.Ledger,
	supplyGate cache.SupplyGate,
	clk clock.Clock,
) TicketService {
	return &TicketServiceImpl{
		pool:       pool,
		repository: ticketRepository,
		eventRepo:  eventRepository,
		registry:   registry,
		ledger:     ledger,
		supplyGate: supplyGate,
		clock:      clk,
	}
}

// initialStage places a fresh ticket by event timing: before the doors
// notionally open it is a Prestige ticket, afterwards it goes straight to
// the Qr stage.
func initialStage(now, startTs time.Time) model.Stage {
	if now.Before(startTs) {
		return model.StagePrestige
	}
	return model.StageQr
}

func (s *TicketServiceImpl) MintTicket(ctx context.Context, authority addressing.Address, params MintTicketParams) (*model.Ticket, error) {
	if err := validateSeat(params.Seat); err != nil {
		return nil, err
	}

	ticket, err := s.createTicket(ctx, createTicketArgs{
		event:         params.EventAddress,
		owner:         params.Owner,
		payer:         addressing.Address{}, // complimentary, no payment
		price:         0,
		seat:          params.Seat,
		ticketIndex:   params.TicketIndex,
		uriOverride:   params.URIOverride,
		requireAuth:   &authority,
		consumeSupply: false,
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketServiceImpl) BuyEventTicket(ctx context.Context, buyer addressing.Address, params BuyTicketParams) (*model.Ticket, error) {
	if params.Price < 0 {
		return nil, apperrors.ErrInvalidInput
	}
	if err := validateSeat(params.Seat); err != nil {
		return nil, err
	}

	return s.createTicket(ctx, createTicketArgs{
		event:         params.EventAddress,
		owner:         buyer,
		payer:         buyer,
		price:         params.Price,
		seat:          params.Seat,
		ticketIndex:   params.TicketIndex,
		consumeSupply: true,
	})
}

type createTicketArgs struct {
	event       addressing.Address
	owner       addressing.Address
	payer       addressing.Address
	price       int64
	seat        *string
	ticketIndex uint64
	uriOverride *string
	requireAuth *addressing.Address

	// consumeSupply marks a primary sale: it reserves a gate slot and
	// increments tickets_sold. Complimentary authority mints leave the
	// sale supply untouched.
	consumeSupply bool
}

// createTicket is the shared mint/purchase path. For primary sales the
// supply gate takes a reservation first; everything else happens inside one
// transaction, and a failed transaction hands the reservation back.
func (s *TicketServiceImpl) createTicket(ctx context.Context, args createTicketArgs) (*model.Ticket, error) {
	var reserved bool
	if args.consumeSupply {
		var err error
		reserved, err = s.supplyGate.Reserve(ctx, args.event)
		if err != nil && !errors.Is(err, apperrors.ErrEventNotFound) {
			return nil, err
		}
		// An unwarmed gate falls through to the database supply check.
	}

	ticket, err := s.createTicketTx(ctx, args)
	if err != nil {
		if reserved {
			// The reservation must always be handed back, even if the
			// caller has gone away.
			if rerr := s.supplyGate.Release(context.Background(), args.event); rerr != nil {
				logger.WithComponent("service").Error("supply gate release failed",
					zap.String("event", args.event.String()), zap.Error(rerr))
			}
		}
		return nil, err
	}
	return ticket, nil
}

func (s *TicketServiceImpl) createTicketTx(ctx context.Context, args createTicketArgs) (*model.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	event, err := s.eventRepo.FindByAddressWithLock(ctx, tx, args.event)
	if err != nil {
		return nil, err
	}
	if args.requireAuth != nil && event.Authority != *args.requireAuth {
		return nil, apperrors.ErrUnauthorized
	}

	if args.consumeSupply {
		if err := s.eventRepo.IncrementTicketsSold(ctx, tx, event.Address); err != nil {
			return nil, err
		}
	}

	if args.price > 0 {
		if err := s.ledger.Transfer(ctx, tx, args.payer, event.Authority, args.price); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	stage := initialStage(now, event.StartTs)

	ticket := &model.Ticket{
		Address:      addressing.ForTicket(event.Address, args.owner, args.ticketIndex),
		EventAddress: event.Address,
		Owner:        args.owner,
		AssetUnit:    addressing.ForAssetUnit(event.Address, args.owner, args.ticketIndex),
		Seat:         args.seat,
		Stage:        stage,
		IsListed:     false,
		WasScanned:   false,
	}

	if _, err := s.repository.Create(ctx, tx, ticket); err != nil {
		return nil, err
	}

	content := model.ContentFor(stage, event.EventID, event.Name, args.owner.String(), args.seat)
	if args.uriOverride != nil && *args.uriOverride != "" {
		content.URI = model.ClampBytes(*args.uriOverride, model.MaxAssetURIBytes)
	}

	meta := assets.Metadata{
		Name:       content.Name,
		Symbol:     model.AssetSymbol,
		URI:        content.URI,
		RoyaltyBps: model.RoyaltyBasisPoints,
	}
	if err := s.registry.MintUnit(ctx, tx, ticket.AssetUnit, args.owner, meta); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketServiceImpl) UpdateTicket(ctx context.Context, caller addressing.Address, ticket addressing.Address, newStage model.Stage) (*model.Ticket, error) {
	return s.transitionStage(ctx, caller, ticket, newStage, nil)
}

func (s *TicketServiceImpl) UpdateTicketMetadata(ctx context.Context, caller addressing.Address, ticket addressing.Address, newStage model.Stage, newURI string) (*model.Ticket, error) {
	if newURI == "" {
		return nil, apperrors.ErrInvalidInput
	}
	return s.transitionStage(ctx, caller, ticket, newStage, &newURI)
}

// transitionStage applies the explicit lifecycle transitions: the event
// authority may move Prestige/Qr tickets to Qr, and the scanner delegate
// may move Qr tickets to Scanned. Scanning sets the sticky attendance
// flag. Everything else is rejected before any effect.
func (s *TicketServiceImpl) transitionStage(ctx context.Context, caller, ticketAddr addressing.Address, newStage model.Stage, newURI *string) (*model.Ticket, error) {
	if !newStage.IsValid() {
		return nil, apperrors.ErrInvalidInput
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ticket, err := s.repository.FindByAddressWithLock(ctx, tx, ticketAddr)
	if err != nil {
		return nil, err
	}

	event, err := s.eventRepo.FindByAddressWithLock(ctx, tx, ticket.EventAddress)
	if err != nil {
		return nil, err
	}

	var scanned bool
	switch newStage {
	case model.StageQr:
		if caller != event.Authority {
			return nil, apperrors.ErrUnauthorized
		}
		if !ticket.Stage.CanTransitionTo(model.StageQr) {
			return nil, apperrors.ErrInvalidTicketStage
		}
	case model.StageScanned:
		if caller != event.Scanner {
			return nil, apperrors.ErrUnauthorized
		}
		if ticket.Stage != model.StageQr {
			return nil, apperrors.ErrInvalidTicketStage
		}
		scanned = true
	default:
		return nil, apperrors.ErrInvalidTicketStage
	}

	if err := s.repository.UpdateStage(ctx, tx, ticket.Address, newStage, scanned); err != nil {
		return nil, err
	}

	if newURI != nil {
		content := model.ContentFor(newStage, event.EventID, event.Name, ticket.Owner.String(), ticket.Seat)
		uri := model.ClampBytes(*newURI, model.MaxAssetURIBytes)
		if err := s.registry.UpdateMetadata(ctx, tx, ticket.AssetUnit, content.Name, uri); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	ticket.Stage = newStage
	ticket.WasScanned = ticket.WasScanned || scanned
	return ticket, nil
}

// UpgradeToCollectible is the one-way post-event upgrade: any caller may
// run it, but only after the event has ended, only for a scanned ticket,
// and only from the Scanned stage.
func (s *TicketServiceImpl) UpgradeToCollectible(ctx context.Context, caller addressing.Address, ticketAddr addressing.Address) (*model.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ticket, err := s.repository.FindByAddressWithLock(ctx, tx, ticketAddr)
	if err != nil {
		return nil, err
	}

	event, err := s.eventRepo.FindByAddressWithLock(ctx, tx, ticket.EventAddress)
	if err != nil {
		return nil, err
	}

	if !s.clock.Now().After(event.EndTs) {
		return nil, apperrors.ErrEventNotOver
	}
	if !ticket.WasScanned {
		return nil, apperrors.ErrTicketNotScanned
	}
	if ticket.Stage != model.StageScanned {
		return nil, apperrors.ErrInvalidTicketStage
	}

	if err := s.repository.UpdateStage(ctx, tx, ticket.Address, model.StageCollectible, false); err != nil {
		return nil, err
	}

	content := model.ContentFor(model.StageCollectible, event.EventID, event.Name, ticket.Owner.String(), ticket.Seat)
	if err := s.registry.UpdateMetadata(ctx, tx, ticket.AssetUnit, content.Name, content.URI); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	ticket.Stage = model.StageCollectible
	return ticket, nil
}

func (s *TicketServiceImpl) GetTicket(ctx context.Context, address addressing.Address) (*model.Ticket, error) {
	return s.repository.FindByAddress(ctx, address)
}

func (s *TicketServiceImpl) ListByEvent(ctx context.Context, event addressing.Address) ([]*model.Ticket, error) {
	return s.repository.ListByEvent(ctx, event)
}

func (s *TicketServiceImpl) ListByOwner(ctx context.Context, owner addressing.Address) ([]*model.Ticket, error) {
	return s.repository.ListByOwner(ctx, owner)
}

// TicketQR renders the PNG the venue scanner reads at the door. Only a
// ticket in the Qr stage has one.
func (s *TicketServiceImpl) TicketQR(ctx context.Context, address addressing.Address) ([]byte, error) {
	ticket, err := s.repository.FindByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if ticket.Stage != model.StageQr {
		return nil, apperrors.ErrInvalidTicketStage
	}
	return qrcode.Encode(ticket.Address.String(), qrcode.Medium, 256)
}

func validateSeat(seat *string) error {
	if seat != nil && len(*seat) > model.MaxSeatBytes {
		return apperrors.ErrInvalidInput
	}
	return nil
}
