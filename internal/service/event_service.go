package service

import (
	"context"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	"github.com/DianaV2002/nft-evo-tickets/internal/cache"
	"github.com/DianaV2002/nft-evo-tickets/internal/clock"
	"github.com/DianaV2002/nft-evo-tickets/internal/model"
	"github.com/DianaV2002/nft-evo-tickets/internal/queue"
	"github.com/DianaV2002/nft-evo-tickets/internal/repository"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"
	"github.com/DianaV2002/nft-evo-tickets/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type EventService interface {
	CreateEvent(ctx context.Context, authority addressing.Address, params model.EventParams) (*model.Event, error)
	UpdateEvent(ctx context.Context, authority addressing.Address, params model.EventParams) (*model.Event, error)
	SetScanner(ctx context.Context, authority addressing.Address, eventID uint64, scanner addressing.Address) (*model.Event, error)
	DeleteEvent(ctx context.Context, authority addressing.Address, eventID uint64) error
	GetEvent(ctx context.Context, address addressing.Address) (*model.Event, error)
	ListEvents(ctx context.Context) ([]*model.Event, error)
}

type EventServiceImpl struct {
	pool       *pgxpool.Pool
	repository repository.EventRepository
	supplyGate cache.SupplyGate
	notifyQ    queue.NotificationQueue
	clock      clock.Clock
}

func NewEventService(
	pool *pgxpool.Pool,
	eventRepository repository.EventRepository,
	supplyGate cache.SupplyGate,
	notifyQ queue.NotificationQueue,
	clk clock.Clock,
) EventService {
	return &EventServiceImpl{
		pool:       pool,
		repository: eventRepository,
		supplyGate: supplyGate,
		notifyQ:    notifyQ,
		clock:      clk,
	}
}

func (s *EventServiceImpl) CreateEvent(ctx context.Context, authority addressing.Address, params model.EventParams) (*model.Event, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	event := &model.Event{
		Address:       addressing.ForEvent(authority, params.EventID),
		EventID:       params.EventID,
		Authority:     authority,
		Scanner:       authority, // authority scans its own gates until a delegate is set
		Name:          params.Name,
		CoverImageURL: params.CoverImageURL,
		StartTs:       params.StartTs.UTC(),
		EndTs:         params.EndTs.UTC(),
		TicketSupply:  params.TicketSupply,
		TicketsSold:   0,
		Version:       model.EventVersion,
	}

	created, err := s.repository.Create(ctx, event)
	if err != nil {
		return nil, err
	}

	if err := s.supplyGate.WarmUp(ctx, created.Address, created.TicketSupply); err != nil {
		logger.WithComponent("service").Warn("supply gate warm-up failed",
			zap.String("event", created.Address.String()), zap.Error(err))
	}

	s.publish(ctx, model.NotificationEventCreated, created)
	return created, nil
}

func (s *EventServiceImpl) UpdateEvent(ctx context.Context, authority addressing.Address, params model.EventParams) (*model.Event, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	address := addressing.ForEvent(authority, params.EventID)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	event, err := s.repository.FindByAddressWithLock(ctx, tx, address)
	if err != nil {
		return nil, err
	}
	if event.Authority != authority {
		return nil, apperrors.ErrUnauthorized
	}
	if !s.clock.Now().Before(event.StartTs) {
		return nil, apperrors.ErrEventAlreadyStarted
	}
	if event.TicketsSold > 0 {
		return nil, apperrors.ErrTicketsAlreadySold
	}

	event.Name = params.Name
	event.CoverImageURL = params.CoverImageURL
	event.StartTs = params.StartTs.UTC()
	event.EndTs = params.EndTs.UTC()
	event.TicketSupply = params.TicketSupply

	updated, err := s.repository.Update(ctx, tx, event)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if err := s.supplyGate.WarmUp(ctx, updated.Address, updated.TicketSupply); err != nil {
		logger.WithComponent("service").Warn("supply gate warm-up failed",
			zap.String("event", updated.Address.String()), zap.Error(err))
	}

	s.publish(ctx, model.NotificationEventUpdated, updated)
	return updated, nil
}

func (s *EventServiceImpl) SetScanner(ctx context.Context, authority addressing.Address, eventID uint64, scanner addressing.Address) (*model.Event, error) {
	address := addressing.ForEvent(authority, eventID)

	event, err := s.repository.FindByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if event.Authority != authority {
		return nil, apperrors.ErrUnauthorized
	}

	return s.repository.SetScanner(ctx, address, scanner)
}

// DeleteEvent removes the event record. Deletion is refused once any
// ticket exists for the event; tickets carry their event reference
// forever and must never be orphaned.
func (s *EventServiceImpl) DeleteEvent(ctx context.Context, authority addressing.Address, eventID uint64) error {
	address := addressing.ForEvent(authority, eventID)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	event, err := s.repository.FindByAddressWithLock(ctx, tx, address)
	if err != nil {
		return err
	}
	if event.Authority != authority {
		return apperrors.ErrUnauthorized
	}

	count, err := s.repository.CountTickets(ctx, tx, address)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.ErrTicketsOutstanding
	}

	if err := s.repository.Delete(ctx, tx, address); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if err := s.supplyGate.Drop(ctx, address); err != nil {
		logger.WithComponent("service").Warn("supply gate drop failed",
			zap.String("event", address.String()), zap.Error(err))
	}

	s.publish(ctx, model.NotificationEventDeleted, event)
	return nil
}

func (s *EventServiceImpl) GetEvent(ctx context.Context, address addressing.Address) (*model.Event, error) {
	return s.repository.FindByAddress(ctx, address)
}

func (s *EventServiceImpl) ListEvents(ctx context.Context) ([]*model.Event, error) {
	return s.repository.List(ctx)
}

// publish emits the indexer notification for a committed change. Failures
// are logged, not returned: the record mutation has already committed and
// notifications are observable output, not state.
func (s *EventServiceImpl) publish(ctx context.Context, kind model.NotificationKind, event *model.Event) {
	n := &model.EventNotification{
		Kind:         kind,
		EventID:      event.EventID,
		Authority:    event.Authority,
		EventAddress: event.Address,
		Name:         event.Name,
		StartTs:      event.StartTs,
		EndTs:        event.EndTs,
		TicketSupply: event.TicketSupply,
		EmittedAt:    s.clock.Now(),
	}
	if err := s.notifyQ.Publish(ctx, n); err != nil {
		logger.WithComponent("service").Warn("publish notification failed",
			zap.String("kind", string(kind)),
			zap.Uint64("event_id", event.EventID),
			zap.Error(err))
	}
}
