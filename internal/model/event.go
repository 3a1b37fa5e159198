package model

import (
	"time"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"
)

// Field budgets enforced at create and update time.
const (
	MaxEventNameBytes     = 64
	MaxCoverImageURLBytes = 200
)

// EventVersion tags the record format so off-ledger readers can evolve
// with it.
const EventVersion = 1

// Event is the organizer-owned record of an event. Authority is immutable
// after creation; the scanner delegate is replaceable by the authority.
type Event struct {
	Address       addressing.Address `json:"address"`
	EventID       uint64             `json:"event_id"`
	Authority     addressing.Address `json:"authority"`
	Scanner       addressing.Address `json:"scanner"`
	Name          string             `json:"name"`
	CoverImageURL string             `json:"cover_image_url"`
	StartTs       time.Time          `json:"start_ts"`
	EndTs         time.Time          `json:"end_ts"`
	TicketSupply  uint32             `json:"ticket_supply"`
	TicketsSold   uint32             `json:"tickets_sold"`
	Version       int                `json:"version"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// EventParams are the caller-supplied fields shared by create and update.
type EventParams struct {
	EventID       uint64
	Name          string
	CoverImageURL string
	StartTs       time.Time
	EndTs         time.Time
	TicketSupply  uint32
}

// Validate applies the field constraints common to create and update.
func (p EventParams) Validate() error {
	if len(p.Name) == 0 || len(p.Name) > MaxEventNameBytes {
		return apperrors.ErrInvalidInput
	}
	if len(p.CoverImageURL) > MaxCoverImageURLBytes {
		return apperrors.ErrInvalidInput
	}
	if !p.EndTs.After(p.StartTs) {
		return apperrors.ErrInvalidInput
	}
	if p.TicketSupply == 0 {
		return apperrors.ErrInvalidInput
	}
	return nil
}

// NotificationKind labels the observable output emitted for off-ledger
// indexers when an event record changes.
type NotificationKind string

const (
	NotificationEventCreated NotificationKind = "event_created"
	NotificationEventUpdated NotificationKind = "event_updated"
	NotificationEventDeleted NotificationKind = "event_deleted"
)

// EventNotification is the record published to the notification queue on
// event create/update/delete. It is output, not state: the service commits
// first and publishes after.
type EventNotification struct {
	Kind         NotificationKind   `json:"kind"`
	EventID      uint64             `json:"event_id"`
	Authority    addressing.Address `json:"authority"`
	EventAddress addressing.Address `json:"event_address"`
	Name         string             `json:"name,omitempty"`
	StartTs      time.Time          `json:"start_ts,omitempty"`
	EndTs        time.Time          `json:"end_ts,omitempty"`
	TicketSupply uint32             `json:"ticket_supply,omitempty"`
	EmittedAt    time.Time          `json:"emitted_at"`
}
