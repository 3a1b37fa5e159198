package model

import (
	"time"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
)

const MaxSeatBytes = 32

// Ticket is the per-ticket lifecycle record. Its event reference never
// changes after creation; ownership changes only through marketplace
// purchases. WasScanned is sticky: once set it is never cleared, even as
// the stage moves on.
type Ticket struct {
	Address      addressing.Address `json:"address"`
	EventAddress addressing.Address `json:"event_address"`
	Owner        addressing.Address `json:"owner"`
	AssetUnit    addressing.Address `json:"asset_unit"`
	Seat         *string            `json:"seat,omitempty"`
	Stage        Stage              `json:"stage"`
	IsListed     bool               `json:"is_listed"`
	WasScanned   bool               `json:"was_scanned"`

	// Deprecated mirrors of the active listing, superseded by the Listing
	// record. Kept populated for readers of the old format.
	ListingPrice     *int64     `json:"listing_price,omitempty"`
	ListingExpiresAt *time.Time `json:"listing_expires_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Listing is an active resale offer for one ticket. At most one exists per
// ticket at any time, enforced by the deterministic listing address. It is
// deleted as soon as the sale-or-cancel outcome is known.
type Listing struct {
	Address       addressing.Address `json:"address"`
	TicketAddress addressing.Address `json:"ticket_address"`
	Seller        addressing.Address `json:"seller"`
	Price         int64              `json:"price"`
	CreatedAt     time.Time          `json:"created_at"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
}

// Escrow returns the custody address holding the asset unit while this
// listing is open.
func (l *Listing) Escrow() addressing.Address {
	return addressing.ForEscrow(l.Address)
}
