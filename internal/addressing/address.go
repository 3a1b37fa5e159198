package addressing

import (
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Address is a deterministically derived 32-byte account locator, rendered
// as lowercase hex. Every entity (event, ticket, listing, asset unit,
// escrow, metadata) lives at an address recomputable from its parent's
// identifying fields, so uniqueness is enforced by the address itself
// rather than by a lookup table.
type Address [32]byte

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText renders the address as hex, so JSON and text encoders emit
// the canonical string form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value stores the address as its hex form.
func (a Address) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan reads the address back from its stored hex form.
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Address", src)
	}
}

// Parse decodes a 64-char lowercase hex address.
func Parse(s string) (Address, error) {
	var a Address
	if len(s) != 64 {
		return a, fmt.Errorf("address must be 64 hex chars, got %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("decode address: %w", err)
	}
	copy(a[:], b)
	return a, nil
}

// Namespace tags. These mirror the account seed scheme of the on-ledger
// program so addresses stay stable across components.
const (
	programSeed  = "nft-evo-tickets"
	eventSeed    = "event"
	ticketSeed   = "ticket"
	assetSeed    = "nft-mint"
	listingSeed  = "listing"
	escrowSeed   = "escrow"
	metadataSeed = "metadata"
	identitySeed = "identity"
)

// derive hashes the program namespace plus the given seed parts. Each part
// is length-prefixed so that adjacent parts can never be confused for one
// another regardless of their content.
func derive(parts ...[]byte) Address {
	h := blake3.New()
	writePart(h, []byte(programSeed))
	for _, p := range parts {
		writePart(h, p)
	}
	var a Address
	h.Digest().Read(a[:])
	return a
}

func writePart(h *blake3.Hasher, p []byte) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
	h.Write(n[:])
	h.Write(p)
}

func u64le(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

// ForIdentity maps an arbitrary external identity label (an organizer or
// buyer key) onto an address. Identities already in address form should be
// parsed with Parse instead.
func ForIdentity(label string) Address {
	return derive([]byte(identitySeed), []byte(label))
}

// ForEvent locates the event record for (authority, event_id).
func ForEvent(authority Address, eventID uint64) Address {
	return derive([]byte(eventSeed), authority.Bytes(), u64le(eventID))
}

// ForTicket locates the ticket record for (event, owner, ticket_index).
func ForTicket(event, owner Address, ticketIndex uint64) Address {
	return derive([]byte(ticketSeed), event.Bytes(), owner.Bytes(), u64le(ticketIndex))
}

// ForAssetUnit locates the asset unit minted for (event, owner, ticket_index).
func ForAssetUnit(event, owner Address, ticketIndex uint64) Address {
	return derive([]byte(assetSeed), event.Bytes(), owner.Bytes(), u64le(ticketIndex))
}

// ForListing locates the single listing slot for a ticket. One slot per
// ticket is what makes "at most one active listing" hold by construction.
func ForListing(ticket Address) Address {
	return derive([]byte(listingSeed), ticket.Bytes())
}

// ForEscrow locates the custody address holding a listed ticket's asset
// unit. No private key exists for it; only listing operations move units
// in or out.
func ForEscrow(listing Address) Address {
	return derive([]byte(escrowSeed), listing.Bytes())
}

// ForMetadata locates the descriptive-metadata record of an asset unit.
func ForMetadata(assetUnit Address) Address {
	return derive([]byte(metadataSeed), assetUnit.Bytes())
}
