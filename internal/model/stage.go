package model

import (
	"fmt"
	"unicode/utf8"
)

// Stage is a ticket's position in its lifecycle. It encodes both temporal
// state (has the event occurred) and attendance state (was the ticket
// scanned at the door).
type Stage string

const (
	StagePrestige    Stage = "prestige"
	StageQr          Stage = "qr"
	StageScanned     Stage = "scanned"
	StageCollectible Stage = "collectible"
)

func (s Stage) IsValid() bool {
	switch s {
	case StagePrestige, StageQr, StageScanned, StageCollectible:
		return true
	}
	return false
}

// CanTransitionTo reports whether target is reachable from s under the
// lifecycle rules. Who may perform the transition, and any temporal or
// attendance preconditions, are checked by the service layer.
func (s Stage) CanTransitionTo(target Stage) bool {
	transitions := map[Stage][]Stage{
		StagePrestige:    {StageQr},
		StageQr:          {StageQr, StageScanned},
		StageScanned:     {StageCollectible},
		StageCollectible: {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, stage := range allowed {
		if stage == target {
			return true
		}
	}
	return false
}

// Resalable reports whether a ticket in this stage may be listed on the
// marketplace. Prestige tickets predate the event and Scanned tickets are
// mid-attendance; neither may change hands.
func (s Stage) Resalable() bool {
	return s == StageQr || s == StageCollectible
}

// Byte budgets imposed by the external asset registry on descriptive
// metadata fields.
const (
	MaxAssetNameBytes   = 32
	MaxAssetSymbolBytes = 10
	MaxAssetURIBytes    = 200
)

// AssetSymbol is the fixed ticker attached to every ticket asset unit.
const AssetSymbol = "TIX"

// RoyaltyBasisPoints is the declared (not enforced) resale royalty rate.
const RoyaltyBasisPoints = 500

// StageContent is the display name, description and external content
// locator an asset unit carries while its ticket sits in a given stage.
type StageContent struct {
	Name        string
	Description string
	URI         string
}

// ContentFor produces the stage-appropriate asset content. The stage set is
// closed, so the switch is exhaustive; adding a stage without a content
// template is a compile-time reminder here. Name is clamped to the
// registry's byte budget without ever splitting a multi-byte rune.
func ContentFor(stage Stage, eventID uint64, eventName string, owner string, seat *string) StageContent {
	seatName := ""
	seatDesc := ""
	if seat != nil && *seat != "" {
		seatName = fmt.Sprintf(" (%s)", *seat)
		seatDesc = fmt.Sprintf(" Seat: %s.", *seat)
	}

	var c StageContent
	switch stage {
	case StagePrestige:
		c = StageContent{
			Name:        fmt.Sprintf("%s Prestige%s", eventName, seatName),
			Description: fmt.Sprintf("Pre-event ticket for %s.%s", eventName, seatDesc),
			URI:         fmt.Sprintf("https://nft-evo-tickets.vercel.app/api/metadata/prestige/%d/%s", eventID, owner),
		}
	case StageQr:
		c = StageContent{
			Name:        fmt.Sprintf("%s Ticket QR%s", eventName, seatName),
			Description: fmt.Sprintf("QR code for %s ticket.%s", eventName, seatDesc),
			URI:         fmt.Sprintf("https://nft-evo-tickets.vercel.app/api/metadata/qr/%d/%s", eventID, owner),
		}
	case StageScanned:
		c = StageContent{
			Name:        fmt.Sprintf("%s Attended%s", eventName, seatName),
			Description: fmt.Sprintf("Scanned ticket for %s.%s", eventName, seatDesc),
			URI:         fmt.Sprintf("https://nft-evo-tickets.vercel.app/api/metadata/scanned/%d/%s", eventID, owner),
		}
	case StageCollectible:
		c = StageContent{
			Name:        fmt.Sprintf("%s Collectible%s", eventName, seatName),
			Description: fmt.Sprintf("Collectible keepsake from %s.%s", eventName, seatDesc),
			URI:         fmt.Sprintf("https://nft-evo-tickets.vercel.app/api/metadata/collectible/%d/%s", eventID, owner),
		}
	}

	c.Name = ClampBytes(c.Name, MaxAssetNameBytes)
	c.URI = ClampBytes(c.URI, MaxAssetURIBytes)
	return c
}

// ClampBytes truncates s to at most max bytes, backing up to the previous
// rune boundary so the result is always valid UTF-8.
func ClampBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
