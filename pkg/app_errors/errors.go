package apperrors

import "errors"

// Authorization
var (
	ErrUnauthorized = errors.New("unauthorized operation for caller")
)

// Validation
var (
	ErrInvalidInput = errors.New("invalid input parameter")
)

// State
var (
	ErrEventNotFound           = errors.New("event not found")
	ErrTicketNotFound          = errors.New("ticket not found")
	ErrListingNotFound         = errors.New("listing not found")
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrEventAlreadyInitialized = errors.New("event already initialized")
	ErrTicketAlreadyExists     = errors.New("ticket already exists")
	ErrTicketAlreadyListed     = errors.New("ticket already listed")
	ErrTicketNotListed         = errors.New("ticket not listed")
	ErrInvalidTicketStage      = errors.New("invalid ticket stage for this operation")
	ErrCannotListInStage       = errors.New("cannot list ticket in current stage")
	ErrTicketNotScanned        = errors.New("ticket was not scanned for attendance")
	ErrTicketsOutstanding      = errors.New("event has outstanding tickets")
)

// Temporal
var (
	ErrEventAlreadyStarted = errors.New("event already started")
	ErrEventNotOver        = errors.New("event has not finished yet")
	ErrListingExpired      = errors.New("listing expired")
)

// Resource
var (
	ErrSoldOut             = errors.New("event sold out")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrNumericOverflow     = errors.New("numeric overflow")
	ErrTicketsAlreadySold  = errors.New("tickets already sold")
)

// External capability
var (
	ErrAssetRegistry       = errors.New("asset registry rejected the request")
	ErrInternalServerError = errors.New("internal server error")
)
