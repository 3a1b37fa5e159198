package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/DianaV2002/nft-evo-tickets/internal/service"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"
	"github.com/DianaV2002/nft-evo-tickets/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MarketHandler struct {
	service service.MarketService
}

func NewMarketHandler(service service.MarketService) *MarketHandler {
	return &MarketHandler{service: service}
}

func (h *MarketHandler) RegisterRoutes(r gin.IRouter) {
	router := r.Group("/api/v1")
	{
		router.GET("listings", h.List)
		router.POST("tickets/:address/listing", h.Create)
		router.GET("tickets/:address/listing", h.Get)
		router.DELETE("tickets/:address/listing", h.Cancel)
		router.POST("tickets/:address/purchase", h.Purchase)
	}
}

// CreateListingRequest puts a ticket up for resale. ExpiresAt is an
// optional unix timestamp; an expired listing can still be cancelled but
// no longer bought.
type CreateListingRequest struct {
	Price     int64  `json:"price" binding:"required"`
	ExpiresAt *int64 `json:"expires_at"`
}

func (h *MarketHandler) List(c *gin.Context) {
	listings, err := h.service.ListListings(c)
	if err != nil {
		h.handleError(c, err, "List")
		return
	}
	c.JSON(http.StatusOK, listings)
}

func (h *MarketHandler) Create(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	var req CreateListingRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t := time.Unix(*req.ExpiresAt, 0).UTC()
		expiresAt = &t
	}

	listing, err := h.service.ListTicket(c, Actor(c), address, req.Price, expiresAt)
	if err != nil {
		h.handleError(c, err, "Create")
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h *MarketHandler) Get(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}

	listing, err := h.service.GetListing(c, address)
	if err != nil {
		h.handleError(c, err, "Get")
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *MarketHandler) Cancel(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}

	if err := h.service.CancelListing(c, Actor(c), address); err != nil {
		h.handleError(c, err, "Cancel")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MarketHandler) Purchase(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}

	ticket, err := h.service.BuyListedTicket(c, Actor(c), address)
	if err != nil {
		h.handleError(c, err, "Purchase")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *MarketHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrTicketNotFound):
		log.Warn("Ticket not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
	case errors.Is(err, apperrors.ErrListingNotFound):
		log.Warn("Listing not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		log.Warn("Unauthorized")
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrTicketAlreadyListed):
		log.Warn("Ticket already listed")
		c.JSON(http.StatusConflict, gin.H{"error": "Ticket already listed"})
	case errors.Is(err, apperrors.ErrTicketNotListed):
		log.Warn("Ticket not listed")
		c.JSON(http.StatusConflict, gin.H{"error": "Ticket is not listed"})
	case errors.Is(err, apperrors.ErrCannotListInStage):
		log.Warn("Cannot list in stage")
		c.JSON(http.StatusConflict, gin.H{"error": "Ticket stage does not allow resale"})
	case errors.Is(err, apperrors.ErrListingExpired):
		log.Warn("Listing expired")
		c.JSON(http.StatusGone, gin.H{"error": "Listing has expired"})
	case errors.Is(err, apperrors.ErrInsufficientPayment):
		log.Warn("Insufficient payment")
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient funds"})
	case errors.Is(err, apperrors.ErrNumericOverflow):
		log.Warn("Numeric overflow")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount out of range"})
	case errors.Is(err, apperrors.ErrAssetRegistry):
		log.Error("Asset registry failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Asset registry unavailable"})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
