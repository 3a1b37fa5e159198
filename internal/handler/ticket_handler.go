package handler

import (
	"errors"
	"net/http"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	"github.com/DianaV2002/nft-evo-tickets/internal/model"
	"github.com/DianaV2002/nft-evo-tickets/internal/service"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"
	"github.com/DianaV2002/nft-evo-tickets/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TicketHandler struct {
	service service.TicketService
}

func NewTicketHandler(service service.TicketService) *TicketHandler {
	return &TicketHandler{service: service}
}

func (h *TicketHandler) RegisterRoutes(r gin.IRouter) {
	router := r.Group("/api/v1")
	{
		router.GET("tickets", h.List)
		router.POST("tickets/mint", h.Mint)
		router.POST("tickets/buy", h.Buy)
		router.GET("tickets/:address", h.Get)
		router.GET("tickets/:address/qr", h.QR)
		router.PUT("tickets/:address/stage", h.UpdateStage)
		router.PUT("tickets/:address/metadata", h.UpdateMetadata)
		router.POST("tickets/:address/collect", h.Collect)
	}
}

// MintTicketRequest is the organizer's complimentary issue.
type MintTicketRequest struct {
	EventAddress string  `json:"event_address" binding:"required"`
	Owner        string  `json:"owner" binding:"required"`
	TicketIndex  uint64  `json:"ticket_index"`
	Seat         *string `json:"seat"`
	URIOverride  *string `json:"uri_override"`
}

// BuyTicketRequest is a primary-market purchase by the caller.
type BuyTicketRequest struct {
	EventAddress string  `json:"event_address" binding:"required"`
	Price        int64   `json:"price"`
	Seat         *string `json:"seat"`
	TicketIndex  uint64  `json:"ticket_index"`
}

type UpdateStageRequest struct {
	Stage string `json:"stage" binding:"required"`
}

type UpdateMetadataRequest struct {
	Stage string `json:"stage" binding:"required"`
	URI   string `json:"uri" binding:"required"`
}

type ticketListQuery struct {
	Event string `form:"event"`
	Owner string `form:"owner"`
}

func (h *TicketHandler) List(c *gin.Context) {
	var query ticketListQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}

	switch {
	case query.Event != "":
		event, err := addressing.Parse(query.Event)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event address"})
			return
		}
		tickets, err := h.service.ListByEvent(c, event)
		if err != nil {
			h.handleError(c, err, "List")
			return
		}
		c.JSON(http.StatusOK, tickets)
	case query.Owner != "":
		owner, err := addressing.Parse(query.Owner)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid owner address"})
			return
		}
		tickets, err := h.service.ListByOwner(c, owner)
		if err != nil {
			h.handleError(c, err, "List")
			return
		}
		c.JSON(http.StatusOK, tickets)
	default:
		tickets, err := h.service.ListByOwner(c, Actor(c))
		if err != nil {
			h.handleError(c, err, "List")
			return
		}
		c.JSON(http.StatusOK, tickets)
	}
}

func (h *TicketHandler) Mint(c *gin.Context) {
	var req MintTicketRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	event, err := addressing.Parse(req.EventAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event address"})
		return
	}

	ticket, err := h.service.MintTicket(c, Actor(c), service.MintTicketParams{
		EventAddress: event,
		Owner:        resolveActor(req.Owner),
		TicketIndex:  req.TicketIndex,
		Seat:         req.Seat,
		URIOverride:  req.URIOverride,
	})
	if err != nil {
		h.handleError(c, err, "Mint")
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (h *TicketHandler) Buy(c *gin.Context) {
	var req BuyTicketRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	event, err := addressing.Parse(req.EventAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event address"})
		return
	}

	ticket, err := h.service.BuyEventTicket(c, Actor(c), service.BuyTicketParams{
		EventAddress: event,
		Price:        req.Price,
		Seat:         req.Seat,
		TicketIndex:  req.TicketIndex,
	})
	if err != nil {
		h.handleError(c, err, "Buy")
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (h *TicketHandler) Get(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}

	ticket, err := h.service.GetTicket(c, address)
	if err != nil {
		h.handleError(c, err, "Get")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) QR(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}

	png, err := h.service.TicketQR(c, address)
	if err != nil {
		h.handleError(c, err, "QR")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *TicketHandler) UpdateStage(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	var req UpdateStageRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	ticket, err := h.service.UpdateTicket(c, Actor(c), address, model.Stage(req.Stage))
	if err != nil {
		h.handleError(c, err, "UpdateStage")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) UpdateMetadata(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	var req UpdateMetadataRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	ticket, err := h.service.UpdateTicketMetadata(c, Actor(c), address, model.Stage(req.Stage), req.URI)
	if err != nil {
		h.handleError(c, err, "UpdateMetadata")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) Collect(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}

	ticket, err := h.service.UpgradeToCollectible(c, Actor(c), address)
	if err != nil {
		h.handleError(c, err, "Collect")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, apperrors.ErrTicketNotFound):
		log.Warn("Ticket not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
	case errors.Is(err, apperrors.ErrTicketAlreadyExists):
		log.Warn("Ticket already exists")
		c.JSON(http.StatusConflict, gin.H{"error": "Ticket already exists"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		log.Warn("Unauthorized")
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrSoldOut):
		log.Warn("Sold out")
		c.JSON(http.StatusConflict, gin.H{"error": "Event is sold out"})
	case errors.Is(err, apperrors.ErrInsufficientPayment):
		log.Warn("Insufficient payment")
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient funds"})
	case errors.Is(err, apperrors.ErrInvalidTicketStage):
		log.Warn("Invalid ticket stage")
		c.JSON(http.StatusConflict, gin.H{"error": "Invalid ticket stage"})
	case errors.Is(err, apperrors.ErrEventNotOver):
		log.Warn("Event not over")
		c.JSON(http.StatusConflict, gin.H{"error": "Event is not over yet"})
	case errors.Is(err, apperrors.ErrTicketNotScanned):
		log.Warn("Ticket not scanned")
		c.JSON(http.StatusConflict, gin.H{"error": "Ticket was never scanned"})
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
