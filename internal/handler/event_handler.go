package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	"github.com/DianaV2002/nft-evo-tickets/internal/model"
	"github.com/DianaV2002/nft-evo-tickets/internal/service"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"
	"github.com/DianaV2002/nft-evo-tickets/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) RegisterRoutes(r gin.IRouter) {
	router := r.Group("/api/v1")
	{
		router.GET("events", h.List)
		router.POST("events", h.Create)
		router.GET("events/:event_id", h.Get)
		router.PUT("events/:event_id", h.Update)
		router.DELETE("events/:event_id", h.Delete)
		router.PUT("events/:event_id/scanner", h.SetScanner)
	}
}

type eventURI struct {
	EventID uint64 `uri:"event_id" binding:"required"`
}

// CreateEventRequest carries the organizer-supplied event fields.
type CreateEventRequest struct {
	EventID       uint64 `json:"event_id" binding:"required"`
	Name          string `json:"name" binding:"required"`
	CoverImageURL string `json:"cover_image_url"`
	StartTs       int64  `json:"start_ts" binding:"required"`
	EndTs         int64  `json:"end_ts" binding:"required"`
	TicketSupply  uint32 `json:"ticket_supply" binding:"required"`
}

// UpdateEventRequest carries the full replacement field set; updates are
// whole-record, as on the ledger.
type UpdateEventRequest struct {
	Name          string `json:"name" binding:"required"`
	CoverImageURL string `json:"cover_image_url"`
	StartTs       int64  `json:"start_ts" binding:"required"`
	EndTs         int64  `json:"end_ts" binding:"required"`
	TicketSupply  uint32 `json:"ticket_supply" binding:"required"`
}

type SetScannerRequest struct {
	Scanner string `json:"scanner" binding:"required"`
}

func (h *EventHandler) List(c *gin.Context) {
	events, err := h.service.ListEvents(c)
	if err != nil {
		h.handleError(c, err, "List")
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	params := model.EventParams{
		EventID:       req.EventID,
		Name:          req.Name,
		CoverImageURL: req.CoverImageURL,
		StartTs:       time.Unix(req.StartTs, 0).UTC(),
		EndTs:         time.Unix(req.EndTs, 0).UTC(),
		TicketSupply:  req.TicketSupply,
	}

	event, err := h.service.CreateEvent(c, Actor(c), params)
	if err != nil {
		h.handleError(c, err, "Create")
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) Get(c *gin.Context) {
	var uri eventURI
	if err := BindUri(c, &uri); err != nil {
		return
	}

	// Viewers of another organizer's event pass its authority explicitly;
	// the default scope is the caller's own events.
	authority := Actor(c)
	if q := c.Query("authority"); q != "" {
		parsed, err := addressing.Parse(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid authority"})
			return
		}
		authority = parsed
	}

	event, err := h.service.GetEvent(c, addressing.ForEvent(authority, uri.EventID))
	if err != nil {
		h.handleError(c, err, "Get")
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) Update(c *gin.Context) {
	var uri eventURI
	if err := BindUri(c, &uri); err != nil {
		return
	}
	var req UpdateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	params := model.EventParams{
		EventID:       uri.EventID,
		Name:          req.Name,
		CoverImageURL: req.CoverImageURL,
		StartTs:       time.Unix(req.StartTs, 0).UTC(),
		EndTs:         time.Unix(req.EndTs, 0).UTC(),
		TicketSupply:  req.TicketSupply,
	}

	event, err := h.service.UpdateEvent(c, Actor(c), params)
	if err != nil {
		h.handleError(c, err, "Update")
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) Delete(c *gin.Context) {
	var uri eventURI
	if err := BindUri(c, &uri); err != nil {
		return
	}

	if err := h.service.DeleteEvent(c, Actor(c), uri.EventID); err != nil {
		h.handleError(c, err, "Delete")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EventHandler) SetScanner(c *gin.Context) {
	var uri eventURI
	if err := BindUri(c, &uri); err != nil {
		return
	}
	var req SetScannerRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	event, err := h.service.SetScanner(c, Actor(c), uri.EventID, resolveActor(req.Scanner))
	if err != nil {
		h.handleError(c, err, "SetScanner")
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, apperrors.ErrEventAlreadyInitialized):
		log.Warn("Event already initialized")
		c.JSON(http.StatusConflict, gin.H{"error": "Event already initialized"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		log.Warn("Unauthorized")
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrEventAlreadyStarted):
		log.Warn("Event already started")
		c.JSON(http.StatusConflict, gin.H{"error": "Event already started"})
	case errors.Is(err, apperrors.ErrTicketsAlreadySold):
		log.Warn("Tickets already sold")
		c.JSON(http.StatusConflict, gin.H{"error": "Tickets already sold"})
	case errors.Is(err, apperrors.ErrTicketsOutstanding):
		log.Warn("Tickets outstanding")
		c.JSON(http.StatusConflict, gin.H{"error": "Event has outstanding tickets"})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
