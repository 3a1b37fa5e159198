package handler

import (
	"errors"
	"net/http"

	"github.com/DianaV2002/nft-evo-tickets/internal/payments"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"
	"github.com/DianaV2002/nft-evo-tickets/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WalletHandler struct {
	ledger payments.Ledger
}

func NewWalletHandler(ledger payments.Ledger) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

func (h *WalletHandler) RegisterRoutes(r gin.IRouter) {
	router := r.Group("/api/v1")
	{
		router.GET("wallets/:address", h.Balance)
		router.POST("wallets/deposit", h.Deposit)
	}
}

type DepositRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

func (h *WalletHandler) Balance(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}

	balance, err := h.ledger.Balance(c, address)
	if err != nil {
		h.handleError(c, err, "Balance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address.String(), "balance": balance})
}

// Deposit credits the caller's own wallet. Funding is out-of-band in
// production; this endpoint stands in for the payment processor callback.
func (h *WalletHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
		return
	}

	actor := Actor(c)
	balance, err := h.ledger.Deposit(c, actor, req.Amount)
	if err != nil {
		h.handleError(c, err, "Deposit")
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": actor.String(), "balance": balance})
}

func (h *WalletHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrWalletNotFound):
		log.Warn("Wallet not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
	case errors.Is(err, apperrors.ErrNumericOverflow):
		log.Warn("Numeric overflow")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount out of range"})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
