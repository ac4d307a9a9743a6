package api

import (
	"errors"
	"net/http"

	"cart-service/internal/cart"
	"cart-service/internal/service"
	"cart-service/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Warnings shown to the shopper when an addition is declined
const (
	warningOutOfStock = "The product is not in stock"
	warningConstraint = "These two variations can't be used together"
)

// writeError maps service errors to HTTP responses
func (h *Handler) writeError(c *gin.Context, err error) {
	var derr *cart.DeserializationError

	switch {
	case errors.Is(err, cart.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, cart.ErrOutOfStock):
		c.JSON(http.StatusConflict, gin.H{"warning": warningOutOfStock})
	case errors.Is(err, cart.ErrConstraintViolation):
		c.JSON(http.StatusConflict, gin.H{"warning": warningConstraint})
	case errors.Is(err, cart.ErrInvalidSelection), errors.Is(err, cart.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrSessionBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "Cart is being updated by another request, retry shortly"})
	case errors.As(err, &derr):
		h.logger.Error("Malformed cart in session",
			zap.String("session_id", sessionID(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Stored cart is malformed, clear the cart to continue",
			"details": err.Error(),
		})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
