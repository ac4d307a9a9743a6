package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"cart-service/internal/models"
	"cart-service/internal/service"
	"cart-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CartAPI is the cart side of the service layer
type CartAPI interface {
	AddToCart(ctx context.Context, sessionID string, variationID models.VariationID, quantity int) (*service.AddToCartResponse, error)
	ClearCart(ctx context.Context, sessionID string) error
	GetCartView(ctx context.Context, sessionID string) (*service.CartView, error)
}

// CheckoutAPI places and reads orders
type CheckoutAPI interface {
	Checkout(ctx context.Context, sessionID string, req *service.CheckoutRequest) (*service.CheckoutResponse, error)
	GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, error)
}

// CatalogAPI reads products
type CatalogAPI interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id models.ProductID) (*models.ProductDetail, error)
}

// FulfillmentAPI changes order status
type FulfillmentAPI interface {
	ShipOrder(ctx context.Context, orderID int64) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID int64) (*models.Order, error)
}

// Pinger is a dependency checked by the readiness endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	carts       CartAPI
	checkout    CheckoutAPI
	catalog     CatalogAPI
	fulfillment FulfillmentAPI
	cookie      SessionCookie
	checks      map[string]Pinger
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	carts CartAPI,
	checkout CheckoutAPI,
	catalog CatalogAPI,
	fulfillment FulfillmentAPI,
	cookie SessionCookie,
) *Handler {
	return &Handler{
		carts:       carts,
		checkout:    checkout,
		catalog:     catalog,
		fulfillment: fulfillment,
		cookie:      cookie,
		checks:      make(map[string]Pinger),
		logger:      util.GetLogger(),
	}
}

// AddReadinessCheck registers a dependency that must answer before the
// service reports ready
func (h *Handler) AddReadinessCheck(name string, p Pinger) {
	h.checks[name] = p
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)

		cart := v1.Group("/cart", sessionMiddleware(h.cookie))
		cart.GET("", h.getCart)
		cart.DELETE("", h.clearCart)
		cart.POST("/variations/:id", h.addToCart)

		v1.POST("/orders", sessionMiddleware(h.cookie), h.createOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/ship", h.shipOrder)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := parseID(c, "Invalid product ID")
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), models.ProductID(id))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) getCart(c *gin.Context) {
	view, err := h.carts.GetCartView(c.Request.Context(), sessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.carts.ClearCart(c.Request.Context(), sessionID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addToCartRequest struct {
	Quantity *int `json:"quantity" binding:"omitempty,min=1,max=10000"`
}

// addToCart selects a variation. The body is optional and the quantity
// defaults to one
func (h *Handler) addToCart(c *gin.Context) {
	id, ok := parseID(c, "Invalid variation ID")
	if !ok {
		return
	}

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	ctx := c.Request.Context()
	resp, err := h.carts.AddToCart(ctx, sessionID(c), models.VariationID(id), quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}

	view, err := h.carts.GetCartView(ctx, sessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"selection": resp,
		"cart":      view,
	})
}

// createOrder checks out the session cart
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CheckoutRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.checkout.Checkout(c.Request.Context(), sessionID(c), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := parseID(c, "Invalid order ID")
	if !ok {
		return
	}

	order, items, err := h.checkout.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}

func (h *Handler) shipOrder(c *gin.Context) {
	h.changeStatus(c, h.fulfillment.ShipOrder)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	h.changeStatus(c, h.fulfillment.CancelOrder)
}

func (h *Handler) changeStatus(c *gin.Context, change func(context.Context, int64) (*models.Order, error)) {
	orderID, ok := parseID(c, "Invalid order ID")
	if !ok {
		return
	}

	order, err := change(c.Request.Context(), orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// parseID reads the :id path parameter, answering 400 when it is not a
// positive integer
func parseID(c *gin.Context, message string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return 0, false
	}
	return id, true
}
