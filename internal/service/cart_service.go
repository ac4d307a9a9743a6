package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cart-service/internal/cart"
	"cart-service/internal/models"
	"cart-service/internal/session"
	"cart-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Catalog is the read-only catalog the cart engine consults
type Catalog interface {
	GetPart(ctx context.Context, id models.PartID) (*models.Part, error)
	GetVariation(ctx context.Context, id models.VariationID) (*models.Variation, error)
	GetPriceDependents(ctx context.Context, base models.VariationID) ([]models.PriceDependent, error)
	GetConstraints(ctx context.Context, variation models.VariationID) ([]models.Constraint, error)
}

// SessionStore loads, saves and locks sessions
type SessionStore interface {
	Load(ctx context.Context, id string) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) error
	Lock(ctx context.Context, id string) (func(), error)
}

// CartEventPublisher publishes cart events
type CartEventPublisher interface {
	PublishCartPartSelected(ctx context.Context, event *models.CartPartSelectedEvent) error
	PublishCartCleared(ctx context.Context, event *models.CartClearedEvent) error
}

// CartService handles cart business logic
type CartService struct {
	catalog    Catalog
	sessions   SessionStore
	publisher  CartEventPublisher
	pricer     *cart.Pricer
	resolver   *cart.Resolver
	sessionKey string
	logger     *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(
	catalog Catalog,
	sessions SessionStore,
	publisher CartEventPublisher,
	sessionKey string,
) *CartService {
	return &CartService{
		catalog:    catalog,
		sessions:   sessions,
		publisher:  publisher,
		pricer:     cart.NewPricer(catalog),
		resolver:   cart.NewResolver(catalog),
		sessionKey: sessionKey,
		logger:     util.GetLogger(),
	}
}

// AddToCartResponse describes the selection made by AddToCart
type AddToCartResponse struct {
	ProductID   models.ProductID   `json:"product_id"`
	PartID      models.PartID      `json:"part_id"`
	VariationID models.VariationID `json:"variation_id"`
	Quantity    int                `json:"quantity"`
	UnitPrice   int64              `json:"unit_price"`
	Replaced    bool               `json:"replaced"`
}

// CartView is a cart priced for display
type CartView struct {
	Entries      []cart.Entry `json:"entries"`
	Total        int64        `json:"total"`
	TotalDisplay float64      `json:"total_display"`
}

// AddToCart selects a variation for its part in the session cart. Stock and
// constraints are checked before anything changes; a declined add leaves the
// stored cart untouched
func (s *CartService) AddToCart(ctx context.Context, sessionID string, variationID models.VariationID, quantity int) (*AddToCartResponse, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddToCart",
		attribute.Int64("variation_id", int64(variationID)))
	defer span.End()

	logger := util.SessionLogger(sessionID)

	variation, err := s.catalog.GetVariation(ctx, variationID)
	if err != nil {
		return nil, err
	}

	if !variation.InStock {
		util.CartRejectionsTotal.WithLabelValues("out_of_stock").Inc()
		logger.Warn("Variation not in stock", zap.Int64("variation_id", int64(variation.ID)))
		return nil, fmt.Errorf("variation %d: %w", variation.ID, cart.ErrOutOfStock)
	}

	part, err := s.catalog.GetPart(ctx, variation.PartID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, c, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.resolver.Check(ctx, *variation, c); err != nil {
		if errors.Is(err, cart.ErrConstraintViolation) {
			util.CartRejectionsTotal.WithLabelValues("constraint").Inc()
			logger.Warn("Variation conflicts with cart", zap.Error(err))
		}
		return nil, err
	}

	replaced, err := c.AddOrUpdate(*part, *variation, quantity)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	action := "added"
	if replaced {
		action = "replaced"
	}
	util.CartPartsSelectedTotal.WithLabelValues(action).Inc()
	logger.Info("Cart part selected",
		zap.Int64("product_id", int64(part.ProductID)),
		zap.Int64("part_id", int64(part.ID)),
		zap.Int64("variation_id", int64(variation.ID)),
		zap.Int("quantity", quantity),
		zap.String("action", action))

	event := &models.CartPartSelectedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCartPartSelected,
			Timestamp: time.Now(),
		},
		SessionID:   sessionID,
		ProductID:   part.ProductID,
		PartID:      part.ID,
		VariationID: variation.ID,
		Quantity:    quantity,
		UnitPrice:   variation.Price,
		Replaced:    replaced,
	}
	if err := s.publisher.PublishCartPartSelected(ctx, event); err != nil {
		logger.Error("Failed to publish CartPartSelected event", zap.Error(err))
	}

	return &AddToCartResponse{
		ProductID:   part.ProductID,
		PartID:      part.ID,
		VariationID: variation.ID,
		Quantity:    quantity,
		UnitPrice:   variation.Price,
		Replaced:    replaced,
	}, nil
}

// ClearCart removes the cart from the session. A stored cart that can no
// longer be decoded is removed as well
func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	ctx, span := util.StartSpan(ctx, "CartService.ClearCart")
	defer span.End()

	logger := util.SessionLogger(sessionID)

	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	sess, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	c, err := cart.Load(sess, s.sessionKey)
	var derr *cart.DeserializationError
	switch {
	case errors.As(err, &derr):
		logger.Warn("Clearing malformed cart", zap.Error(err))
		sess.Delete(s.sessionKey)
	case err != nil:
		return err
	default:
		c.Clear()
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	util.CartClearedTotal.Inc()
	logger.Info("Cart cleared")

	event := &models.CartClearedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCartCleared,
			Timestamp: time.Now(),
		},
		SessionID: sessionID,
	}
	if err := s.publisher.PublishCartCleared(ctx, event); err != nil {
		logger.Error("Failed to publish CartCleared event", zap.Error(err))
	}

	return nil
}

// GetCartView returns the cart entries with freshly computed totals
func (s *CartService) GetCartView(ctx context.Context, sessionID string) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCartView")
	defer span.End()

	_, c, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	q, err := s.quote(ctx, c)
	if err != nil {
		return nil, err
	}

	return &CartView{
		Entries:      q.Entries,
		Total:        q.Total,
		TotalDisplay: q.TotalDisplay(),
	}, nil
}

// GetTotalCost returns the cart total in minor currency units
func (s *CartService) GetTotalCost(ctx context.Context, sessionID string) (int64, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetTotalCost")
	defer span.End()

	_, c, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	q, err := s.quote(ctx, c)
	if err != nil {
		return 0, err
	}
	return q.Total, nil
}

// GetTotalCostDisplay returns the cart total in major currency units
func (s *CartService) GetTotalCostDisplay(ctx context.Context, sessionID string) (float64, error) {
	total, err := s.GetTotalCost(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return cart.Display(total), nil
}

func (s *CartService) lock(ctx context.Context, sessionID string) (func(), error) {
	unlock, err := s.sessions.Lock(ctx, sessionID)
	if errors.Is(err, session.ErrSessionBusy) {
		util.SessionLockContentionTotal.Inc()
	}
	return unlock, err
}

func (s *CartService) loadCart(ctx context.Context, sessionID string) (*session.Session, *cart.Cart, error) {
	sess, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}

	c, err := cart.Load(sess, s.sessionKey)
	if err != nil {
		util.SessionLogger(sessionID).Error("Stored cart is malformed", zap.Error(err))
		return nil, nil, err
	}
	return sess, c, nil
}

func (s *CartService) quote(ctx context.Context, c *cart.Cart) (*cart.Quote, error) {
	start := time.Now()
	defer func() {
		util.CartPricingLatency.Observe(time.Since(start).Seconds())
	}()

	return s.pricer.Quote(ctx, c)
}
