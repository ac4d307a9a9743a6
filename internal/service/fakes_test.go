package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cart-service/internal/cart"
	"cart-service/internal/models"
	"cart-service/internal/redisclient"
	"cart-service/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

const testSessionKey = "cart"

type memCatalog struct {
	products    map[models.ProductID]models.Product
	parts       map[models.PartID]models.Part
	variations  map[models.VariationID]models.Variation
	dependents  []models.PriceDependent
	constraints []models.Constraint
}

// newMemCatalog builds a bicycle with a frame and paint, and a trailer with
// wheels. Oak frames may not be combined with fat wheels, and oak frames
// cost 200 more when painted red
func newMemCatalog() *memCatalog {
	c := &memCatalog{
		products: map[models.ProductID]models.Product{
			1: {ID: 1, Name: "Bicycle", Price: 10000, CategoryID: 1},
			2: {ID: 2, Name: "Trailer", Price: 5000, CategoryID: 1},
		},
		parts: map[models.PartID]models.Part{
			10: {ID: 10, ProductID: 1, Name: "Frame"},
			11: {ID: 11, ProductID: 1, Name: "Paint"},
			20: {ID: 20, ProductID: 2, Name: "Wheels"},
		},
		variations: map[models.VariationID]models.Variation{
			100: {ID: 100, PartID: 10, ProductID: 1, Name: "Oak", Price: 1000, InStock: true},
			101: {ID: 101, PartID: 10, ProductID: 1, Name: "Titanium", Price: 9000, InStock: false},
			102: {ID: 102, PartID: 10, ProductID: 1, Name: "Steel", Price: 1500, InStock: true},
			110: {ID: 110, PartID: 11, ProductID: 1, Name: "Red", Price: 500, InStock: true},
			200: {ID: 200, PartID: 20, ProductID: 2, Name: "Fat", Price: 3000, InStock: true},
		},
		dependents: []models.PriceDependent{
			{ID: 1, BaseVariation: 100, DependentVariation: 110, AdjustedPrice: 200},
		},
	}
	c.constraints = []models.Constraint{{
		ID: 1,
		A:  models.ConstraintSide{VariationID: 100, PartID: 10, ProductID: 1},
		B:  models.ConstraintSide{VariationID: 200, PartID: 20, ProductID: 2},
	}}
	return c
}

func (c *memCatalog) GetPart(_ context.Context, id models.PartID) (*models.Part, error) {
	p, ok := c.parts[id]
	if !ok {
		return nil, fmt.Errorf("part %d: %w", id, cart.ErrNotFound)
	}
	return &p, nil
}

func (c *memCatalog) GetVariation(_ context.Context, id models.VariationID) (*models.Variation, error) {
	v, ok := c.variations[id]
	if !ok {
		return nil, fmt.Errorf("variation %d: %w", id, cart.ErrNotFound)
	}
	return &v, nil
}

func (c *memCatalog) GetPriceDependents(_ context.Context, base models.VariationID) ([]models.PriceDependent, error) {
	var out []models.PriceDependent
	for _, d := range c.dependents {
		if d.BaseVariation == base {
			out = append(out, d)
		}
	}
	return out, nil
}

func (c *memCatalog) GetConstraints(_ context.Context, v models.VariationID) ([]models.Constraint, error) {
	var out []models.Constraint
	for _, con := range c.constraints {
		if con.A.VariationID == v || con.B.VariationID == v {
			out = append(out, con)
		}
	}
	return out, nil
}

func (c *memCatalog) ListProducts(context.Context) ([]models.Product, error) {
	return []models.Product{c.products[1], c.products[2]}, nil
}

func (c *memCatalog) GetProductDetail(_ context.Context, id models.ProductID) (*models.ProductDetail, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, cart.ErrNotFound)
	}
	detail := &models.ProductDetail{Product: p}
	for _, part := range c.parts {
		if part.ProductID == id {
			detail.Parts = append(detail.Parts, models.PartDetail{Part: part})
		}
	}
	return detail, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	selected []*models.CartPartSelectedEvent
	cleared  []*models.CartClearedEvent
	placed   []*models.OrderPlacedEvent
	statuses []*models.OrderStatusChangedEvent
	err      error
}

func (p *recordingPublisher) PublishCartPartSelected(_ context.Context, e *models.CartPartSelectedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected = append(p.selected, e)
	return p.err
}

func (p *recordingPublisher) PublishCartCleared(_ context.Context, e *models.CartClearedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared = append(p.cleared, e)
	return p.err
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, e *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, e)
	return p.err
}

func (p *recordingPublisher) PublishOrderStatusChanged(_ context.Context, e *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, e)
	return p.err
}

type memOrders struct {
	mu        sync.Mutex
	orders    map[int64]*models.Order
	items     map[int64][]models.OrderItem
	processed map[string]bool
	creates   int
	nextID    int64
	createErr error
}

func newMemOrders() *memOrders {
	return &memOrders{
		orders:    make(map[int64]*models.Order),
		items:     make(map[int64][]models.OrderItem),
		processed: make(map[string]bool),
	}
}

func (m *memOrders) CreateOrder(_ context.Context, order *models.Order, items []models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	order.ID = m.nextID
	order.CreatedAt = time.Now()
	order.ModifiedAt = order.CreatedAt
	for i := range items {
		items[i].ID = int64(i + 1)
		items[i].OrderID = order.ID
	}
	stored := *order
	m.orders[order.ID] = &stored
	m.items[order.ID] = append([]models.OrderItem(nil), items...)
	return nil
}

func (m *memOrders) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, cart.ErrNotFound)
	}
	return o, nil
}

func (m *memOrders) GetOrderByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.IdempotencyKey == key {
			return o, nil
		}
	}
	return nil, nil
}

func (m *memOrders) GetOrderItemsByOrderID(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[orderID], nil
}

func (m *memOrders) TransitionOrderStatus(_ context.Context, orderID int64, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (m *memOrders) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[eventID], nil
}

func (m *memOrders) MarkEventProcessed(_ context.Context, eventID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[eventID] = true
	return nil
}

// failingSaves wraps a session store and fails every Save
type failingSaves struct {
	*session.Store
}

func (f failingSaves) Save(context.Context, *session.Session) error {
	return errors.New("redis unavailable")
}

func newSessionStore(t *testing.T) (*session.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := redisclient.NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return session.NewStore(client, time.Hour, time.Second), mr
}

type cartHarness struct {
	catalog   *memCatalog
	sessions  *session.Store
	redis     *miniredis.Miniredis
	publisher *recordingPublisher
	service   *CartService
}

func newCartHarness(t *testing.T) *cartHarness {
	t.Helper()
	sessions, mr := newSessionStore(t)
	h := &cartHarness{
		catalog:   newMemCatalog(),
		sessions:  sessions,
		redis:     mr,
		publisher: &recordingPublisher{},
	}
	h.service = NewCartService(h.catalog, h.sessions, h.publisher, testSessionKey)
	return h
}

// storedCart returns the cart as persisted in redis
func (h *cartHarness) storedCart(t *testing.T, sessionID string) *cart.Cart {
	t.Helper()
	sess, err := h.sessions.Load(context.Background(), sessionID)
	require.NoError(t, err)
	c, err := cart.Load(sess, testSessionKey)
	require.NoError(t, err)
	return c
}
