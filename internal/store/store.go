package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"cart-service/internal/cart"
	"cart-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// New wraps an existing connection
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the catalog and order tables
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, cart.ErrNotFound)
	}
	return err
}

// GetProduct retrieves a product by ID
func (s *Store) GetProduct(ctx context.Context, id models.ProductID) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT id, name, description, price, category_id FROM products WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "product", int64(id))
	}
	return &product, nil
}

// ListProducts retrieves all products ordered by name
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products,
		"SELECT id, name, description, price, category_id FROM products ORDER BY name")
	return products, err
}

// GetPart retrieves a product part by ID
func (s *Store) GetPart(ctx context.Context, id models.PartID) (*models.Part, error) {
	var part models.Part
	err := s.db.GetContext(ctx, &part,
		"SELECT id, product_id, name FROM product_parts WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "part", int64(id))
	}
	return &part, nil
}

const variationColumns = `
	SELECT v.id, v.part_id, p.product_id, v.name, COALESCE(v.description, '') AS description,
		v.price, v.is_in_stock
	FROM product_part_variations v
	JOIN product_parts p ON p.id = v.part_id`

// GetVariation retrieves a variation by ID together with its owning product
func (s *Store) GetVariation(ctx context.Context, id models.VariationID) (*models.Variation, error) {
	var variation models.Variation
	err := s.db.GetContext(ctx, &variation, variationColumns+" WHERE v.id = $1", id)
	if err != nil {
		return nil, notFound(err, "variation", int64(id))
	}
	return &variation, nil
}

// GetProductDetail retrieves a product with its parts and their variations
func (s *Store) GetProductDetail(ctx context.Context, id models.ProductID) (*models.ProductDetail, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	var parts []models.Part
	if err := s.db.SelectContext(ctx, &parts,
		"SELECT id, product_id, name FROM product_parts WHERE product_id = $1 ORDER BY name", id); err != nil {
		return nil, fmt.Errorf("failed to get parts: %w", err)
	}

	var variations []models.Variation
	if err := s.db.SelectContext(ctx, &variations,
		variationColumns+" WHERE p.product_id = $1 ORDER BY v.name", id); err != nil {
		return nil, fmt.Errorf("failed to get variations: %w", err)
	}

	byPart := make(map[models.PartID][]models.Variation, len(parts))
	for _, v := range variations {
		byPart[v.PartID] = append(byPart[v.PartID], v)
	}

	detail := &models.ProductDetail{
		Product: *product,
		Parts:   make([]models.PartDetail, 0, len(parts)),
	}
	for _, part := range parts {
		vs := byPart[part.ID]
		if vs == nil {
			vs = []models.Variation{}
		}
		detail.Parts = append(detail.Parts, models.PartDetail{Part: part, Variations: vs})
	}

	return detail, nil
}

// GetPriceDependents retrieves the dependent pricing rules of a base variation
func (s *Store) GetPriceDependents(ctx context.Context, base models.VariationID) ([]models.PriceDependent, error) {
	var rules []models.PriceDependent
	err := s.db.SelectContext(ctx, &rules, `
		SELECT id, base_variation_id, dependent_variation_id, adjusted_price
		FROM price_dependents
		WHERE base_variation_id = $1
		ORDER BY id`, base)
	return rules, err
}

// GetConstraints retrieves the constraints naming variation on either side,
// with both sides resolved to their part and product
func (s *Store) GetConstraints(ctx context.Context, variation models.VariationID) ([]models.Constraint, error) {
	var constraints []models.Constraint
	err := s.db.SelectContext(ctx, &constraints, `
		SELECT c.id,
			va.id AS "a.variation_id", va.part_id AS "a.part_id", pa.product_id AS "a.product_id",
			vb.id AS "b.variation_id", vb.part_id AS "b.part_id", pb.product_id AS "b.product_id"
		FROM product_part_constraints c
		JOIN product_part_variations va ON va.id = c.variation_a_id
		JOIN product_parts pa ON pa.id = va.part_id
		JOIN product_part_variations vb ON vb.id = c.variation_b_id
		JOIN product_parts pb ON pb.id = vb.part_id
		WHERE c.variation_a_id = $1 OR c.variation_b_id = $1
		ORDER BY c.id`, variation)
	return constraints, err
}
