package service

import (
	"context"

	"cart-service/internal/models"
	"cart-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
)

// ProductReader serves the product listing and detail pages
type ProductReader interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProductDetail(ctx context.Context, id models.ProductID) (*models.ProductDetail, error)
}

// CatalogService exposes catalog reads to the HTTP layer
type CatalogService struct {
	products ProductReader
}

// NewCatalogService creates a new catalog service
func NewCatalogService(products ProductReader) *CatalogService {
	return &CatalogService{products: products}
}

// ListProducts returns every product ordered by name
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	return s.products.ListProducts(ctx)
}

// GetProduct returns a product with its parts and variations
func (s *CatalogService) GetProduct(ctx context.Context, id models.ProductID) (*models.ProductDetail, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct",
		attribute.Int64("product_id", int64(id)))
	defer span.End()

	return s.products.GetProductDetail(ctx, id)
}
