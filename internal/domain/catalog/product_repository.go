package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence.
type ProductRepository interface {
	// FindByID finds a product by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindBySKU finds a product by its SKU.
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// FindAll finds all products matching the filter. Recognized filter keys:
	// category_id, category_path (subtree match), status, featured,
	// min_price, max_price.
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)

	// FindByIDs loads a batch of products by ID.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// FindFeatured finds active featured products.
	FindFeatured(ctx context.Context, limit int) ([]Product, error)

	// FindLowStock finds active products at or below their low-stock threshold.
	FindLowStock(ctx context.Context) ([]Product, error)

	// Save creates or updates a product.
	Save(ctx context.Context, product *Product) error

	// Delete deletes a product.
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts products matching the filter.
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsBySKU checks if a product with the given SKU exists.
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
}
