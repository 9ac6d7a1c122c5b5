package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// CategoryPriceStats is the aggregate result of a subtree price query.
type CategoryPriceStats struct {
	AveragePrice decimal.Decimal
	ProductCount int64
}

// CategoryRepository defines the interface for category persistence.
type CategoryRepository interface {
	// FindByID finds a category by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)

	// FindBySlug finds a category by its slug.
	FindBySlug(ctx context.Context, slug string) (*Category, error)

	// FindAll finds all categories matching the filter.
	FindAll(ctx context.Context, filter shared.Filter) ([]Category, error)

	// FindChildren finds all direct children of a category.
	FindChildren(ctx context.Context, parentID uuid.UUID) ([]Category, error)

	// FindRoots finds all root categories.
	FindRoots(ctx context.Context) ([]Category, error)

	// FindDescendants finds all descendants of a category via materialized path.
	FindDescendants(ctx context.Context, categoryID uuid.UUID) ([]Category, error)

	// Save creates or updates a category.
	Save(ctx context.Context, category *Category) error

	// Delete deletes a category.
	Delete(ctx context.Context, id uuid.UUID) error

	// HasChildren checks if a category has any children.
	HasChildren(ctx context.Context, categoryID uuid.UUID) (bool, error)

	// HasProducts checks if any product references the category directly.
	HasProducts(ctx context.Context, categoryID uuid.UUID) (bool, error)

	// Count counts categories matching the filter.
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsBySlug checks if a category with the given slug exists.
	ExistsBySlug(ctx context.Context, slug string) (bool, error)

	// RewriteSubtreePaths replaces the path prefix of a moved category's
	// descendants and shifts their levels by levelDelta.
	RewriteSubtreePaths(ctx context.Context, oldPath, newPath string, levelDelta int) error

	// AveragePrice computes the average price and count of active products
	// in the subtree rooted at the given path (the category itself included).
	AveragePrice(ctx context.Context, path string) (*CategoryPriceStats, error)
}
