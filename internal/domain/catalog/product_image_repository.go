package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductImageRepository defines the interface for product image persistence.
type ProductImageRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductImage, error)
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]ProductImage, error)
	FindPrimary(ctx context.Context, productID uuid.UUID) (*ProductImage, error)
	Save(ctx context.Context, image *ProductImage) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByProduct(ctx context.Context, productID uuid.UUID) error
}
