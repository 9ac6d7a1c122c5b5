package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CartRepository defines the interface for cart persistence.
type CartRepository interface {
	FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]CartItem, error)
	FindItem(ctx context.Context, customerID, productID uuid.UUID) (*CartItem, error)
	Save(ctx context.Context, item *CartItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error

	// FindAbandoned returns carts (grouped by customer) whose newest item
	// is older than the cutoff and not yet reminded.
	FindAbandoned(ctx context.Context, cutoff time.Time, limit int) ([]CartItem, error)

	// MarkReminded stamps all of a customer's cart lines after a reminder.
	MarkReminded(ctx context.Context, customerID uuid.UUID) error
}
