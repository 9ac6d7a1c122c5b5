package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// SalesSummary aggregates orders placed within a reporting window.
type SalesSummary struct {
	OrderCount   int64
	TotalRevenue decimal.Decimal
	TopProducts  []ProductSales
}

// ProductSales is one row of a sales ranking.
type ProductSales struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int64
	Revenue     decimal.Decimal
}

// OrderRepository defines the interface for order persistence. Save persists
// the aggregate together with its items and status history.
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindByCustomer lists a customer's orders. Recognized filter key: status.
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]Order, error)
	CountByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (int64, error)

	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// FindPendingPaidBefore returns paid orders still pending since before
	// the cutoff. Used by the auto-confirm job.
	FindPendingPaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]Order, error)

	// Summarize aggregates orders created in [from, to), excluding
	// cancelled and refunded ones.
	Summarize(ctx context.Context, from, to time.Time, topN int) (*SalesSummary, error)

	Save(ctx context.Context, order *Order) error
}
