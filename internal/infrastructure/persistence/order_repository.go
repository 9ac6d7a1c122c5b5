package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

// FindByID finds an order with its items and status history
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.conn(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByNumber finds an order by its human-readable number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var o order.Order
	if err := r.conn(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("order_number = ?", orderNumber).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByCustomer lists a customer's orders
func (r *GormOrderRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]order.Order, error) {
	var orders []order.Order
	query := r.applyFilter(
		r.conn(ctx).Model(&order.Order{}).Where("customer_id = ?", customerID),
		filter, true,
	)
	if err := query.Preload("Items").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// CountByCustomer counts a customer's orders
func (r *GormOrderRepository) CountByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(
		r.conn(ctx).Model(&order.Order{}).Where("customer_id = ?", customerID),
		filter, false,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindAll finds all orders matching the filter
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, error) {
	var orders []order.Order
	query := r.applyFilter(r.conn(ctx).Model(&order.Order{}), filter, true)

	if err := query.Preload("Items").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Count counts orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.conn(ctx).Model(&order.Order{}), filter, false)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindPendingPaidBefore returns paid orders still pending since before the cutoff
func (r *GormOrderRepository) FindPendingPaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]order.Order, error) {
	var orders []order.Order
	query := r.conn(ctx).
		Where("status = ? AND payment_status = ? AND paid_at < ?",
			order.StatusPending, order.PaymentPaid, cutoff).
		Order("paid_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Summarize aggregates orders created in [from, to), excluding cancelled
// and refunded ones.
func (r *GormOrderRepository) Summarize(ctx context.Context, from, to time.Time, topN int) (*order.SalesSummary, error) {
	base := r.conn(ctx).
		Model(&order.Order{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Where("status NOT IN ?", []order.OrderStatus{order.StatusCancelled, order.StatusRefunded})

	var totals struct {
		OrderCount   int64
		TotalRevenue *string
	}
	if err := base.
		Select("COUNT(id) AS order_count, SUM(total_amount) AS total_revenue").
		Scan(&totals).Error; err != nil {
		return nil, err
	}

	summary := &order.SalesSummary{OrderCount: totals.OrderCount}
	if totals.TotalRevenue != nil {
		revenue, err := parseDecimal(*totals.TotalRevenue)
		if err != nil {
			return nil, fmt.Errorf("failed to parse total revenue: %w", err)
		}
		summary.TotalRevenue = revenue
	}

	if topN <= 0 {
		return summary, nil
	}

	var rows []struct {
		ProductID   uuid.UUID
		ProductName string
		Quantity    int64
		Revenue     string
	}
	err := r.conn(ctx).
		Model(&order.OrderItem{}).
		Select("order_items.product_id, order_items.product_name, SUM(order_items.quantity) AS quantity, SUM(order_items.total_price) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.created_at >= ? AND orders.created_at < ?", from, to).
		Where("orders.status NOT IN ?", []order.OrderStatus{order.StatusCancelled, order.StatusRefunded}).
		Group("order_items.product_id, order_items.product_name").
		Order("quantity DESC").
		Limit(topN).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		revenue, err := parseDecimal(row.Revenue)
		if err != nil {
			return nil, fmt.Errorf("failed to parse product revenue: %w", err)
		}
		summary.TopProducts = append(summary.TopProducts, order.ProductSales{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			Quantity:    row.Quantity,
			Revenue:     revenue,
		})
	}

	return summary, nil
}

// Save persists the aggregate together with its items and status history
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return r.conn(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(o).Error
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter, paginate bool) *gorm.DB {
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if paymentStatus, ok := filter.Filters["payment_status"]; ok {
		query = query.Where("payment_status = ?", paymentStatus)
	}
	if filter.Search != "" {
		query = query.Where("order_number LIKE ?", "%"+filter.Search+"%")
	}

	if paginate {
		orderBy := ValidateSortField(filter.OrderBy, OrderSortFields, "created_at")
		orderDir := ValidateSortOrder(filter.OrderDir)
		query = query.Order(orderBy + " " + orderDir)

		if filter.PageSize > 0 {
			query = query.Offset(filter.Offset()).Limit(filter.PageSize)
		}
	}

	return query
}
