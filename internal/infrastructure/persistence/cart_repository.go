package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormCartRepository implements CartRepository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

func (r *GormCartRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

// FindByCustomer lists a customer's cart items, oldest first
func (r *GormCartRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]order.CartItem, error) {
	var items []order.CartItem
	if err := r.conn(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindItem finds a specific cart line
func (r *GormCartRepository) FindItem(ctx context.Context, customerID, productID uuid.UUID) (*order.CartItem, error) {
	var item order.CartItem
	if err := r.conn(ctx).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Save creates or updates a cart line
func (r *GormCartRepository) Save(ctx context.Context, item *order.CartItem) error {
	return r.conn(ctx).Save(item).Error
}

// Delete removes a cart line
func (r *GormCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.conn(ctx).Delete(&order.CartItem{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByCustomer clears a customer's cart
func (r *GormCartRepository) DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error {
	return r.conn(ctx).Delete(&order.CartItem{}, "customer_id = ?", customerID).Error
}

// FindAbandoned returns cart lines of customers whose newest unreminded line
// is older than the cutoff.
func (r *GormCartRepository) FindAbandoned(ctx context.Context, cutoff time.Time, limit int) ([]order.CartItem, error) {
	stale := r.conn(ctx).
		Model(&order.CartItem{}).
		Select("customer_id").
		Where("reminded_at IS NULL").
		Group("customer_id").
		Having("MAX(created_at) < ?", cutoff)
	if limit > 0 {
		stale = stale.Limit(limit)
	}

	var items []order.CartItem
	if err := r.conn(ctx).
		Where("customer_id IN (?) AND reminded_at IS NULL", stale).
		Order("customer_id, created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkReminded stamps all of a customer's cart lines after a reminder
func (r *GormCartRepository) MarkReminded(ctx context.Context, customerID uuid.UUID) error {
	now := time.Now()
	return r.conn(ctx).
		Model(&order.CartItem{}).
		Where("customer_id = ?", customerID).
		Update("reminded_at", now).Error
}
