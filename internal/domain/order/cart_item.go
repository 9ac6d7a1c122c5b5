package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// MaxCartItemQuantity caps a single cart line.
const MaxCartItemQuantity = 99

// CartItem is one product in a customer's cart. Carts are stored per
// customer with one row per product; adding an existing product merges
// quantities. RemindedAt stamps the abandoned-cart reminder so a cart is
// only reminded once per idle period.
type CartItem struct {
	shared.BaseEntity
	CustomerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_customer_product,priority:1"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_customer_product,priority:2"`
	Quantity   int       `gorm:"not null"`
	RemindedAt *time.Time
}

// TableName returns the table name for GORM.
func (CartItem) TableName() string {
	return "cart_items"
}

// NewCartItem creates a cart line for a customer.
func NewCartItem(customerID, productID uuid.UUID, quantity int) (*CartItem, error) {
	if customerID == uuid.Nil || productID == uuid.Nil {
		return nil, shared.ErrInvalidInput
	}
	if err := validateCartQuantity(quantity); err != nil {
		return nil, err
	}

	return &CartItem{
		BaseEntity: shared.NewBaseEntity(),
		CustomerID: customerID,
		ProductID:  productID,
		Quantity:   quantity,
	}, nil
}

// IncreaseQuantity merges an additional quantity into the line.
func (i *CartItem) IncreaseQuantity(delta int) error {
	if delta <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if err := validateCartQuantity(i.Quantity + delta); err != nil {
		return err
	}

	i.Quantity += delta
	i.RemindedAt = nil
	i.Touch()

	return nil
}

// SetQuantity replaces the line quantity. Zero is rejected here; the
// service removes the line instead.
func (i *CartItem) SetQuantity(quantity int) error {
	if err := validateCartQuantity(quantity); err != nil {
		return err
	}

	i.Quantity = quantity
	i.RemindedAt = nil
	i.Touch()

	return nil
}

// MarkReminded stamps the line after an abandoned-cart reminder.
func (i *CartItem) MarkReminded() {
	now := time.Now()
	i.RemindedAt = &now
}

func validateCartQuantity(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if quantity > MaxCartItemQuantity {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity exceeds the per-item limit")
	}
	return nil
}
