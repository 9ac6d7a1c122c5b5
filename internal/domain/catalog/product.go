package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ProductStatus represents the status of a product.
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// Product is the aggregate root for a sellable item. Price and cost are
// stored as plain decimals; the shop runs a single currency.
type Product struct {
	shared.BaseAggregateRoot
	SKU               string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name              string          `gorm:"type:varchar(200);not null"`
	Description       string          `gorm:"type:text"`
	CategoryID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Price             decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CostPrice         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	StockQuantity     int             `gorm:"not null;default:0"`
	LowStockThreshold int             `gorm:"not null;default:10"`
	Featured          bool            `gorm:"not null;default:false"`
	Status            ProductStatus   `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM.
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product in the given category.
func NewProduct(sku, name string, categoryID uuid.UUID, price valueobject.Money) (*Product, error) {
	if err := validateProductSKU(sku); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if categoryID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Product requires a category")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               strings.ToUpper(sku),
		Name:              name,
		CategoryID:        categoryID,
		Price:             price.Amount(),
		CostPrice:         decimal.Zero,
		LowStockThreshold: 10,
		Status:            ProductStatusActive,
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// Update updates the product's basic information.
func (p *Product) Update(name, description string) error {
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = name
	p.Description = description
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// SetPrices sets the selling and cost prices.
func (p *Product) SetPrices(price, costPrice valueobject.Money) error {
	if price.IsNegative() || costPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Prices cannot be negative")
	}

	p.Price = price.Amount()
	p.CostPrice = costPrice.Amount()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductPriceChangedEvent(p))

	return nil
}

// ChangeCategory moves the product into another category.
func (p *Product) ChangeCategory(categoryID uuid.UUID) error {
	if categoryID == uuid.Nil {
		return shared.NewDomainError("INVALID_CATEGORY", "Product requires a category")
	}

	p.CategoryID = categoryID
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// SetLowStockThreshold sets the level below which a low-stock event fires.
func (p *Product) SetLowStockThreshold(threshold int) error {
	if threshold < 0 {
		return shared.NewDomainError("INVALID_THRESHOLD", "Low stock threshold cannot be negative")
	}

	p.LowStockThreshold = threshold
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// AddStock increases the stock quantity.
func (p *Product) AddStock(quantity int, reason string) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	p.StockQuantity += quantity
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStockAdjustedEvent(p, quantity, reason))

	return nil
}

// RemoveStock decreases the stock quantity. Selling below zero is rejected;
// crossing the low-stock threshold emits a ProductLowStock event.
func (p *Product) RemoveStock(quantity int, reason string) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if p.StockQuantity < quantity {
		return shared.ErrInsufficientStock
	}

	wasAbove := p.StockQuantity > p.LowStockThreshold
	p.StockQuantity -= quantity
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStockAdjustedEvent(p, -quantity, reason))
	if wasAbove && p.StockQuantity <= p.LowStockThreshold {
		p.AddDomainEvent(NewProductLowStockEvent(p))
	}

	return nil
}

// SetStock overwrites the stock quantity.
func (p *Product) SetStock(quantity int, reason string) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}

	delta := quantity - p.StockQuantity
	p.StockQuantity = quantity
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStockAdjustedEvent(p, delta, reason))

	return nil
}

// HasStock reports whether the requested quantity is available.
func (p *Product) HasStock(quantity int) bool {
	return p.StockQuantity >= quantity
}

// IsLowStock reports whether the stock is at or below the threshold.
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}

// Feature marks the product as featured.
func (p *Product) Feature() {
	p.Featured = true
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// Unfeature removes the featured flag.
func (p *Product) Unfeature() {
	p.Featured = false
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// Activate makes the product sellable again.
func (p *Product) Activate() error {
	if p.Status == ProductStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Product is already active")
	}
	if p.Status == ProductStatusDiscontinued {
		return shared.NewDomainError("DISCONTINUED", "Discontinued products cannot be reactivated")
	}

	p.Status = ProductStatusActive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStatusChangedEvent(p, ProductStatusInactive, ProductStatusActive))

	return nil
}

// Deactivate hides the product from listings and carts.
func (p *Product) Deactivate() error {
	if p.Status != ProductStatusActive {
		return shared.NewDomainError("NOT_ACTIVE", "Product is not active")
	}

	p.Status = ProductStatusInactive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStatusChangedEvent(p, ProductStatusActive, ProductStatusInactive))

	return nil
}

// Discontinue permanently retires the product.
func (p *Product) Discontinue() error {
	if p.Status == ProductStatusDiscontinued {
		return shared.NewDomainError("ALREADY_DISCONTINUED", "Product is already discontinued")
	}

	old := p.Status
	p.Status = ProductStatusDiscontinued
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStatusChangedEvent(p, old, ProductStatusDiscontinued))

	return nil
}

// IsActive returns true if the product can be sold.
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// UnitPrice returns the selling price as Money.
func (p *Product) UnitPrice() valueobject.Money {
	return valueobject.NewMoneyKES(p.Price)
}

func validateProductSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "Product SKU cannot be empty")
	}
	if len(sku) > 50 {
		return shared.NewDomainError("INVALID_SKU", "Product SKU cannot exceed 50 characters")
	}
	for _, r := range sku {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_SKU", "Product SKU can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
