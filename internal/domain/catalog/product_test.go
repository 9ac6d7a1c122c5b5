package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

func newTestProduct(t *testing.T) *Product {
	t.Helper()
	product, err := NewProduct("test-sku-1", "Test Product", uuid.New(), valueobject.NewMoneyKESFromFloat(100))
	require.NoError(t, err)
	product.ClearDomainEvents()
	return product
}

func TestNewProduct(t *testing.T) {
	t.Run("creates product with uppercased SKU", func(t *testing.T) {
		categoryID := uuid.New()
		product, err := NewProduct("phone-x1", "Phone X1", categoryID, valueobject.NewMoneyKESFromFloat(999.99))
		require.NoError(t, err)

		assert.Equal(t, "PHONE-X1", product.SKU)
		assert.Equal(t, categoryID, product.CategoryID)
		assert.True(t, product.Price.Equal(decimal.NewFromFloat(999.99)))
		assert.Equal(t, ProductStatusActive, product.Status)
		assert.True(t, product.IsActive())

		events := product.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeProductCreated, events[0].EventType())
	})

	t.Run("rejects missing category", func(t *testing.T) {
		_, err := NewProduct("sku", "Name", uuid.Nil, valueobject.ZeroKES())
		require.Error(t, err)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := NewProduct("sku", "Name", uuid.New(), valueobject.NewMoneyKESFromFloat(-1))
		require.Error(t, err)
	})

	t.Run("rejects invalid SKU", func(t *testing.T) {
		_, err := NewProduct("bad sku!", "Name", uuid.New(), valueobject.ZeroKES())
		require.Error(t, err)
	})
}

func TestProductStock(t *testing.T) {
	t.Run("add stock", func(t *testing.T) {
		product := newTestProduct(t)

		require.NoError(t, product.AddStock(50, "initial receipt"))
		assert.Equal(t, 50, product.StockQuantity)

		events := product.GetDomainEvents()
		require.Len(t, events, 1)
		adjusted, ok := events[0].(*ProductStockAdjustedEvent)
		require.True(t, ok)
		assert.Equal(t, 50, adjusted.Delta)
		assert.Equal(t, 50, adjusted.NewLevel)
	})

	t.Run("remove stock", func(t *testing.T) {
		product := newTestProduct(t)
		require.NoError(t, product.AddStock(50, "initial"))
		product.ClearDomainEvents()

		require.NoError(t, product.RemoveStock(20, "order"))
		assert.Equal(t, 30, product.StockQuantity)
	})

	t.Run("remove below zero fails", func(t *testing.T) {
		product := newTestProduct(t)
		require.NoError(t, product.AddStock(5, "initial"))

		err := product.RemoveStock(10, "order")
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, 5, product.StockQuantity)
	})

	t.Run("crossing threshold emits low stock event", func(t *testing.T) {
		product := newTestProduct(t)
		require.NoError(t, product.SetLowStockThreshold(10))
		require.NoError(t, product.AddStock(15, "initial"))
		product.ClearDomainEvents()

		require.NoError(t, product.RemoveStock(7, "order"))

		events := product.GetDomainEvents()
		require.Len(t, events, 2)
		assert.Equal(t, EventTypeProductStockAdjusted, events[0].EventType())
		assert.Equal(t, EventTypeProductLowStock, events[1].EventType())
	})

	t.Run("already below threshold does not repeat low stock event", func(t *testing.T) {
		product := newTestProduct(t)
		require.NoError(t, product.SetLowStockThreshold(10))
		require.NoError(t, product.AddStock(8, "initial"))
		product.ClearDomainEvents()

		require.NoError(t, product.RemoveStock(2, "order"))

		events := product.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeProductStockAdjusted, events[0].EventType())
	})

	t.Run("set stock records delta", func(t *testing.T) {
		product := newTestProduct(t)
		require.NoError(t, product.AddStock(10, "initial"))
		product.ClearDomainEvents()

		require.NoError(t, product.SetStock(25, "stocktake"))
		assert.Equal(t, 25, product.StockQuantity)

		events := product.GetDomainEvents()
		require.Len(t, events, 1)
		adjusted := events[0].(*ProductStockAdjustedEvent)
		assert.Equal(t, 15, adjusted.Delta)
	})
}

func TestProductPrices(t *testing.T) {
	t.Run("set prices", func(t *testing.T) {
		product := newTestProduct(t)

		err := product.SetPrices(valueobject.NewMoneyKESFromFloat(150), valueobject.NewMoneyKESFromFloat(90))
		require.NoError(t, err)

		assert.True(t, product.Price.Equal(decimal.NewFromInt(150)))
		assert.True(t, product.CostPrice.Equal(decimal.NewFromInt(90)))

		events := product.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeProductPriceChanged, events[0].EventType())
	})

	t.Run("negative price rejected", func(t *testing.T) {
		product := newTestProduct(t)
		err := product.SetPrices(valueobject.NewMoneyKESFromFloat(-1), valueobject.ZeroKES())
		require.Error(t, err)
	})
}

func TestProductStatusTransitions(t *testing.T) {
	product := newTestProduct(t)

	require.NoError(t, product.Deactivate())
	assert.False(t, product.IsActive())

	require.NoError(t, product.Activate())
	assert.True(t, product.IsActive())

	require.NoError(t, product.Discontinue())
	assert.Error(t, product.Activate())
}

func TestNewProductImage(t *testing.T) {
	productID := uuid.New()

	t.Run("creates pending image", func(t *testing.T) {
		image, err := NewProductImage(productID, "front.jpg", 1024, "image/jpeg", "products/p/front.jpg")
		require.NoError(t, err)
		assert.Equal(t, ImageStatusPending, image.Status)

		require.NoError(t, image.Confirm())
		assert.Equal(t, ImageStatusActive, image.Status)
		assert.Error(t, image.Confirm())
	})

	t.Run("rejects non-image content type", func(t *testing.T) {
		_, err := NewProductImage(productID, "doc.pdf", 1024, "application/pdf", "products/p/doc.pdf")
		require.Error(t, err)
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		_, err := NewProductImage(productID, "big.jpg", MaxImageFileSize+1, "image/jpeg", "products/p/big.jpg")
		require.Error(t, err)
	})
}
