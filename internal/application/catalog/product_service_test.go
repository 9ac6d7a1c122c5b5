package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

func newProductService(productRepo *MockProductRepository, categoryRepo *MockCategoryRepository, bus *captureBus) *ProductService {
	return NewProductService(productRepo, categoryRepo, fakeUnitOfWork{}, bus)
}

func mustProduct(t *testing.T, sku, name string, categoryID uuid.UUID, price string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(sku, name, categoryID, valueobject.NewMoneyKES(decimal.RequireFromString(price)))
	require.NoError(t, err)
	p.ClearDomainEvents()
	return p
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates product with initial stock", func(t *testing.T) {
		productRepo := new(MockProductRepository)
		categoryRepo := new(MockCategoryRepository)
		bus := &captureBus{}
		svc := newProductService(productRepo, categoryRepo, bus)

		cat := mustCategory(t, "electronics", "Electronics")
		stock := 25
		productRepo.On("ExistsBySKU", ctx, "PHONE-1").Return(false, nil)
		categoryRepo.On("FindByID", ctx, cat.ID).Return(cat, nil)
		productRepo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

		resp, err := svc.Create(ctx, CreateProductRequest{
			SKU:           "PHONE-1",
			Name:          "Phone",
			CategoryID:    cat.ID,
			Price:         decimal.RequireFromString("199.99"),
			StockQuantity: &stock,
		})
		require.NoError(t, err)
		assert.Equal(t, "PHONE-1", resp.SKU)
		assert.Equal(t, 25, resp.StockQuantity)
		assert.Contains(t, bus.typesSeen(), catalog.EventTypeProductCreated)
	})

	t.Run("rejects duplicate SKU", func(t *testing.T) {
		productRepo := new(MockProductRepository)
		svc := newProductService(productRepo, new(MockCategoryRepository), &captureBus{})

		productRepo.On("ExistsBySKU", ctx, "PHONE-1").Return(true, nil)

		_, err := svc.Create(ctx, CreateProductRequest{
			SKU:        "PHONE-1",
			Name:       "Phone",
			CategoryID: uuid.New(),
			Price:      decimal.RequireFromString("199.99"),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		productRepo := new(MockProductRepository)
		categoryRepo := new(MockCategoryRepository)
		svc := newProductService(productRepo, categoryRepo, &captureBus{})

		id := uuid.New()
		productRepo.On("ExistsBySKU", ctx, "PHONE-1").Return(false, nil)
		categoryRepo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := svc.Create(ctx, CreateProductRequest{
			SKU:        "PHONE-1",
			Name:       "Phone",
			CategoryID: id,
			Price:      decimal.RequireFromString("199.99"),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CATEGORY", domainErr.Code)
	})
}

func TestProductService_Inventory(t *testing.T) {
	ctx := context.Background()

	t.Run("remove stock below zero is rejected", func(t *testing.T) {
		productRepo := new(MockProductRepository)
		svc := newProductService(productRepo, new(MockCategoryRepository), &captureBus{})

		product := mustProduct(t, "PHONE-1", "Phone", uuid.New(), "199.99")
		require.NoError(t, product.AddStock(3, "seed"))
		product.ClearDomainEvents()
		productRepo.On("FindByID", ctx, product.ID).Return(product, nil)

		_, err := svc.RemoveStock(ctx, product.ID, AdjustStockRequest{Quantity: 5, Reason: "sale"})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		productRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("crossing the threshold emits a low stock event", func(t *testing.T) {
		productRepo := new(MockProductRepository)
		bus := &captureBus{}
		svc := newProductService(productRepo, new(MockCategoryRepository), bus)

		product := mustProduct(t, "PHONE-1", "Phone", uuid.New(), "199.99")
		require.NoError(t, product.SetLowStockThreshold(5))
		require.NoError(t, product.AddStock(6, "seed"))
		product.ClearDomainEvents()
		productRepo.On("FindByID", ctx, product.ID).Return(product, nil)
		productRepo.On("Save", ctx, product).Return(nil)

		resp, err := svc.RemoveStock(ctx, product.ID, AdjustStockRequest{Quantity: 2, Reason: "sale"})
		require.NoError(t, err)
		assert.Equal(t, 4, resp.StockQuantity)
		assert.Contains(t, bus.typesSeen(), catalog.EventTypeProductLowStock)
	})

	t.Run("set stock overwrites the level", func(t *testing.T) {
		productRepo := new(MockProductRepository)
		svc := newProductService(productRepo, new(MockCategoryRepository), &captureBus{})

		product := mustProduct(t, "PHONE-1", "Phone", uuid.New(), "199.99")
		productRepo.On("FindByID", ctx, product.ID).Return(product, nil)
		productRepo.On("Save", ctx, product).Return(nil)

		resp, err := svc.SetStock(ctx, product.ID, AdjustStockRequest{Quantity: 40, Reason: "recount"})
		require.NoError(t, err)
		assert.Equal(t, 40, resp.StockQuantity)
	})
}

func TestProductService_BulkUpdatePrices(t *testing.T) {
	ctx := context.Background()

	t.Run("applies a percentage over the subtree", func(t *testing.T) {
		productRepo := new(MockProductRepository)
		categoryRepo := new(MockCategoryRepository)
		svc := newProductService(productRepo, categoryRepo, &captureBus{})

		cat := mustCategory(t, "electronics", "Electronics")
		p1 := mustProduct(t, "A-1", "Alpha", cat.ID, "100.00")
		p2 := mustProduct(t, "B-2", "Beta", cat.ID, "50.00")

		categoryRepo.On("FindByID", ctx, cat.ID).Return(cat, nil)
		productRepo.On("FindAll", ctx, mock.MatchedBy(func(f shared.Filter) bool {
			return f.Filters["category_path"] == cat.Path
		})).Return([]catalog.Product{*p1, *p2}, nil)
		productRepo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

		pct := decimal.RequireFromString("10")
		resp, err := svc.BulkUpdatePrices(ctx, BulkPriceUpdateRequest{CategoryID: cat.ID, Percentage: &pct})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.UpdatedCount)
	})

	t.Run("rejects both percentage and fixed delta", func(t *testing.T) {
		svc := newProductService(new(MockProductRepository), new(MockCategoryRepository), &captureBus{})

		pct := decimal.RequireFromString("10")
		delta := decimal.RequireFromString("5")
		_, err := svc.BulkUpdatePrices(ctx, BulkPriceUpdateRequest{
			CategoryID: uuid.New(),
			Percentage: &pct,
			FixedDelta: &delta,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_ADJUSTMENT", domainErr.Code)
	})

	t.Run("rolls back when a delta goes negative", func(t *testing.T) {
		productRepo := new(MockProductRepository)
		categoryRepo := new(MockCategoryRepository)
		svc := newProductService(productRepo, categoryRepo, &captureBus{})

		cat := mustCategory(t, "electronics", "Electronics")
		cheap := mustProduct(t, "C-3", "Cheap", cat.ID, "3.00")

		categoryRepo.On("FindByID", ctx, cat.ID).Return(cat, nil)
		productRepo.On("FindAll", ctx, mock.AnythingOfType("shared.Filter")).
			Return([]catalog.Product{*cheap}, nil)

		delta := decimal.RequireFromString("-5")
		_, err := svc.BulkUpdatePrices(ctx, BulkPriceUpdateRequest{CategoryID: cat.ID, FixedDelta: &delta})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_PRICE", domainErr.Code)
	})
}

func TestAdjustPrice(t *testing.T) {
	tenPct := decimal.RequireFromString("10")
	minusFive := decimal.RequireFromString("-5.00")

	assert.True(t, adjustPrice(decimal.RequireFromString("100.00"), &tenPct, nil).
		Equal(decimal.RequireFromString("110.00")))
	assert.True(t, adjustPrice(decimal.RequireFromString("19.99"), nil, &minusFive).
		Equal(decimal.RequireFromString("14.99")))
}

func TestProductService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("subtree filter resolves the category path", func(t *testing.T) {
		productRepo := new(MockProductRepository)
		categoryRepo := new(MockCategoryRepository)
		svc := newProductService(productRepo, categoryRepo, &captureBus{})

		cat := mustCategory(t, "electronics", "Electronics")
		categoryRepo.On("FindByID", ctx, cat.ID).Return(cat, nil)
		productRepo.On("FindAll", ctx, mock.MatchedBy(func(f shared.Filter) bool {
			return f.Filters["category_path"] == cat.Path
		})).Return([]catalog.Product{}, nil)
		productRepo.On("Count", ctx, mock.AnythingOfType("shared.Filter")).Return(int64(0), nil)

		page, err := svc.List(ctx, ProductListFilter{CategoryID: &cat.ID, IncludeSubtree: true})
		require.NoError(t, err)
		assert.Equal(t, int64(0), page.Total)
	})
}
