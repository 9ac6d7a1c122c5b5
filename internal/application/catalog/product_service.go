package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ProductService handles product-related business operations.
type ProductService struct {
	productRepo  catalog.ProductRepository
	categoryRepo catalog.CategoryRepository
	uow          shared.UnitOfWork
	publisher    shared.EventPublisher
}

// NewProductService creates a new ProductService.
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	uow shared.UnitOfWork,
	publisher shared.EventPublisher,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		uow:          uow,
		publisher:    publisher,
	}
}

// Create creates a new product.
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	exists, err := s.productRepo.ExistsBySKU(ctx, req.SKU)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Product with this SKU already exists")
	}

	if _, err := s.categoryRepo.FindByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_CATEGORY", "Category not found")
		}
		return nil, err
	}

	product, err := catalog.NewProduct(req.SKU, req.Name, req.CategoryID, valueobject.NewMoneyKES(req.Price))
	if err != nil {
		return nil, err
	}

	if req.Description != "" {
		if err := product.Update(req.Name, req.Description); err != nil {
			return nil, err
		}
	}
	if req.CostPrice != nil {
		if err := product.SetPrices(valueobject.NewMoneyKES(req.Price), valueobject.NewMoneyKES(*req.CostPrice)); err != nil {
			return nil, err
		}
	}
	if req.LowStockThreshold != nil {
		if err := product.SetLowStockThreshold(*req.LowStockThreshold); err != nil {
			return nil, err
		}
	}
	if req.StockQuantity != nil && *req.StockQuantity > 0 {
		if err := product.AddStock(*req.StockQuantity, "initial stock"); err != nil {
			return nil, err
		}
	}
	if req.Featured {
		product.Feature()
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, product)

	return ToProductResponse(product), nil
}

// GetByID retrieves a product by ID.
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToProductResponse(product), nil
}

// GetBySKU retrieves a product by SKU.
func (s *ProductService) GetBySKU(ctx context.Context, sku string) (*ProductResponse, error) {
	product, err := s.productRepo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	return ToProductResponse(product), nil
}

// List retrieves products matching the filter, paginated. With
// IncludeSubtree a category filter matches the category and all its
// descendants.
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) (*shared.Paginated[ProductListResponse], error) {
	domainFilter := shared.DefaultFilter()
	domainFilter.Search = filter.Search
	domainFilter.OrderBy = filter.OrderBy
	domainFilter.OrderDir = filter.OrderDir
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Featured != nil {
		domainFilter.Filters["featured"] = *filter.Featured
	}
	if filter.MinPrice != nil {
		domainFilter.Filters["min_price"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		domainFilter.Filters["max_price"] = *filter.MaxPrice
	}
	if filter.CategoryID != nil {
		if filter.IncludeSubtree {
			category, err := s.categoryRepo.FindByID(ctx, *filter.CategoryID)
			if err != nil {
				return nil, err
			}
			domainFilter.Filters["category_path"] = category.Path
		} else {
			domainFilter.Filters["category_id"] = *filter.CategoryID
		}
	}

	products, err := s.productRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.productRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToProductListResponses(products), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// GetFeatured retrieves active featured products.
func (s *ProductService) GetFeatured(ctx context.Context, limit int) ([]ProductListResponse, error) {
	products, err := s.productRepo.FindFeatured(ctx, limit)
	if err != nil {
		return nil, err
	}
	return ToProductListResponses(products), nil
}

// GetLowStock retrieves active products at or below their threshold.
func (s *ProductService) GetLowStock(ctx context.Context) ([]ProductListResponse, error) {
	products, err := s.productRepo.FindLowStock(ctx)
	if err != nil {
		return nil, err
	}
	return ToProductListResponses(products), nil
}

// Update updates a product's basic details, category, and prices.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := product.Name
	if req.Name != nil {
		name = *req.Name
	}
	description := product.Description
	if req.Description != nil {
		description = *req.Description
	}
	if req.Name != nil || req.Description != nil {
		if err := product.Update(name, description); err != nil {
			return nil, err
		}
	}

	if req.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_CATEGORY", "Category not found")
			}
			return nil, err
		}
		if err := product.ChangeCategory(*req.CategoryID); err != nil {
			return nil, err
		}
	}

	if req.Price != nil || req.CostPrice != nil {
		price := product.Price
		if req.Price != nil {
			price = *req.Price
		}
		costPrice := product.CostPrice
		if req.CostPrice != nil {
			costPrice = *req.CostPrice
		}
		if err := product.SetPrices(valueobject.NewMoneyKES(price), valueobject.NewMoneyKES(costPrice)); err != nil {
			return nil, err
		}
	}

	if req.LowStockThreshold != nil {
		if err := product.SetLowStockThreshold(*req.LowStockThreshold); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, product)

	return ToProductResponse(product), nil
}

// Delete removes a product. Order items keep their snapshots.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.productRepo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.productRepo.Delete(ctx, id)
}

// AddStock increases the product's stock.
func (s *ProductService) AddStock(ctx context.Context, id uuid.UUID, req AdjustStockRequest) (*ProductResponse, error) {
	return s.adjustStock(ctx, id, func(p *catalog.Product) error {
		return p.AddStock(req.Quantity, req.Reason)
	})
}

// RemoveStock decreases the product's stock. Removing more than available
// is rejected.
func (s *ProductService) RemoveStock(ctx context.Context, id uuid.UUID, req AdjustStockRequest) (*ProductResponse, error) {
	return s.adjustStock(ctx, id, func(p *catalog.Product) error {
		return p.RemoveStock(req.Quantity, req.Reason)
	})
}

// SetStock overwrites the product's stock level.
func (s *ProductService) SetStock(ctx context.Context, id uuid.UUID, req AdjustStockRequest) (*ProductResponse, error) {
	return s.adjustStock(ctx, id, func(p *catalog.Product) error {
		return p.SetStock(req.Quantity, req.Reason)
	})
}

func (s *ProductService) adjustStock(ctx context.Context, id uuid.UUID, adjust func(*catalog.Product) error) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := adjust(product); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, product)
	return ToProductResponse(product), nil
}

// Feature marks a product as featured.
func (s *ProductService) Feature(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, func(p *catalog.Product) error { p.Feature(); return nil })
}

// Unfeature removes the featured flag.
func (s *ProductService) Unfeature(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, func(p *catalog.Product) error { p.Unfeature(); return nil })
}

// Activate makes a product sellable.
func (s *ProductService) Activate(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, (*catalog.Product).Activate)
}

// Deactivate hides a product from listings and carts.
func (s *ProductService) Deactivate(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, (*catalog.Product).Deactivate)
}

// Discontinue permanently retires a product.
func (s *ProductService) Discontinue(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, (*catalog.Product).Discontinue)
}

func (s *ProductService) mutate(ctx context.Context, id uuid.UUID, change func(*catalog.Product) error) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := change(product); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, product)
	return ToProductResponse(product), nil
}

// BulkUpdatePrices applies a percentage or fixed delta to every product in
// the category subtree. All updates commit or roll back together.
func (s *ProductService) BulkUpdatePrices(ctx context.Context, req BulkPriceUpdateRequest) (*BulkPriceUpdateResponse, error) {
	if (req.Percentage == nil) == (req.FixedDelta == nil) {
		return nil, shared.NewDomainError("INVALID_ADJUSTMENT", "Exactly one of percentage or fixed_delta is required")
	}

	category, err := s.categoryRepo.FindByID(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	filter := shared.Filter{
		Page:     1,
		PageSize: 0, // unpaginated
		Filters:  map[string]interface{}{"category_path": category.Path},
	}
	products, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	updated := 0
	err = s.uow.Execute(ctx, func(ctx context.Context) error {
		for i := range products {
			product := &products[i]
			newPrice := adjustPrice(product.Price, req.Percentage, req.FixedDelta)
			if newPrice.IsNegative() {
				return shared.NewDomainError("INVALID_PRICE",
					"Adjustment would make the price of "+product.SKU+" negative")
			}
			if newPrice.Equal(product.Price) {
				continue
			}
			if err := product.SetPrices(valueobject.NewMoneyKES(newPrice), valueobject.NewMoneyKES(product.CostPrice)); err != nil {
				return err
			}
			if err := s.productRepo.Save(ctx, product); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range products {
		s.publishEvents(ctx, &products[i])
	}

	return &BulkPriceUpdateResponse{UpdatedCount: updated}, nil
}

func adjustPrice(price decimal.Decimal, percentage, fixedDelta *decimal.Decimal) decimal.Decimal {
	if percentage != nil {
		factor := decimal.NewFromInt(1).Add(percentage.Div(decimal.NewFromInt(100)))
		return price.Mul(factor).Round(2)
	}
	return price.Add(*fixedDelta).Round(2)
}

func (s *ProductService) publishEvents(ctx context.Context, product *catalog.Product) {
	if s.publisher == nil {
		return
	}
	events := product.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.publisher.Publish(ctx, events...)
	product.ClearDomainEvents()
}
