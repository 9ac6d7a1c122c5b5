package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// CartService handles shopping cart operations. Cart lines store only the
// product reference and quantity; names and prices are joined from the
// catalog on every read so the cart always shows current data.
type CartService struct {
	cartRepo    order.CartRepository
	productRepo catalog.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(cartRepo order.CartRepository, productRepo catalog.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart returns the customer's cart with current product names, prices
// and availability. Lines referencing deleted products are skipped.
func (s *CartService) GetCart(ctx context.Context, customerID uuid.UUID) (*CartResponse, error) {
	items, err := s.cartRepo.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	products, err := s.loadProducts(ctx, items)
	if err != nil {
		return nil, err
	}

	resp := &CartResponse{
		Items: make([]CartItemResponse, 0, len(items)),
		Total: decimal.Zero,
	}

	for i := range items {
		item := &items[i]
		product, ok := products[item.ProductID]
		if !ok {
			continue
		}

		line := toCartItemResponse(item, product)
		resp.Items = append(resp.Items, line)
		resp.ItemCount += item.Quantity
		resp.Total = resp.Total.Add(line.LineTotal)
	}

	return resp, nil
}

// AddItem puts a product into the cart, merging with an existing line for
// the same product. The product must be active and have enough stock to
// cover the resulting quantity.
func (s *CartService) AddItem(ctx context.Context, customerID uuid.UUID, req AddCartItemRequest) (*CartResponse, error) {
	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, shared.NewDomainError("PRODUCT_UNAVAILABLE", "Product is not available for purchase")
	}

	existing, err := s.cartRepo.FindItem(ctx, customerID, req.ProductID)
	switch {
	case err == nil:
		if !product.HasStock(existing.Quantity + req.Quantity) {
			return nil, shared.ErrInsufficientStock
		}
		if err := existing.IncreaseQuantity(req.Quantity); err != nil {
			return nil, err
		}
		if err := s.cartRepo.Save(ctx, existing); err != nil {
			return nil, err
		}
	case errors.Is(err, shared.ErrNotFound):
		if !product.HasStock(req.Quantity) {
			return nil, shared.ErrInsufficientStock
		}
		item, err := order.NewCartItem(customerID, req.ProductID, req.Quantity)
		if err != nil {
			return nil, err
		}
		if err := s.cartRepo.Save(ctx, item); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return s.GetCart(ctx, customerID)
}

// UpdateItemQuantity sets a cart line's quantity. Quantity zero removes
// the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, customerID, productID uuid.UUID, req UpdateCartItemRequest) (*CartResponse, error) {
	item, err := s.cartRepo.FindItem(ctx, customerID, productID)
	if err != nil {
		return nil, err
	}

	if req.Quantity == 0 {
		if err := s.cartRepo.Delete(ctx, item.ID); err != nil {
			return nil, err
		}
		return s.GetCart(ctx, customerID)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.HasStock(req.Quantity) {
		return nil, shared.ErrInsufficientStock
	}

	if err := item.SetQuantity(req.Quantity); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, item); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, customerID)
}

// RemoveItem deletes a product line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, customerID, productID uuid.UUID) (*CartResponse, error) {
	item, err := s.cartRepo.FindItem(ctx, customerID, productID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.Delete(ctx, item.ID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, customerID)
}

// Clear empties the customer's cart.
func (s *CartService) Clear(ctx context.Context, customerID uuid.UUID) error {
	return s.cartRepo.DeleteByCustomer(ctx, customerID)
}

func (s *CartService) loadProducts(ctx context.Context, items []order.CartItem) (map[uuid.UUID]*catalog.Product, error) {
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].ProductID)
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}

func toCartItemResponse(item *order.CartItem, product *catalog.Product) CartItemResponse {
	qty := decimal.NewFromInt(int64(item.Quantity))
	return CartItemResponse{
		ItemID:      item.ID,
		ProductID:   item.ProductID,
		ProductName: product.Name,
		ProductSKU:  product.SKU,
		UnitPrice:   product.Price,
		Quantity:    item.Quantity,
		LineTotal:   product.Price.Mul(qty),
		InStock:     product.HasStock(item.Quantity),
		Purchasable: product.IsActive() && product.HasStock(item.Quantity),
		AddedAt:     item.CreatedAt,
	}
}
