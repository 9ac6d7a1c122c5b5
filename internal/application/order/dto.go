package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/order"
)

// AddCartItemRequest adds a product to the cart. Adding a product already
// in the cart merges quantities.
type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=99"`
}

// UpdateCartItemRequest sets a cart line's quantity. Zero removes the line.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0,max=99"`
}

// CartItemResponse is one cart line with current product data.
type CartItemResponse struct {
	ItemID      uuid.UUID       `json:"item_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
	InStock     bool            `json:"in_stock"`
	Purchasable bool            `json:"purchasable"`
	AddedAt     time.Time       `json:"added_at"`
}

// CartResponse is the whole cart with totals.
type CartResponse struct {
	Items     []CartItemResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Total     decimal.Decimal    `json:"total"`
}

// CheckoutRequest turns the cart into an order.
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" binding:"required,max=500"`
	ShippingPhone   string `json:"shipping_phone" binding:"max=20"`
	Notes           string `json:"notes" binding:"max=1000"`
}

// UpdateOrderStatusRequest moves an order through the fulfillment states.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed processing shipped delivered cancelled refunded"`
	Note   string `json:"note" binding:"max=500"`
}

// CancelOrderRequest cancels an order with an optional reason.
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// OrderListFilter represents filter options for order listing.
type OrderListFilter struct {
	Status        string `form:"status" binding:"omitempty,oneof=pending confirmed processing shipped delivered cancelled refunded"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=pending paid failed refunded"`
	Search        string `form:"search"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy       string `form:"order_by"`
	OrderDir      string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// OrderItemResponse is one order line snapshot.
type OrderItemResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// StatusChangeResponse is one audit row of an order's history.
type StatusChangeResponse struct {
	FromStatus string     `json:"from_status"`
	ToStatus   string     `json:"to_status"`
	ChangedBy  *uuid.UUID `json:"changed_by,omitempty"`
	Note       string     `json:"note,omitempty"`
	ChangedAt  time.Time  `json:"changed_at"`
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID              uuid.UUID              `json:"id"`
	OrderNumber     string                 `json:"order_number"`
	CustomerID      uuid.UUID              `json:"customer_id"`
	Status          string                 `json:"status"`
	PaymentStatus   string                 `json:"payment_status"`
	Items           []OrderItemResponse    `json:"items"`
	StatusHistory   []StatusChangeResponse `json:"status_history,omitempty"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	ShippingCost    decimal.Decimal        `json:"shipping_cost"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	ShippingAddress string                 `json:"shipping_address"`
	ShippingPhone   string                 `json:"shipping_phone,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
	PaidAt          *time.Time             `json:"paid_at,omitempty"`
	ShippedAt       *time.Time             `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time             `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time             `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// OrderListResponse is the compact list form of an order.
type OrderListResponse struct {
	ID            uuid.UUID       `json:"id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	ItemCount     int             `json:"item_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SalesSummaryResponse is the daily report payload.
type SalesSummaryResponse struct {
	From         time.Time              `json:"from"`
	To           time.Time              `json:"to"`
	OrderCount   int64                  `json:"order_count"`
	TotalRevenue decimal.Decimal        `json:"total_revenue"`
	TopProducts  []ProductSalesResponse `json:"top_products"`
}

// ProductSalesResponse is one row of the sales ranking.
type ProductSalesResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// ToOrderResponse converts a domain Order to OrderResponse.
func ToOrderResponse(o *order.Order) *OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			TotalPrice:  item.TotalPrice,
		}
	}

	history := make([]StatusChangeResponse, len(o.StatusHistory))
	for i, change := range o.StatusHistory {
		history[i] = StatusChangeResponse{
			FromStatus: string(change.FromStatus),
			ToStatus:   string(change.ToStatus),
			ChangedBy:  change.ChangedBy,
			Note:       change.Note,
			ChangedAt:  change.CreatedAt,
		}
	}

	return &OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		Items:           items,
		StatusHistory:   history,
		Subtotal:        o.Subtotal,
		ShippingCost:    o.ShippingCost,
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		ShippingPhone:   o.ShippingPhone,
		Notes:           o.Notes,
		PaidAt:          o.PaidAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// ToOrderListResponse converts a domain Order to its list form.
func ToOrderListResponse(o *order.Order) OrderListResponse {
	return OrderListResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		ItemCount:     o.ItemCount(),
		TotalAmount:   o.TotalAmount,
		CreatedAt:     o.CreatedAt,
	}
}

// ToOrderListResponses converts a slice of domain Orders.
func ToOrderListResponses(orders []order.Order) []OrderListResponse {
	responses := make([]OrderListResponse, len(orders))
	for i := range orders {
		responses[i] = ToOrderListResponse(&orders[i])
	}
	return responses
}
