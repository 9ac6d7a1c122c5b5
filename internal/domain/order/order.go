package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// OrderStatus represents the fulfillment state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
)

// allowedTransitions is the order fulfillment state machine.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  {StatusRefunded},
	StatusRefunded:   {},
}

// CanTransitionTo reports whether the status may move to the target.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further fulfillment transitions exist.
func (s OrderStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// IsValid reports whether the value is a known status.
func (s OrderStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// PaymentStatus represents the payment state of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// OrderItem is a line of an order. Product name, SKU and unit price are
// snapshots taken at checkout; later catalog changes never affect them.
type OrderItem struct {
	shared.BaseEntity
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	ProductSKU  string          `gorm:"type:varchar(50);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Quantity    int             `gorm:"not null"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM.
func (OrderItem) TableName() string {
	return "order_items"
}

// StatusChange is an audit record of a fulfillment transition.
type StatusChange struct {
	shared.BaseEntity
	OrderID    uuid.UUID   `gorm:"type:uuid;not null;index"`
	FromStatus OrderStatus `gorm:"type:varchar(20);not null"`
	ToStatus   OrderStatus `gorm:"type:varchar(20);not null"`
	ChangedBy  *uuid.UUID  `gorm:"type:uuid"`
	Note       string      `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM.
func (StatusChange) TableName() string {
	return "order_status_history"
}

// Order is the aggregate root for a customer order.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string          `gorm:"type:varchar(20);not null;uniqueIndex"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending'"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID"`
	StatusHistory   []StatusChange  `gorm:"foreignKey:OrderID"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingCost    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingAddress string          `gorm:"type:varchar(500);not null"`
	ShippingPhone   string          `gorm:"type:varchar(20)"`
	Notes           string          `gorm:"type:varchar(1000)"`
	PaidAt          *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
}

// TableName returns the table name for GORM.
func (Order) TableName() string {
	return "orders"
}

// NewOrderNumber derives a human-readable order number from a fresh UUID.
func NewOrderNumber() string {
	id := uuid.New()
	hex := strings.ReplaceAll(id.String(), "-", "")
	return "ORD-" + strings.ToUpper(hex[:8])
}

// NewOrder creates a pending order with no items yet.
func NewOrder(customerID uuid.UUID, shippingAddress, shippingPhone, notes string) (*Order, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if strings.TrimSpace(shippingAddress) == "" {
		return nil, shared.NewDomainError("INVALID_ADDRESS", "Shipping address cannot be empty")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       NewOrderNumber(),
		CustomerID:        customerID,
		Status:            StatusPending,
		PaymentStatus:     PaymentPending,
		Subtotal:          decimal.Zero,
		ShippingCost:      decimal.Zero,
		TotalAmount:       decimal.Zero,
		ShippingAddress:   strings.TrimSpace(shippingAddress),
		ShippingPhone:     strings.TrimSpace(shippingPhone),
		Notes:             notes,
	}

	o.StatusHistory = append(o.StatusHistory, StatusChange{
		BaseEntity: shared.NewBaseEntity(),
		OrderID:    o.ID,
		FromStatus: StatusPending,
		ToStatus:   StatusPending,
		Note:       "order created",
	})

	return o, nil
}

// AddItem appends a line with snapshot data. Only valid before the order is
// persisted; orders are immutable once placed.
func (o *Order) AddItem(productID uuid.UUID, productName, productSKU string, unitPrice decimal.Decimal, quantity int) error {
	if o.Status != StatusPending {
		return shared.NewDomainError("ORDER_NOT_EDITABLE", "Items can only be added to pending orders")
	}
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	item := OrderItem{
		BaseEntity:  shared.NewBaseEntity(),
		OrderID:     o.ID,
		ProductID:   productID,
		ProductName: productName,
		ProductSKU:  productSKU,
		UnitPrice:   unitPrice,
		Quantity:    quantity,
		TotalPrice:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}

	o.Items = append(o.Items, item)
	o.recalculateTotals()

	return nil
}

// SetShippingCost sets the shipping fee and recalculates the total.
func (o *Order) SetShippingCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return shared.NewDomainError("INVALID_SHIPPING_COST", "Shipping cost cannot be negative")
	}

	o.ShippingCost = cost
	o.recalculateTotals()

	return nil
}

// Place finalizes a newly built order and emits OrderCreated. The order must
// have at least one item.
func (o *Order) Place() error {
	if len(o.Items) == 0 {
		return shared.ErrEmptyCart
	}

	o.AddDomainEvent(NewOrderCreatedEvent(o))

	return nil
}

// ChangeStatus moves the order through the fulfillment state machine,
// stamping timestamps and recording history.
func (o *Order) ChangeStatus(target OrderStatus, changedBy *uuid.UUID, note string) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown order status")
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_TRANSITION",
			"Cannot change order status from "+string(o.Status)+" to "+string(target))
	}

	from := o.Status
	now := time.Now()
	o.Status = target

	switch target {
	case StatusShipped:
		o.ShippedAt = &now
	case StatusDelivered:
		o.DeliveredAt = &now
	case StatusCancelled:
		o.CancelledAt = &now
	}

	o.StatusHistory = append(o.StatusHistory, StatusChange{
		BaseEntity: shared.NewBaseEntity(),
		OrderID:    o.ID,
		FromStatus: from,
		ToStatus:   target,
		ChangedBy:  changedBy,
		Note:       note,
	})

	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from, target))

	return nil
}

// Cancel cancels the order. Stock restoration is handled by the caller in
// the same transaction; the emitted event carries the item quantities.
func (o *Order) Cancel(cancelledBy *uuid.UUID, reason string) error {
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError("CANNOT_CANCEL",
			"Orders in status "+string(o.Status)+" cannot be cancelled")
	}

	if err := o.ChangeStatus(StatusCancelled, cancelledBy, reason); err != nil {
		return err
	}

	o.AddDomainEvent(NewOrderCancelledEvent(o, reason))

	return nil
}

// MarkPaid records a successful payment.
func (o *Order) MarkPaid() error {
	if o.PaymentStatus == PaymentPaid {
		return shared.NewDomainError("ALREADY_PAID", "Order is already paid")
	}
	if o.Status == StatusCancelled || o.Status == StatusRefunded {
		return shared.ErrInvalidState
	}

	now := time.Now()
	o.PaymentStatus = PaymentPaid
	o.PaidAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()

	return nil
}

// MarkPaymentFailed records a failed payment attempt.
func (o *Order) MarkPaymentFailed() error {
	if o.PaymentStatus == PaymentPaid {
		return shared.NewDomainError("ALREADY_PAID", "Paid orders cannot fail payment")
	}

	o.PaymentStatus = PaymentFailed
	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	return nil
}

// MarkRefunded records a refund against a cancelled or delivered order.
func (o *Order) MarkRefunded() error {
	if o.PaymentStatus != PaymentPaid {
		return shared.NewDomainError("NOT_PAID", "Only paid orders can be refunded")
	}

	o.PaymentStatus = PaymentRefunded
	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	return nil
}

// ItemCount returns the total quantity across all lines.
func (o *Order) ItemCount() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

func (o *Order) recalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.TotalPrice)
	}
	o.Subtotal = subtotal
	o.TotalAmount = subtotal.Add(o.ShippingCost)
	o.UpdatedAt = time.Now()
}
