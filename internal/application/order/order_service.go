package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

const (
	autoConfirmBatchSize = 100
	summaryTopProducts   = 5
)

// OrderService handles checkout and order lifecycle operations.
type OrderService struct {
	orderRepo   order.OrderRepository
	cartRepo    order.CartRepository
	productRepo catalog.ProductRepository
	uow         shared.UnitOfWork
	publisher   shared.EventPublisher
	shippingFee decimal.Decimal
}

// OrderServiceOption configures an OrderService.
type OrderServiceOption func(*OrderService)

// WithFlatShippingFee sets a flat shipping fee applied to every order.
func WithFlatShippingFee(fee decimal.Decimal) OrderServiceOption {
	return func(s *OrderService) {
		s.shippingFee = fee
	}
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orderRepo order.OrderRepository,
	cartRepo order.CartRepository,
	productRepo catalog.ProductRepository,
	uow shared.UnitOfWork,
	publisher shared.EventPublisher,
	opts ...OrderServiceOption,
) *OrderService {
	s := &OrderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		uow:         uow,
		publisher:   publisher,
		shippingFee: decimal.Zero,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout converts the customer's cart into an order. Item names and
// prices are snapshotted at this moment, stock is decremented and the cart
// is cleared, all in one transaction. Any unavailable line aborts the
// whole checkout.
func (s *OrderService) Checkout(ctx context.Context, customerID uuid.UUID, req CheckoutRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "OrderService", "Checkout",
		telemetry.WithAttribute("customer_id", customerID))
	defer span.End()

	var (
		placed   *order.Order
		products []*catalog.Product
	)

	err := s.uow.Execute(ctx, func(ctx context.Context) error {
		items, err := s.cartRepo.FindByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return shared.ErrEmptyCart
		}

		o, err := order.NewOrder(customerID, req.ShippingAddress, req.ShippingPhone, req.Notes)
		if err != nil {
			return err
		}
		if err := o.SetShippingCost(s.shippingFee); err != nil {
			return err
		}

		for i := range items {
			item := &items[i]

			product, err := s.productRepo.FindByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.NewDomainError("PRODUCT_UNAVAILABLE",
						"Product in cart is no longer available")
				}
				return err
			}
			if !product.IsActive() {
				return shared.NewDomainError("PRODUCT_UNAVAILABLE",
					"Product "+product.Name+" is not available for purchase")
			}

			if err := product.RemoveStock(item.Quantity, "order "+o.OrderNumber); err != nil {
				return err
			}
			if err := s.productRepo.Save(ctx, product); err != nil {
				return err
			}

			if err := o.AddItem(product.ID, product.Name, product.SKU, product.Price, item.Quantity); err != nil {
				return err
			}

			products = append(products, product)
		}

		if err := o.Place(); err != nil {
			return err
		}
		if err := s.orderRepo.Save(ctx, o); err != nil {
			return err
		}
		if err := s.cartRepo.DeleteByCustomer(ctx, customerID); err != nil {
			return err
		}

		placed = o
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, "order_number", placed.OrderNumber)

	s.publishEvents(ctx, placed)
	for _, product := range products {
		s.publishProductEvents(ctx, product)
	}

	return ToOrderResponse(placed), nil
}

// GetOrder returns one of the customer's orders. Orders belonging to other
// customers are reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, shared.ErrNotFound
	}
	return ToOrderResponse(o), nil
}

// GetOrderAdmin returns any order by ID.
func (s *OrderService) GetOrderAdmin(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderResponse(o), nil
}

// ListOrders lists the customer's own orders.
func (s *OrderService) ListOrders(ctx context.Context, customerID uuid.UUID, filter OrderListFilter) (*shared.Paginated[OrderListResponse], error) {
	domainFilter := buildOrderFilter(filter)

	orders, err := s.orderRepo.FindByCustomer(ctx, customerID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.orderRepo.CountByCustomer(ctx, customerID, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToOrderListResponses(orders), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// ListAll lists orders across all customers.
func (s *OrderService) ListAll(ctx context.Context, filter OrderListFilter) (*shared.Paginated[OrderListResponse], error) {
	domainFilter := buildOrderFilter(filter)

	orders, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.orderRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToOrderListResponses(orders), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// UpdateStatus moves an order through the fulfillment state machine.
// Transitions to cancelled restore stock like a customer cancellation.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, changedBy uuid.UUID, req UpdateOrderStatusRequest) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	target := order.OrderStatus(req.Status)
	if target == order.StatusCancelled {
		if err := s.cancel(ctx, o, &changedBy, req.Note); err != nil {
			return nil, err
		}
		return ToOrderResponse(o), nil
	}

	if err := o.ChangeStatus(target, &changedBy, req.Note); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, o); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, o)

	return ToOrderResponse(o), nil
}

// Cancel cancels one of the customer's orders and restores the stock its
// items had claimed.
func (s *OrderService) Cancel(ctx context.Context, customerID, orderID uuid.UUID, req CancelOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "OrderService", "Cancel",
		telemetry.WithAttribute("order_id", orderID))
	defer span.End()

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, shared.ErrNotFound
	}

	if err := s.cancel(ctx, o, &customerID, req.Reason); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return ToOrderResponse(o), nil
}

// MarkPaid records a successful payment against the order.
func (s *OrderService) MarkPaid(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, orderID, (*order.Order).MarkPaid)
}

// MarkPaymentFailed records a failed payment attempt.
func (s *OrderService) MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, orderID, (*order.Order).MarkPaymentFailed)
}

// MarkRefunded records a refund against the order.
func (s *OrderService) MarkRefunded(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, orderID, (*order.Order).MarkRefunded)
}

// AutoConfirmPaid confirms paid orders that have sat in pending longer
// than the given age. It returns the number of orders confirmed.
func (s *OrderService) AutoConfirmPaid(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	orders, err := s.orderRepo.FindPendingPaidBefore(ctx, cutoff, autoConfirmBatchSize)
	if err != nil {
		return 0, err
	}

	confirmed := 0
	for i := range orders {
		o := &orders[i]
		if err := o.ChangeStatus(order.StatusConfirmed, nil, "auto-confirmed after payment"); err != nil {
			continue
		}
		if err := s.orderRepo.Save(ctx, o); err != nil {
			return confirmed, err
		}
		s.publishEvents(ctx, o)
		confirmed++
	}

	return confirmed, nil
}

// DailySummary aggregates the orders placed on the given calendar day.
func (s *OrderService) DailySummary(ctx context.Context, day time.Time) (*SalesSummaryResponse, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.Add(24 * time.Hour)

	summary, err := s.orderRepo.Summarize(ctx, from, to, summaryTopProducts)
	if err != nil {
		return nil, err
	}

	resp := &SalesSummaryResponse{
		From:         from,
		To:           to,
		OrderCount:   summary.OrderCount,
		TotalRevenue: summary.TotalRevenue,
		TopProducts:  make([]ProductSalesResponse, len(summary.TopProducts)),
	}
	for i, row := range summary.TopProducts {
		resp.TopProducts[i] = ProductSalesResponse{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			Quantity:    row.Quantity,
			Revenue:     row.Revenue,
		}
	}
	return resp, nil
}

// cancel cancels the order and restores stock in one transaction. Stock of
// products deleted since checkout is silently not restored.
func (s *OrderService) cancel(ctx context.Context, o *order.Order, cancelledBy *uuid.UUID, reason string) error {
	var restocked []*catalog.Product

	err := s.uow.Execute(ctx, func(ctx context.Context) error {
		if err := o.Cancel(cancelledBy, reason); err != nil {
			return err
		}

		for _, item := range o.Items {
			product, err := s.productRepo.FindByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					continue
				}
				return err
			}
			if err := product.AddStock(item.Quantity, "order "+o.OrderNumber+" cancelled"); err != nil {
				return err
			}
			if err := s.productRepo.Save(ctx, product); err != nil {
				return err
			}
			restocked = append(restocked, product)
		}

		return s.orderRepo.Save(ctx, o)
	})
	if err != nil {
		return err
	}

	s.publishEvents(ctx, o)
	for _, product := range restocked {
		s.publishProductEvents(ctx, product)
	}

	return nil
}

func (s *OrderService) mutate(ctx context.Context, orderID uuid.UUID, fn func(*order.Order) error) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, o); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, o)

	return ToOrderResponse(o), nil
}

func (s *OrderService) publishEvents(ctx context.Context, o *order.Order) {
	if s.publisher == nil {
		return
	}
	events := o.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.publisher.Publish(ctx, events...)
	o.ClearDomainEvents()
}

func (s *OrderService) publishProductEvents(ctx context.Context, product *catalog.Product) {
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

func buildOrderFilter(filter OrderListFilter) shared.Filter {
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
	if filter.PaymentStatus != "" {
		domainFilter.Filters["payment_status"] = filter.PaymentStatus
	}
	return domainFilter
}
