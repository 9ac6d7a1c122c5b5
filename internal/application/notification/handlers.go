package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/notification"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// EventHandler turns domain events into queued notifications. It is
// subscribed to the in-process event bus at startup.
type EventHandler struct {
	svc    *NotificationService
	logger *zap.Logger
}

// NewEventHandler creates the notification event handler.
func NewEventHandler(svc *NotificationService, logger *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// EventTypes returns the events this handler subscribes to.
func (h *EventHandler) EventTypes() []string {
	return []string{
		order.EventTypeOrderCreated,
		order.EventTypeOrderStatusChanged,
		order.EventTypeOrderCancelled,
		customer.EventTypeCustomerRegistered,
		catalog.EventTypeProductLowStock,
	}
}

// Handle enqueues the notifications an event calls for.
func (h *EventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *order.OrderCreatedEvent:
		return h.orderCreated(ctx, e)
	case *order.OrderStatusChangedEvent:
		return h.orderStatusChanged(ctx, e)
	case *order.OrderCancelledEvent:
		return h.orderCancelled(ctx, e)
	case *customer.CustomerRegisteredEvent:
		return h.customerRegistered(ctx, e)
	case *catalog.ProductLowStockEvent:
		return h.productLowStock(ctx, e)
	default:
		return nil
	}
}

func (h *EventHandler) orderCreated(ctx context.Context, e *order.OrderCreatedEvent) error {
	data := map[string]any{
		"OrderNumber": e.OrderNumber,
		"TotalAmount": e.TotalAmount.StringFixed(2),
		"ItemCount":   len(e.Items),
	}

	if err := h.svc.EnqueueForCustomer(ctx, e.CustomerID, notification.ChannelSMS,
		notification.TypeOrderCreated, data, &e.OrderID); err != nil {
		h.logger.Warn("Order confirmation not queued",
			zap.String("order_number", e.OrderNumber), zap.Error(err))
	}

	return h.svc.EnqueueAdminEmail(ctx, notification.TypeOrderCreated, data, &e.OrderID)
}

func (h *EventHandler) orderStatusChanged(ctx context.Context, e *order.OrderStatusChangedEvent) error {
	// Cancellations are covered by the dedicated event.
	if e.ToStatus == order.StatusCancelled {
		return nil
	}

	data := map[string]any{
		"OrderNumber": e.OrderNumber,
		"FromStatus":  string(e.FromStatus),
		"ToStatus":    string(e.ToStatus),
	}
	return h.svc.EnqueueForCustomer(ctx, e.CustomerID, notification.ChannelSMS,
		notification.TypeOrderStatusChanged, data, &e.OrderID)
}

func (h *EventHandler) orderCancelled(ctx context.Context, e *order.OrderCancelledEvent) error {
	data := map[string]any{
		"OrderNumber": e.OrderNumber,
		"Reason":      e.Reason,
	}

	if err := h.svc.EnqueueForCustomer(ctx, e.CustomerID, notification.ChannelSMS,
		notification.TypeOrderCancelled, data, &e.OrderID); err != nil {
		h.logger.Warn("Cancellation notice not queued",
			zap.String("order_number", e.OrderNumber), zap.Error(err))
	}

	return h.svc.EnqueueAdminEmail(ctx, notification.TypeOrderCancelled, data, &e.OrderID)
}

func (h *EventHandler) customerRegistered(ctx context.Context, e *customer.CustomerRegisteredEvent) error {
	data := map[string]any{
		"FirstName": e.FirstName,
		"Email":     e.Email,
	}
	return h.svc.EnqueueForCustomer(ctx, e.CustomerID, notification.ChannelEmail,
		notification.TypeWelcome, data, nil)
}

func (h *EventHandler) productLowStock(ctx context.Context, e *catalog.ProductLowStockEvent) error {
	data := map[string]any{
		"SKU":       e.SKU,
		"Name":      e.Name,
		"Level":     e.Level,
		"Threshold": e.Threshold,
	}
	return h.svc.EnqueueAdminEmail(ctx, notification.TypeLowStock, data, nil)
}
