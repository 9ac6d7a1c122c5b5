package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/notification"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

const (
	retryBatchSize     = 100
	abandonedBatchSize = 200
)

// NotificationService enqueues outbound messages and serves the admin
// surface over the queue. Rendering happens at enqueue time so the stored
// row carries the final subject and body; delivery is the dispatcher's job.
type NotificationService struct {
	notificationRepo notification.NotificationRepository
	templateRepo     notification.TemplateRepository
	customerRepo     customer.CustomerRepository
	cartRepo         order.CartRepository
	adminEmail       string
	logger           *zap.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(
	notificationRepo notification.NotificationRepository,
	templateRepo notification.TemplateRepository,
	customerRepo customer.CustomerRepository,
	cartRepo order.CartRepository,
	adminEmail string,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		templateRepo:     templateRepo,
		customerRepo:     customerRepo,
		cartRepo:         cartRepo,
		adminEmail:       adminEmail,
		logger:           logger,
	}
}

// EnqueueForCustomer queues a message for a customer on the given channel.
// Channel opt-outs and missing phone numbers skip the message silently;
// opting out is not an error.
func (s *NotificationService) EnqueueForCustomer(ctx context.Context, customerID uuid.UUID, channel notification.Channel, typ notification.Type, data any, orderID *uuid.UUID) error {
	c, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return err
	}

	recipient, ok := s.recipientFor(c, channel)
	if !ok {
		s.logger.Debug("Notification skipped by customer preference",
			zap.String("customer_id", customerID.String()),
			zap.String("channel", string(channel)),
			zap.String("type", string(typ)))
		return nil
	}

	return s.enqueue(ctx, channel, typ, recipient, data, &customerID, orderID)
}

// EnqueueAdminEmail queues a message to the shop's admin recipient. A
// missing admin address disables these messages.
func (s *NotificationService) EnqueueAdminEmail(ctx context.Context, typ notification.Type, data any, orderID *uuid.UUID) error {
	if s.adminEmail == "" {
		return nil
	}
	return s.enqueue(ctx, notification.ChannelEmail, typ, s.adminEmail, data, nil, orderID)
}

// List lists notifications for the admin surface.
func (s *NotificationService) List(ctx context.Context, filter NotificationListFilter) (*shared.Paginated[NotificationResponse], error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Channel != "" {
		domainFilter.Filters["channel"] = filter.Channel
	}
	if filter.Type != "" {
		domainFilter.Filters["type"] = filter.Type
	}
	if filter.CustomerID != nil {
		domainFilter.Filters["customer_id"] = *filter.CustomerID
	}
	if filter.OrderID != nil {
		domainFilter.Filters["order_id"] = *filter.OrderID
	}

	items, err := s.notificationRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.notificationRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToNotificationResponses(items), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// Stats aggregates delivery counts per channel.
func (s *NotificationService) Stats(ctx context.Context) ([]notification.Stats, error) {
	return s.notificationRepo.StatsByChannel(ctx)
}

// RetryFailed requeues notifications that exhausted their retries.
func (s *NotificationService) RetryFailed(ctx context.Context) (*RetryFailedResponse, error) {
	failed, err := s.notificationRepo.FindFailed(ctx, retryBatchSize)
	if err != nil {
		return nil, err
	}

	requeued := 0
	for i := range failed {
		n := &failed[i]
		if err := n.Requeue(); err != nil {
			continue
		}
		if err := s.notificationRepo.Save(ctx, n); err != nil {
			return nil, err
		}
		requeued++
	}

	return &RetryFailedResponse{Requeued: requeued}, nil
}

// ListTemplates lists all notification templates.
func (s *NotificationService) ListTemplates(ctx context.Context) ([]TemplateResponse, error) {
	templates, err := s.templateRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return ToTemplateResponses(templates), nil
}

// UpdateTemplate replaces a template's subject and body.
func (s *NotificationService) UpdateTemplate(ctx context.Context, id uuid.UUID, req UpdateTemplateRequest) (*TemplateResponse, error) {
	template, err := s.templateRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := template.UpdateContent(req.Subject, req.Body); err != nil {
		return nil, err
	}
	if err := s.templateRepo.Save(ctx, template); err != nil {
		return nil, err
	}
	return ToTemplateResponse(template), nil
}

// RemindAbandonedCarts sends one reminder per customer whose cart has been
// idle longer than idleFor, then stamps the cart so it is not reminded
// again. It returns the number of customers reminded.
func (s *NotificationService) RemindAbandonedCarts(ctx context.Context, idleFor time.Duration) (int, error) {
	cutoff := time.Now().Add(-idleFor)

	items, err := s.cartRepo.FindAbandoned(ctx, cutoff, abandonedBatchSize)
	if err != nil {
		return 0, err
	}

	itemCounts := make(map[uuid.UUID]int)
	for i := range items {
		itemCounts[items[i].CustomerID] += items[i].Quantity
	}

	reminded := 0
	for customerID, count := range itemCounts {
		c, err := s.customerRepo.FindByID(ctx, customerID)
		if err != nil {
			s.logger.Warn("Abandoned cart reminder skipped",
				zap.String("customer_id", customerID.String()), zap.Error(err))
			continue
		}

		data := map[string]any{
			"FirstName": c.FirstName,
			"ItemCount": count,
		}

		channel := notification.ChannelSMS
		recipient, ok := s.recipientFor(c, channel)
		if !ok {
			channel = notification.ChannelEmail
			recipient, ok = s.recipientFor(c, channel)
		}
		if !ok {
			continue
		}

		if err := s.enqueue(ctx, channel, notification.TypeAbandonedCart, recipient, data, &customerID, nil); err != nil {
			s.logger.Warn("Abandoned cart reminder failed",
				zap.String("customer_id", customerID.String()), zap.Error(err))
			continue
		}
		if err := s.cartRepo.MarkReminded(ctx, customerID); err != nil {
			return reminded, err
		}
		reminded++
	}

	return reminded, nil
}

func (s *NotificationService) enqueue(ctx context.Context, channel notification.Channel, typ notification.Type, recipient string, data any, customerID, orderID *uuid.UUID) error {
	template, err := s.templateRepo.FindByTypeAndChannel(ctx, typ, channel)
	if err != nil {
		return err
	}

	subject, body, err := template.Render(data)
	if err != nil {
		return err
	}

	n, err := notification.NewNotification(channel, typ, recipient, subject, body)
	if err != nil {
		return err
	}
	if customerID != nil {
		n.ForCustomer(*customerID)
	}
	if orderID != nil {
		n.ForOrder(*orderID)
	}

	return s.notificationRepo.Save(ctx, n)
}

// recipientFor resolves the delivery address for a channel, honoring the
// customer's opt-outs.
func (s *NotificationService) recipientFor(c *customer.Customer, channel notification.Channel) (string, bool) {
	switch channel {
	case notification.ChannelSMS:
		if !c.SMSOptIn || c.Phone == "" {
			return "", false
		}
		return c.Phone, true
	case notification.ChannelEmail:
		if !c.EmailOptIn {
			return "", false
		}
		return c.Email, true
	default:
		return "", false
	}
}
