package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/notification"
)

// NotificationListFilter represents filter options for the admin listing.
type NotificationListFilter struct {
	Status     string     `form:"status" binding:"omitempty,oneof=pending sending sent failed"`
	Channel    string     `form:"channel" binding:"omitempty,oneof=sms email"`
	Type       string     `form:"type"`
	CustomerID *uuid.UUID `form:"customer_id"`
	OrderID    *uuid.UUID `form:"order_id"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// NotificationResponse represents a queued notification in API responses.
type NotificationResponse struct {
	ID           uuid.UUID  `json:"id"`
	CustomerID   *uuid.UUID `json:"customer_id,omitempty"`
	OrderID      *uuid.UUID `json:"order_id,omitempty"`
	Channel      string     `json:"channel"`
	Type         string     `json:"type"`
	Recipient    string     `json:"recipient"`
	Subject      string     `json:"subject,omitempty"`
	Body         string     `json:"body"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	ExternalID   string     `json:"external_id,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	NextAttempt  time.Time  `json:"next_attempt"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// RetryFailedResponse reports how many failed notifications were requeued.
type RetryFailedResponse struct {
	Requeued int `json:"requeued"`
}

// UpdateTemplateRequest replaces a template's content.
type UpdateTemplateRequest struct {
	Subject string `json:"subject" binding:"max=255"`
	Body    string `json:"body" binding:"required"`
}

// TemplateResponse represents a notification template.
type TemplateResponse struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Channel   string    `json:"channel"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToNotificationResponse converts a domain Notification.
func ToNotificationResponse(n *notification.Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:           n.ID,
		CustomerID:   n.CustomerID,
		OrderID:      n.OrderID,
		Channel:      string(n.Channel),
		Type:         string(n.Type),
		Recipient:    n.Recipient,
		Subject:      n.Subject,
		Body:         n.Body,
		Status:       string(n.Status),
		Attempts:     n.Attempts,
		ExternalID:   n.ExternalID,
		ErrorMessage: n.ErrorMessage,
		NextAttempt:  n.NextAttempt,
		SentAt:       n.SentAt,
		CreatedAt:    n.CreatedAt,
	}
}

// ToNotificationResponses converts a slice of domain Notifications.
func ToNotificationResponses(items []notification.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, len(items))
	for i := range items {
		responses[i] = *ToNotificationResponse(&items[i])
	}
	return responses
}

// ToTemplateResponse converts a domain Template.
func ToTemplateResponse(t *notification.Template) *TemplateResponse {
	return &TemplateResponse{
		ID:        t.ID,
		Type:      string(t.Type),
		Channel:   string(t.Channel),
		Subject:   t.Subject,
		Body:      t.Body,
		UpdatedAt: t.UpdatedAt,
	}
}

// ToTemplateResponses converts a slice of domain Templates.
func ToTemplateResponses(templates []notification.Template) []TemplateResponse {
	responses := make([]TemplateResponse, len(templates))
	for i := range templates {
		responses[i] = *ToTemplateResponse(&templates[i])
	}
	return responses
}
