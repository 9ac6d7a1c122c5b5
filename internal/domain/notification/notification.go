package notification

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// MaxAttempts is the delivery retry limit before a notification stays failed.
const MaxAttempts = 3

// ErrUnknownChannel is returned for channels no sender exists for.
var ErrUnknownChannel = shared.NewDomainError("INVALID_CHANNEL", "Unknown notification channel")

// Channel is the delivery channel of a notification.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// IsValid reports whether the channel is known.
func (c Channel) IsValid() bool {
	return c == ChannelSMS || c == ChannelEmail
}

// Type identifies the business reason for a notification. Every type maps
// to a template per channel.
type Type string

const (
	TypeOrderCreated       Type = "order_created"
	TypeOrderStatusChanged Type = "order_status_changed"
	TypeOrderCancelled     Type = "order_cancelled"
	TypeWelcome            Type = "welcome"
	TypeAbandonedCart      Type = "abandoned_cart"
	TypeLowStock           Type = "low_stock"
	TypeDailyReport        Type = "daily_report"
)

// Status is the delivery state of a notification.
type Status string

const (
	StatusPending Status = "pending"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Notification is a queued outbound message. The notifications table
// doubles as the durable dispatch queue: rows are created pending and a
// background dispatcher drives them to sent or failed.
type Notification struct {
	shared.BaseEntity
	CustomerID   *uuid.UUID `gorm:"type:uuid;index"`
	OrderID      *uuid.UUID `gorm:"type:uuid;index"`
	Channel      Channel    `gorm:"type:varchar(10);not null;index"`
	Type         Type       `gorm:"type:varchar(30);not null"`
	Recipient    string     `gorm:"type:varchar(255);not null"`
	Subject      string     `gorm:"type:varchar(255)"`
	Body         string     `gorm:"type:text;not null"`
	Status       Status     `gorm:"type:varchar(10);not null;default:'pending';index"`
	Attempts     int        `gorm:"not null;default:0"`
	ExternalID   string     `gorm:"type:varchar(100)"`
	ErrorMessage string     `gorm:"type:varchar(500)"`
	NextAttempt  time.Time  `gorm:"not null;index"`
	SentAt       *time.Time
}

// TableName returns the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}

// NewNotification creates a pending notification ready for dispatch.
func NewNotification(channel Channel, typ Type, recipient, subject, body string) (*Notification, error) {
	if !channel.IsValid() {
		return nil, ErrUnknownChannel
	}
	if recipient == "" {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "Recipient cannot be empty")
	}
	if body == "" {
		return nil, shared.NewDomainError("INVALID_BODY", "Notification body cannot be empty")
	}

	return &Notification{
		BaseEntity:  shared.NewBaseEntity(),
		Channel:     channel,
		Type:        typ,
		Recipient:   recipient,
		Subject:     subject,
		Body:        body,
		Status:      StatusPending,
		NextAttempt: time.Now(),
	}, nil
}

// ForCustomer links the notification to a customer.
func (n *Notification) ForCustomer(customerID uuid.UUID) *Notification {
	n.CustomerID = &customerID
	return n
}

// ForOrder links the notification to an order.
func (n *Notification) ForOrder(orderID uuid.UUID) *Notification {
	n.OrderID = &orderID
	return n
}

// MarkSent records a successful delivery.
func (n *Notification) MarkSent(externalID string) {
	now := time.Now()
	n.Status = StatusSent
	n.ExternalID = externalID
	n.ErrorMessage = ""
	n.SentAt = &now
	n.Touch()
}

// MarkFailed records a failed attempt. Until the retry limit is reached the
// notification stays pending with an exponential backoff; afterwards it
// stays failed until retried manually.
func (n *Notification) MarkFailed(errMsg string) {
	n.Attempts++
	n.ErrorMessage = truncate(errMsg, 500)
	if n.Attempts >= MaxAttempts {
		n.Status = StatusFailed
	} else {
		n.Status = StatusPending
		n.NextAttempt = time.Now().Add(backoff(n.Attempts))
	}
	n.Touch()
}

// Requeue puts a failed notification back on the queue with a fresh budget.
func (n *Notification) Requeue() error {
	if n.Status != StatusFailed {
		return shared.NewDomainError("NOT_FAILED", "Only failed notifications can be requeued")
	}

	n.Status = StatusPending
	n.Attempts = 0
	n.ErrorMessage = ""
	n.NextAttempt = time.Now()
	n.Touch()

	return nil
}

// backoff doubles per attempt: 1m, 2m, 4m, ...
func backoff(attempt int) time.Duration {
	return time.Minute << (attempt - 1)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
