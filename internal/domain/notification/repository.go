package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Stats counts notifications per status for one channel.
type Stats struct {
	Channel Channel `json:"channel"`
	Pending int64   `json:"pending"`
	Sent    int64   `json:"sent"`
	Failed  int64   `json:"failed"`
}

// NotificationRepository defines the interface for the notification queue.
type NotificationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Notification, error)

	// FindAll lists notifications. Recognized filter keys: status, channel,
	// type, customer_id, order_id.
	FindAll(ctx context.Context, filter shared.Filter) ([]Notification, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ClaimPending atomically marks up to limit due pending rows as owned
	// by the dispatcher and returns them. Rows are due when NextAttempt is
	// at or before now.
	ClaimPending(ctx context.Context, now time.Time, limit int) ([]Notification, error)

	// FindFailed returns notifications that exhausted their retries.
	FindFailed(ctx context.Context, limit int) ([]Notification, error)

	Save(ctx context.Context, n *Notification) error

	// StatsByChannel aggregates per-channel delivery counts.
	StatsByChannel(ctx context.Context) ([]Stats, error)
}

// TemplateRepository defines the interface for template persistence.
type TemplateRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Template, error)
	FindByTypeAndChannel(ctx context.Context, typ Type, channel Channel) (*Template, error)
	FindAll(ctx context.Context) ([]Template, error)
	Save(ctx context.Context, template *Template) error
}
