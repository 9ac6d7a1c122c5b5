package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/notification"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormNotificationRepository implements NotificationRepository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

// FindByID finds a notification by ID
func (r *GormNotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	var n notification.Notification
	if err := r.conn(ctx).First(&n, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// FindAll lists notifications matching the filter
func (r *GormNotificationRepository) FindAll(ctx context.Context, filter shared.Filter) ([]notification.Notification, error) {
	var notifications []notification.Notification
	query := r.applyFilter(r.conn(ctx).Model(&notification.Notification{}), filter, true)

	if err := query.Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// Count counts notifications matching the filter
func (r *GormNotificationRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.conn(ctx).Model(&notification.Notification{}), filter, false)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// claimLease is how long a row may sit in sending before it is considered
// abandoned by a dead dispatcher and becomes claimable again.
const claimLease = 5 * time.Minute

// ClaimPending atomically marks up to limit due pending rows as sending and
// returns them. Row locking keeps concurrent dispatchers from claiming the
// same rows. Sending rows whose claim lease has expired are swept up too,
// so a dispatcher that died mid-delivery does not strand them.
func (r *GormNotificationRepository) ClaimPending(ctx context.Context, now time.Time, limit int) ([]notification.Notification, error) {
	var claimed []notification.Notification

	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []notification.Notification
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("(status = ? AND next_attempt <= ?) OR (status = ? AND updated_at < ?)",
				notification.StatusPending, now,
				notification.StatusSending, now.Add(-claimLease)).
			Order("next_attempt ASC").
			Limit(limit).
			Find(&pending).Error; err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(pending))
		for i := range pending {
			ids[i] = pending[i].ID
		}
		if err := tx.
			Model(&notification.Notification{}).
			Where("id IN ?", ids).
			Update("status", notification.StatusSending).Error; err != nil {
			return err
		}

		for i := range pending {
			pending[i].Status = notification.StatusSending
		}
		claimed = pending
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// FindFailed returns notifications that exhausted their retries
func (r *GormNotificationRepository) FindFailed(ctx context.Context, limit int) ([]notification.Notification, error) {
	var notifications []notification.Notification
	query := r.conn(ctx).
		Where("status = ?", notification.StatusFailed).
		Order("updated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// Save creates or updates a notification
func (r *GormNotificationRepository) Save(ctx context.Context, n *notification.Notification) error {
	return r.conn(ctx).Save(n).Error
}

// StatsByChannel aggregates per-channel delivery counts
func (r *GormNotificationRepository) StatsByChannel(ctx context.Context) ([]notification.Stats, error) {
	var rows []struct {
		Channel notification.Channel
		Status  notification.Status
		Count   int64
	}
	if err := r.conn(ctx).
		Model(&notification.Notification{}).
		Select("channel, status, COUNT(id) AS count").
		Group("channel, status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	byChannel := make(map[notification.Channel]*notification.Stats)
	order := make([]notification.Channel, 0, 2)
	for _, row := range rows {
		stats, ok := byChannel[row.Channel]
		if !ok {
			stats = &notification.Stats{Channel: row.Channel}
			byChannel[row.Channel] = stats
			order = append(order, row.Channel)
		}
		switch row.Status {
		case notification.StatusPending, notification.StatusSending:
			stats.Pending += row.Count
		case notification.StatusSent:
			stats.Sent += row.Count
		case notification.StatusFailed:
			stats.Failed += row.Count
		}
	}

	result := make([]notification.Stats, 0, len(order))
	for _, ch := range order {
		result = append(result, *byChannel[ch])
	}
	return result, nil
}

func (r *GormNotificationRepository) applyFilter(query *gorm.DB, filter shared.Filter, paginate bool) *gorm.DB {
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if channel, ok := filter.Filters["channel"]; ok {
		query = query.Where("channel = ?", channel)
	}
	if typ, ok := filter.Filters["type"]; ok {
		query = query.Where("type = ?", typ)
	}
	if customerID, ok := filter.Filters["customer_id"]; ok {
		query = query.Where("customer_id = ?", customerID)
	}
	if orderID, ok := filter.Filters["order_id"]; ok {
		query = query.Where("order_id = ?", orderID)
	}

	if paginate {
		orderBy := ValidateSortField(filter.OrderBy, NotificationSortFields, "created_at")
		orderDir := ValidateSortOrder(filter.OrderDir)
		query = query.Order(orderBy + " " + orderDir)

		if filter.PageSize > 0 {
			query = query.Offset(filter.Offset()).Limit(filter.PageSize)
		}
	}

	return query
}
