package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/notification"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTemplateRepository implements TemplateRepository using GORM
type GormTemplateRepository struct {
	db *gorm.DB
}

// NewGormTemplateRepository creates a new GormTemplateRepository
func NewGormTemplateRepository(db *gorm.DB) *GormTemplateRepository {
	return &GormTemplateRepository{db: db}
}

func (r *GormTemplateRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

// FindByID finds a template by ID
func (r *GormTemplateRepository) FindByID(ctx context.Context, id uuid.UUID) (*notification.Template, error) {
	var t notification.Template
	if err := r.conn(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindByTypeAndChannel finds the active template for a type/channel pair
func (r *GormTemplateRepository) FindByTypeAndChannel(ctx context.Context, typ notification.Type, channel notification.Channel) (*notification.Template, error) {
	var t notification.Template
	if err := r.conn(ctx).
		Where("type = ? AND channel = ? AND active = ?", typ, channel, true).
		First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindAll lists all templates
func (r *GormTemplateRepository) FindAll(ctx context.Context) ([]notification.Template, error) {
	var templates []notification.Template
	if err := r.conn(ctx).
		Order("type ASC, channel ASC").
		Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// Save creates or updates a template
func (r *GormTemplateRepository) Save(ctx context.Context, template *notification.Template) error {
	return r.conn(ctx).Save(template).Error
}
