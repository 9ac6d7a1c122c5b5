package persistence

import (
	"context"

	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

type txContextKey struct{}

// txFromContext returns the transaction stored in ctx, or nil.
func txFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// dbFromContext returns the transaction in ctx if one is active, otherwise
// the fallback handle. Repositories use this so the same method works both
// inside and outside a unit of work.
func dbFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return fallback
}

// GormUnitOfWork implements shared.UnitOfWork on a GORM transaction. The
// transaction handle travels in the context, so every repository call made
// with the callback's context joins the same transaction.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a unit of work bound to the given database handle
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn inside a single transaction. Any error rolls it back.
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested calls join the outer transaction
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

var _ shared.UnitOfWork = (*GormUnitOfWork)(nil)
