package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, price *UnitPrice) error
	List(ctx context.Context, db *gorm.DB) ([]*UnitPrice, error)

	// FindCurrentAt returns the price with the greatest effective_date
	// at or before t, nil when none applies.
	FindCurrentAt(ctx context.Context, db *gorm.DB, t time.Time) (*UnitPrice, error)
}
