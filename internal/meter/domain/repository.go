package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	SiteID snowflake.ID
	Status string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, meter *Meter) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Meter, error)
	FindByNumber(ctx context.Context, db *gorm.DB, number string) (*Meter, error)
	List(ctx context.Context, stmt *gorm.DB, filter ListFilter) ([]*Meter, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) error
}
