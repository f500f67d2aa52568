package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, site *Site) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Site, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Site, error)
	List(ctx context.Context, stmt *gorm.DB) ([]*Site, error)
	Update(ctx context.Context, db *gorm.DB, site *Site) error

	InsertAssignment(ctx context.Context, db *gorm.DB, assignment *SiteAssignment) error
	FindAssignment(ctx context.Context, db *gorm.DB, userID, siteID snowflake.ID) (*SiteAssignment, error)
	ListAssignments(ctx context.Context, db *gorm.DB, filter AssignmentFilter) ([]*SiteAssignment, error)
	DeleteAssignment(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
