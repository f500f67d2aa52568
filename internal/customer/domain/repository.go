package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/aquabill/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	SiteID        snowflake.ID
	AccountStatus string
	Search        string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	FindByMeter(ctx context.Context, db *gorm.DB, meterID snowflake.ID) (*Customer, error)
	List(ctx context.Context, stmt *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Customer, error)
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error

	// LatestBillingFor resolves the most recent billing summary per
	// customer, keyed by customer ID. Customers without records are
	// absent from the result.
	LatestBillingFor(ctx context.Context, db *gorm.DB, customerIDs []snowflake.ID) (map[snowflake.ID]LatestBilling, error)
}
