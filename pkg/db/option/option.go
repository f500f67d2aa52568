package option

import (
	"time"

	"github.com/smallgrid/aquabill/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryOptionFunc func(*gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

// ApplyPagination applies a cursor page to the statement. One extra row
// is fetched so callers can detect whether more pages exist.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		size := page.PageSize
		if size <= 0 {
			size = 50
		}
		if size > 250 {
			size = 250
		}

		if page.PageToken != "" {
			cursor, err := pagination.DecodeCursor(page.PageToken)
			if err == nil && cursor != nil && cursor.CreatedAt != "" {
				if createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt); err == nil {
					db = db.Where(
						"(created_at, id) < (?, ?)",
						createdAt,
						cursor.ID,
					)
				}
			}
		}

		return db.Limit(size + 1)
	})
}
