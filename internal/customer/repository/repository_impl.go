package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/aquabill/internal/customer/domain"
	"github.com/smallgrid/aquabill/pkg/db/option"
	"github.com/smallgrid/aquabill/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Where("id = ?", id).First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repo) FindByMeter(ctx context.Context, db *gorm.DB, meterID snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Where("meter_id = ?", meterID).First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, stmt *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Customer, error) {
	stmt = stmt.WithContext(ctx).Model(&domain.Customer{})
	if filter.SiteID != 0 {
		stmt = stmt.Where("site_id = ?", filter.SiteID)
	}
	if filter.AccountStatus != "" {
		stmt = stmt.Where("account_status = ?", filter.AccountStatus)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		stmt = stmt.Where(
			"first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR phone LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)

	var customers []*domain.Customer
	err := stmt.
		Order("created_at desc, id desc").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("id = ?", customer.ID).
		Updates(map[string]any{
			"first_name":     customer.FirstName,
			"last_name":      customer.LastName,
			"phone":          customer.Phone,
			"email":          customer.Email,
			"plot_no":        customer.PlotNo,
			"court_name":     customer.CourtName,
			"usage_status":   customer.UsageStatus,
			"account_status": customer.AccountStatus,
			"meter_id":       customer.MeterID,
			"updated_at":     customer.UpdatedAt,
		}).Error
}

func (r *repo) LatestBillingFor(ctx context.Context, db *gorm.DB, customerIDs []snowflake.ID) (map[snowflake.ID]domain.LatestBilling, error) {
	result := make(map[snowflake.ID]domain.LatestBilling, len(customerIDs))
	if len(customerIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		CustomerID    snowflake.ID    `gorm:"column:customer_id"`
		Balance       decimal.Decimal `gorm:"column:balance"`
		AmountDue     decimal.Decimal `gorm:"column:amount_due"`
		ReadingDate   time.Time       `gorm:"column:reading_date"`
		PaymentStatus string          `gorm:"column:payment_status"`
	}

	// Latest record per customer by reading_date, id as tie-break.
	err := db.WithContext(ctx).Raw(
		`SELECT b.customer_id, b.balance, b.amount_due, b.reading_date, b.payment_status
		 FROM billing_records b
		 WHERE b.customer_id IN ?
		   AND NOT EXISTS (
		     SELECT 1 FROM billing_records newer
		     WHERE newer.customer_id = b.customer_id
		       AND (newer.reading_date > b.reading_date
		            OR (newer.reading_date = b.reading_date AND newer.id > b.id))
		   )`,
		customerIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		readingDate := row.ReadingDate
		result[row.CustomerID] = domain.LatestBilling{
			CurrentBalance:  row.Balance.StringFixed(2),
			AmountDue:       row.AmountDue.StringFixed(2),
			LastReadingDate: &readingDate,
			PaymentStatus:   row.PaymentStatus,
		}
	}
	return result, nil
}
