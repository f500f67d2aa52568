package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/aquabill/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertRecord(ctx context.Context, db *gorm.DB, record *domain.BillingRecord) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) FindRecordByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BillingRecord, error) {
	var record domain.BillingRecord
	err := db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) FindLatestByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*domain.BillingRecord, error) {
	var record domain.BillingRecord
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("reading_date desc, id desc").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) UpdateRecord(ctx context.Context, db *gorm.DB, record *domain.BillingRecord) error {
	return db.WithContext(ctx).
		Model(&domain.BillingRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"past_reading":    record.PastReading,
			"current_reading": record.CurrentReading,
			"reading_date":    record.ReadingDate,
			"unit_price_used": record.UnitPriceUsed,
			"amount_due":      record.AmountDue,
			"amount_paid":     record.AmountPaid,
			"balance":         record.Balance,
			"payment_status":  record.PaymentStatus,
			"updated_at":      record.UpdatedAt,
		}).Error
}

// ListRecords runs over a statement already joined to customers and
// scoped to the caller's sites.
func (r *repo) ListRecords(ctx context.Context, stmt *gorm.DB, filter domain.RecordFilter) ([]*domain.BillingRecord, error) {
	stmt = stmt.WithContext(ctx)
	if filter.CustomerID != 0 {
		stmt = stmt.Where("billing_records.customer_id = ?", filter.CustomerID)
	}
	if filter.MeterID != 0 {
		stmt = stmt.Where("billing_records.meter_id = ?", filter.MeterID)
	}
	if filter.PaymentStatus != "" {
		stmt = stmt.Where("billing_records.payment_status = ?", filter.PaymentStatus)
	}

	var records []*domain.BillingRecord
	err := stmt.
		Order("billing_records.reading_date desc, billing_records.id desc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) InsertPaymentLog(ctx context.Context, db *gorm.DB, log *domain.PaymentLog) error {
	return db.WithContext(ctx).Create(log).Error
}

func (r *repo) FindPaymentLogByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentLog, error) {
	var log domain.PaymentLog
	err := db.WithContext(ctx).Where("id = ?", id).First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

func (r *repo) ListPaymentLogs(ctx context.Context, stmt *gorm.DB, recordID snowflake.ID) ([]*domain.PaymentLog, error) {
	stmt = stmt.WithContext(ctx)
	if recordID != 0 {
		stmt = stmt.Where("payment_logs.billing_record_id = ?", recordID)
	}

	var logs []*domain.PaymentLog
	err := stmt.
		Order("payment_logs.payment_date desc, payment_logs.id desc").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repo) InsertReadingLog(ctx context.Context, db *gorm.DB, log *domain.ReadingLog) error {
	return db.WithContext(ctx).Create(log).Error
}

func (r *repo) ListReadingLogs(ctx context.Context, stmt *gorm.DB, recordID snowflake.ID) ([]*domain.ReadingLog, error) {
	stmt = stmt.WithContext(ctx)
	if recordID != 0 {
		stmt = stmt.Where("reading_logs.billing_record_id = ?", recordID)
	}

	var logs []*domain.ReadingLog
	err := stmt.
		Order("reading_logs.recorded_at desc, reading_logs.id desc").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
