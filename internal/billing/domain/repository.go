package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type RecordFilter struct {
	CustomerID    snowflake.ID
	MeterID       snowflake.ID
	PaymentStatus string
}

type Repository interface {
	InsertRecord(ctx context.Context, db *gorm.DB, record *BillingRecord) error
	FindRecordByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BillingRecord, error)

	// FindLatestByCustomer returns the customer's live ledger entry,
	// the record with the greatest reading_date (id breaks ties).
	FindLatestByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*BillingRecord, error)
	UpdateRecord(ctx context.Context, db *gorm.DB, record *BillingRecord) error
	ListRecords(ctx context.Context, stmt *gorm.DB, filter RecordFilter) ([]*BillingRecord, error)

	InsertPaymentLog(ctx context.Context, db *gorm.DB, log *PaymentLog) error
	FindPaymentLogByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentLog, error)
	ListPaymentLogs(ctx context.Context, stmt *gorm.DB, recordID snowflake.ID) ([]*PaymentLog, error)

	InsertReadingLog(ctx context.Context, db *gorm.DB, log *ReadingLog) error
	ListReadingLogs(ctx context.Context, stmt *gorm.DB, recordID snowflake.ID) ([]*ReadingLog, error)
}
