package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	StatusPaid    = "PAID"
	StatusPartial = "PARTIAL"
	StatusUnpaid  = "UNPAID"

	MethodManual = "Manual"

	NoteInitialReading = "Initial reading entry"
	NoteReadingUpdated = "Reading updated"
)

// BillingRecord is the evolving ledger entry per customer. The latest
// record (by reading_date) is mutated in place by subsequent readings.
type BillingRecord struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	CustomerID     snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	MeterID        snowflake.ID    `gorm:"not null;index" json:"meter_id"`
	PastReading    decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"past_reading"`
	CurrentReading decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"current_reading"`
	ReadingDate    time.Time       `gorm:"not null;index" json:"reading_date"`
	UnitPriceUsed  decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"unit_price_used"`
	AmountDue      decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount_due"`
	AmountPaid     decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount_paid"`
	Balance        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"balance"`
	PaymentStatus  string          `gorm:"not null" json:"payment_status"`
	CreatedBy      snowflake.ID    `json:"created_by"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// PaymentLog is the append-only trail of applied payments.
type PaymentLog struct {
	ID                   snowflake.ID    `gorm:"primaryKey" json:"id"`
	BillingRecordID      snowflake.ID    `gorm:"not null;index" json:"billing_record_id"`
	AmountPaid           decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount_paid"`
	PaymentMethod        string          `gorm:"not null" json:"payment_method"`
	TransactionReference string          `gorm:"not null;uniqueIndex" json:"transaction_reference"`
	PaymentDate          time.Time       `gorm:"not null" json:"payment_date"`
	CreatedBy            snowflake.ID    `json:"created_by"`
	CreatedAt            time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// ReadingLog is the append-only trail of reading transitions.
type ReadingLog struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	BillingRecordID snowflake.ID    `gorm:"not null;index" json:"billing_record_id"`
	PreviousReading decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"previous_reading"`
	NewReading      decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"new_reading"`
	Note            string          `json:"note,omitempty"`
	RecordedBy      snowflake.ID    `json:"recorded_by"`
	RecordedAt      time.Time       `gorm:"not null" json:"recorded_at"`
}

// DerivePaymentStatus is the pure status function over the invariant
// balance = amount_due - amount_paid.
func DerivePaymentStatus(balance, amountPaid decimal.Decimal) string {
	switch {
	case balance.LessThanOrEqual(decimal.Zero):
		return StatusPaid
	case amountPaid.GreaterThan(decimal.Zero):
		return StatusPartial
	default:
		return StatusUnpaid
	}
}
