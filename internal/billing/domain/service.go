package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallgrid/aquabill/internal/authctx"
)

type SubmitReadingRequest struct {
	CustomerID     string           `json:"customer_id"`
	CurrentReading decimal.Decimal  `json:"current_reading"`
	PastReading    *decimal.Decimal `json:"past_reading"`
	ReadingDate    *time.Time       `json:"reading_date"`
	AmountPaid     *decimal.Decimal `json:"amount_paid"`
}

type RecordPaymentRequest struct {
	BillingRecordID string          `json:"billing_record_id"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method"`
	Reference       string          `json:"reference"`
}

type ListRecordsRequest struct {
	CustomerID    string `form:"customer_id"`
	MeterID       string `form:"meter_id"`
	PaymentStatus string `form:"payment_status"`
}

// Receipt is the data rendered onto a payment receipt PDF.
type Receipt struct {
	Reference     string
	CustomerName  string
	SiteName      string
	MeterNumber   string
	Amount        decimal.Decimal
	Method        string
	PaymentDate   time.Time
	RecordBalance decimal.Decimal
}

// ReceiptRenderer renders a receipt document.
type ReceiptRenderer interface {
	Render(receipt Receipt) ([]byte, error)
}

type Service interface {
	// SubmitReading runs the ledger create or update path for the
	// customer's live record, atomically with its log writes.
	SubmitReading(ctx context.Context, caller authctx.Caller, req SubmitReadingRequest) (BillingRecord, error)

	// RecordPayment appends a payment log and applies the amount to the
	// record's paid total and balance.
	RecordPayment(ctx context.Context, caller authctx.Caller, req RecordPaymentRequest) (BillingRecord, error)

	GetRecord(ctx context.Context, caller authctx.Caller, id string) (BillingRecord, error)
	ListRecords(ctx context.Context, caller authctx.Caller, req ListRecordsRequest) ([]BillingRecord, error)
	ListPayments(ctx context.Context, caller authctx.Caller, recordID string) ([]PaymentLog, error)
	ListReadings(ctx context.Context, caller authctx.Caller, recordID string) ([]ReadingLog, error)

	// ReceiptPDF renders the receipt for one payment log.
	ReceiptPDF(ctx context.Context, caller authctx.Caller, paymentLogID string) ([]byte, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrReadingRegression  = errors.New("reading_regression")
	ErrNoLinkedMeter      = errors.New("no_linked_meter")
	ErrNoTariff           = errors.New("no_tariff")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrDuplicateReference = errors.New("duplicate_reference")
	ErrNotFound           = errors.New("not_found")
)
