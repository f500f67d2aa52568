package domain

import (
	"context"

	"github.com/smallgrid/aquabill/internal/authctx"
)

// Summary is the portfolio roll-up over the caller's visible ledger.
// Monetary fields are fixed two-decimal strings.
type Summary struct {
	ExpectedAmount        string `json:"expected_amount"`
	TotalPaid             string `json:"total_paid"`
	UnpaidAmount          string `json:"unpaid_amount"`
	Overpayment           string `json:"overpayment"`
	TotalBills            int64  `json:"total_bills"`
	TotalCustomers        int64  `json:"total_customers"`
	CustomersWithDebt     int64  `json:"customers_with_debt"`
	TotalPaidCustomers    int64  `json:"total_paid_customers"`
	PaymentCompletionRate string `json:"payment_completion_rate"`
}

type Service interface {
	GetSummary(ctx context.Context, caller authctx.Caller) (Summary, error)
}
