package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallgrid/aquabill/internal/analytics/domain"
	"github.com/smallgrid/aquabill/internal/authctx"
	"github.com/smallgrid/aquabill/internal/authorization"
	billingdomain "github.com/smallgrid/aquabill/internal/billing/domain"
	customerdomain "github.com/smallgrid/aquabill/internal/customer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Authz authorization.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	authz authorization.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("analytics.service"),
		authz: p.Authz,
	}
}

func (s *Service) GetSummary(ctx context.Context, caller authctx.Caller) (domain.Summary, error) {
	var records []billingdomain.BillingRecord
	err := s.authz.Scope(caller,
		s.db.WithContext(ctx).
			Model(&billingdomain.BillingRecord{}).
			Joins("JOIN customers ON customers.id = billing_records.customer_id"),
		"customers.site_id").
		Order("billing_records.reading_date asc, billing_records.id asc").
		Find(&records).Error
	if err != nil {
		return domain.Summary{}, err
	}

	var totalCustomers int64
	err = s.authz.Scope(caller,
		s.db.WithContext(ctx).Model(&customerdomain.Customer{}),
		"site_id").
		Count(&totalCustomers).Error
	if err != nil {
		return domain.Summary{}, err
	}

	expected := decimal.Zero
	paidRaw := decimal.Zero
	overpayment := decimal.Zero

	// Ascending order means the last record seen per customer is the
	// latest by reading_date.
	latestByCustomer := make(map[snowflake.ID]billingdomain.BillingRecord)
	for _, record := range records {
		if record.Balance.GreaterThan(decimal.Zero) {
			expected = expected.Add(record.Balance)
			paidRaw = paidRaw.Add(record.AmountPaid)
		}
		if record.Balance.LessThan(decimal.Zero) {
			overpayment = overpayment.Add(record.Balance.Neg())
		}
		latestByCustomer[record.CustomerID] = record
	}

	var customersWithDebt, paidCustomers int64
	for _, latest := range latestByCustomer {
		if latest.Balance.GreaterThan(decimal.Zero) {
			customersWithDebt++
		}
		if latest.PaymentStatus == billingdomain.StatusPaid {
			paidCustomers++
		}
	}

	unpaid := expected.Sub(paidRaw)
	if unpaid.IsNegative() {
		unpaid = decimal.Zero
	}

	appliedPaid := paidRaw
	if appliedPaid.GreaterThan(expected) {
		appliedPaid = expected
	}
	rate := decimal.Zero
	if expected.GreaterThan(decimal.Zero) {
		rate = appliedPaid.Div(expected).Mul(decimal.NewFromInt(100))
	}

	return domain.Summary{
		ExpectedAmount:        expected.StringFixed(2),
		TotalPaid:             paidRaw.StringFixed(2),
		UnpaidAmount:          unpaid.StringFixed(2),
		Overpayment:           overpayment.StringFixed(2),
		TotalBills:            int64(len(records)),
		TotalCustomers:        totalCustomers,
		CustomersWithDebt:     customersWithDebt,
		TotalPaidCustomers:    paidCustomers,
		PaymentCompletionRate: rate.StringFixed(2) + "%",
	}, nil
}
