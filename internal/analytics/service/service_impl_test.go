package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallgrid/aquabill/internal/analytics/domain"
	"github.com/smallgrid/aquabill/internal/authctx"
	billingdomain "github.com/smallgrid/aquabill/internal/billing/domain"
	customerdomain "github.com/smallgrid/aquabill/internal/customer/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type authzStub struct{}

func (authzStub) Authorize(ctx context.Context, caller authctx.Caller, object, action string) error {
	return nil
}

func (authzStub) AuthorizeSite(ctx context.Context, caller authctx.Caller, siteID snowflake.ID) error {
	return nil
}

func (authzStub) Scope(caller authctx.Caller, stmt *gorm.DB, siteColumn string) *gorm.DB {
	return stmt
}

type analyticsFixture struct {
	svc  domain.Service
	db   *gorm.DB
	node *snowflake.Node
}

func setupAnalytics(t *testing.T) *analyticsFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&customerdomain.Customer{}, &billingdomain.BillingRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Authz: authzStub{},
	})
	return &analyticsFixture{svc: svc, db: db, node: node}
}

func (f *analyticsFixture) seedRecord(t *testing.T, due, paid string, status string) {
	t.Helper()

	customer := customerdomain.Customer{
		ID:        f.node.Generate(),
		FirstName: "T",
		LastName:  "T",
		SiteID:    f.node.Generate(),
	}
	if err := f.db.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	amountDue, _ := decimal.NewFromString(due)
	amountPaid, _ := decimal.NewFromString(paid)
	record := billingdomain.BillingRecord{
		ID:             f.node.Generate(),
		CustomerID:     customer.ID,
		MeterID:        f.node.Generate(),
		CurrentReading: decimal.NewFromInt(10),
		ReadingDate:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		UnitPriceUsed:  decimal.NewFromInt(10),
		AmountDue:      amountDue,
		AmountPaid:     amountPaid,
		Balance:        amountDue.Sub(amountPaid),
		PaymentStatus:  status,
	}
	if err := f.db.Create(&record).Error; err != nil {
		t.Fatalf("seed record: %v", err)
	}
}

func TestSummaryEmptyPortfolio(t *testing.T) {
	f := setupAnalytics(t)

	summary, err := f.svc.GetSummary(context.Background(), authctx.Caller{UserID: f.node.Generate(), Role: "SUPER_ADMIN"})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.ExpectedAmount != "0.00" {
		t.Fatalf("expected = %s, want 0.00", summary.ExpectedAmount)
	}
	if summary.PaymentCompletionRate != "0.00%" {
		t.Fatalf("rate = %s, want 0.00%%", summary.PaymentCompletionRate)
	}
	if summary.TotalBills != 0 || summary.TotalCustomers != 0 {
		t.Fatalf("want empty summary, got %+v", summary)
	}
}

func TestSummaryAggregates(t *testing.T) {
	f := setupAnalytics(t)
	caller := authctx.Caller{UserID: f.node.Generate(), Role: "SUPER_ADMIN"}

	f.seedRecord(t, "500", "200", billingdomain.StatusPartial) // balance 300
	f.seedRecord(t, "100", "100", billingdomain.StatusPaid)    // balance 0
	f.seedRecord(t, "80", "100", billingdomain.StatusPaid)     // balance -20 overpaid
	f.seedRecord(t, "50", "0", billingdomain.StatusUnpaid)     // balance 50

	summary, err := f.svc.GetSummary(context.Background(), caller)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	// Only records still carrying debt count toward expected.
	if summary.ExpectedAmount != "350.00" {
		t.Fatalf("expected = %s, want 350.00", summary.ExpectedAmount)
	}
	if summary.TotalPaid != "200.00" {
		t.Fatalf("paid = %s, want 200.00", summary.TotalPaid)
	}
	if summary.UnpaidAmount != "150.00" {
		t.Fatalf("unpaid = %s, want 150.00", summary.UnpaidAmount)
	}
	if summary.Overpayment != "20.00" {
		t.Fatalf("overpayment = %s, want 20.00", summary.Overpayment)
	}
	if summary.TotalBills != 4 {
		t.Fatalf("bills = %d, want 4", summary.TotalBills)
	}
	if summary.TotalCustomers != 4 {
		t.Fatalf("customers = %d, want 4", summary.TotalCustomers)
	}
	if summary.CustomersWithDebt != 2 {
		t.Fatalf("debtors = %d, want 2", summary.CustomersWithDebt)
	}
	if summary.TotalPaidCustomers != 2 {
		t.Fatalf("paid customers = %d, want 2", summary.TotalPaidCustomers)
	}
	if summary.PaymentCompletionRate != "57.14%" {
		t.Fatalf("rate = %s, want 57.14%%", summary.PaymentCompletionRate)
	}
}
