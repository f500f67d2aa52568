package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallgrid/aquabill/internal/authctx"
	billingdomain "github.com/smallgrid/aquabill/internal/billing/domain"
	"github.com/smallgrid/aquabill/internal/clock"
	"github.com/smallgrid/aquabill/internal/customer/domain"
	"github.com/smallgrid/aquabill/internal/customer/repository"
	meterdomain "github.com/smallgrid/aquabill/internal/meter/domain"
	meterrepo "github.com/smallgrid/aquabill/internal/meter/repository"
	sitedomain "github.com/smallgrid/aquabill/internal/site/domain"
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

type customerFixture struct {
	svc    domain.Service
	db     *gorm.DB
	node   *snowflake.Node
	clk    *clock.FakeClock
	site   sitedomain.Site
	caller authctx.Caller
}

func setupCustomerService(t *testing.T) *customerFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&sitedomain.Site{},
		&meterdomain.Meter{},
		&domain.Customer{},
		&billingdomain.BillingRecord{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))

	site := sitedomain.Site{ID: node.Generate(), Code: "court-a", Name: "Court A"}
	if err := db.Create(&site).Error; err != nil {
		t.Fatalf("create site: %v", err)
	}

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Repo:      repository.Provide(),
		MeterRepo: meterrepo.Provide(),
		Authz:     authzStub{},
	})

	return &customerFixture{
		svc:    svc,
		db:     db,
		node:   node,
		clk:    clk,
		site:   site,
		caller: authctx.Caller{UserID: node.Generate(), Role: "site_manager"},
	}
}

func (f *customerFixture) newMeter(t *testing.T, number string, siteID snowflake.ID) meterdomain.Meter {
	t.Helper()
	meter := meterdomain.Meter{
		ID:          f.node.Generate(),
		MeterNumber: number,
		MeterType:   meterdomain.TypeManual,
		SiteID:      siteID,
		Status:      meterdomain.StatusActive,
	}
	if err := f.db.Create(&meter).Error; err != nil {
		t.Fatalf("create meter: %v", err)
	}
	return meter
}

func TestCreateCustomerAttachesMeter(t *testing.T) {
	f := setupCustomerService(t)
	ctx := context.Background()
	meter := f.newMeter(t, "MTR-1", f.site.ID)

	customer, err := f.svc.Create(ctx, f.caller, domain.CreateCustomerRequest{
		FirstName: "Jane",
		LastName:  "Moyo",
		Email:     "Jane@Example.com",
		SiteID:    f.site.ID.String(),
		MeterID:   meter.ID.String(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if customer.MeterID == nil || *customer.MeterID != meter.ID {
		t.Fatalf("meter id = %v, want %s", customer.MeterID, meter.ID)
	}
	if customer.Email != "jane@example.com" {
		t.Fatalf("email = %s, want lowercase", customer.Email)
	}
	if customer.AccountStatus != domain.AccountActive {
		t.Fatalf("account status = %s, want ACTIVE", customer.AccountStatus)
	}
}

func TestCreateCustomerRejectsMeterFromOtherSite(t *testing.T) {
	f := setupCustomerService(t)
	ctx := context.Background()

	other := sitedomain.Site{ID: f.node.Generate(), Code: "court-b", Name: "Court B"}
	if err := f.db.Create(&other).Error; err != nil {
		t.Fatalf("create site: %v", err)
	}
	meter := f.newMeter(t, "MTR-2", other.ID)

	_, err := f.svc.Create(ctx, f.caller, domain.CreateCustomerRequest{
		FirstName: "Jane",
		LastName:  "Moyo",
		SiteID:    f.site.ID.String(),
		MeterID:   meter.ID.String(),
	})
	if !errors.Is(err, domain.ErrMeterWrongSite) {
		t.Fatalf("err = %v, want ErrMeterWrongSite", err)
	}
}

func TestCreateCustomerRejectsAttachedMeter(t *testing.T) {
	f := setupCustomerService(t)
	ctx := context.Background()
	meter := f.newMeter(t, "MTR-3", f.site.ID)

	if _, err := f.svc.Create(ctx, f.caller, domain.CreateCustomerRequest{
		FirstName: "Jane",
		LastName:  "Moyo",
		SiteID:    f.site.ID.String(),
		MeterID:   meter.ID.String(),
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := f.svc.Create(ctx, f.caller, domain.CreateCustomerRequest{
		FirstName: "John",
		LastName:  "Ncube",
		SiteID:    f.site.ID.String(),
		MeterID:   meter.ID.String(),
	})
	if !errors.Is(err, domain.ErrMeterAttached) {
		t.Fatalf("err = %v, want ErrMeterAttached", err)
	}
}

func TestUpdateCustomerKeepsOwnMeter(t *testing.T) {
	f := setupCustomerService(t)
	ctx := context.Background()
	meter := f.newMeter(t, "MTR-4", f.site.ID)

	customer, err := f.svc.Create(ctx, f.caller, domain.CreateCustomerRequest{
		FirstName: "Jane",
		LastName:  "Moyo",
		SiteID:    f.site.ID.String(),
		MeterID:   meter.ID.String(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Re-submitting the customer's own meter is not a conflict.
	updated, err := f.svc.Update(ctx, f.caller, domain.UpdateCustomerRequest{
		ID:      customer.ID.String(),
		Phone:   "+263771234567",
		MeterID: meter.ID.String(),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone != "+263771234567" {
		t.Fatalf("phone = %s", updated.Phone)
	}
}

func TestUpdateCustomerRejectsUnknownStatus(t *testing.T) {
	f := setupCustomerService(t)
	ctx := context.Background()

	customer, err := f.svc.Create(ctx, f.caller, domain.CreateCustomerRequest{
		FirstName: "Jane",
		LastName:  "Moyo",
		SiteID:    f.site.ID.String(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Update(ctx, f.caller, domain.UpdateCustomerRequest{
		ID:            customer.ID.String(),
		AccountStatus: "FROZEN",
	})
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestListCustomersPaginates(t *testing.T) {
	f := setupCustomerService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, f.caller, domain.CreateCustomerRequest{
			FirstName: "Tenant",
			LastName:  fmt.Sprintf("Num%d", i),
			SiteID:    f.site.ID.String(),
		})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		f.clk.Advance(time.Minute)
	}

	first, err := f.svc.List(ctx, f.caller, domain.ListCustomerRequest{PageSize: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Customers) != 2 {
		t.Fatalf("first page = %d, want 2", len(first.Customers))
	}
	if !first.HasMore || first.NextPageToken == "" {
		t.Fatalf("expected a next page, got %+v", first.PageInfo)
	}

	second, err := f.svc.List(ctx, f.caller, domain.ListCustomerRequest{
		PageSize:  2,
		PageToken: first.NextPageToken,
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Customers) != 1 {
		t.Fatalf("second page = %d, want 1", len(second.Customers))
	}
	if second.HasMore {
		t.Fatal("expected final page")
	}
}

func TestGetCustomerEmbedsLatestBilling(t *testing.T) {
	f := setupCustomerService(t)
	ctx := context.Background()
	meter := f.newMeter(t, "MTR-5", f.site.ID)

	customer, err := f.svc.Create(ctx, f.caller, domain.CreateCustomerRequest{
		FirstName: "Jane",
		LastName:  "Moyo",
		SiteID:    f.site.ID.String(),
		MeterID:   meter.ID.String(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	record := billingdomain.BillingRecord{
		ID:             f.node.Generate(),
		CustomerID:     customer.ID,
		MeterID:        meter.ID,
		PastReading:    decimal.Zero,
		CurrentReading: decimal.NewFromInt(50),
		ReadingDate:    f.clk.Now(),
		UnitPriceUsed:  decimal.NewFromInt(10),
		AmountDue:      decimal.NewFromInt(500),
		AmountPaid:     decimal.NewFromInt(200),
		Balance:        decimal.NewFromInt(300),
		PaymentStatus:  billingdomain.StatusPartial,
	}
	if err := f.db.Create(&record).Error; err != nil {
		t.Fatalf("create record: %v", err)
	}

	view, err := f.svc.GetByID(ctx, f.caller, customer.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.LatestBilling == nil {
		t.Fatal("expected latest billing summary")
	}
	if view.LatestBilling.CurrentBalance != "300.00" {
		t.Fatalf("balance = %s, want 300.00", view.LatestBilling.CurrentBalance)
	}
	if view.LatestBilling.PaymentStatus != billingdomain.StatusPartial {
		t.Fatalf("status = %s, want PARTIAL", view.LatestBilling.PaymentStatus)
	}
}
