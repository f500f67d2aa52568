package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallgrid/aquabill/internal/authctx"
	"github.com/smallgrid/aquabill/internal/authorization"
	"github.com/smallgrid/aquabill/internal/clock"
	"github.com/smallgrid/aquabill/internal/meter/domain"
	"github.com/smallgrid/aquabill/internal/meter/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type authzStub struct {
	denySite bool
}

func (a *authzStub) Authorize(ctx context.Context, caller authctx.Caller, object, action string) error {
	return nil
}

func (a *authzStub) AuthorizeSite(ctx context.Context, caller authctx.Caller, siteID snowflake.ID) error {
	if a.denySite {
		return authorization.ErrForbidden
	}
	return nil
}

func (a *authzStub) Scope(caller authctx.Caller, stmt *gorm.DB, siteColumn string) *gorm.DB {
	return stmt
}

func setupMeterService(t *testing.T, authz *authzStub) (domain.Service, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&domain.Meter{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
		Authz: authz,
	})
	return svc, node
}

func TestCreateMeterNormalizesType(t *testing.T) {
	svc, node := setupMeterService(t, &authzStub{})
	ctx := context.Background()
	caller := authctx.Caller{UserID: node.Generate(), Role: authorization.RoleSiteManager}

	meter, err := svc.Create(ctx, caller, domain.CreateMeterRequest{
		MeterNumber: "MTR-100",
		MeterType:   "manual",
		SiteID:      node.Generate().String(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if meter.MeterType != domain.TypeManual {
		t.Fatalf("type = %s, want MANUAL", meter.MeterType)
	}
	if meter.Status != domain.StatusActive {
		t.Fatalf("status = %s, want ACTIVE", meter.Status)
	}
}

func TestCreateMeterRejectsUnknownType(t *testing.T) {
	svc, node := setupMeterService(t, &authzStub{})
	caller := authctx.Caller{UserID: node.Generate(), Role: authorization.RoleSiteManager}

	_, err := svc.Create(context.Background(), caller, domain.CreateMeterRequest{
		MeterNumber: "MTR-101",
		MeterType:   "ANALOG",
		SiteID:      node.Generate().String(),
	})
	if !errors.Is(err, domain.ErrInvalidMeterType) {
		t.Fatalf("err = %v, want ErrInvalidMeterType", err)
	}
}

func TestCreateMeterRejectsDuplicateNumber(t *testing.T) {
	svc, node := setupMeterService(t, &authzStub{})
	ctx := context.Background()
	caller := authctx.Caller{UserID: node.Generate(), Role: authorization.RoleSiteManager}
	siteID := node.Generate().String()

	if _, err := svc.Create(ctx, caller, domain.CreateMeterRequest{
		MeterNumber: "MTR-102",
		MeterType:   domain.TypeSmart,
		SiteID:      siteID,
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.Create(ctx, caller, domain.CreateMeterRequest{
		MeterNumber: "MTR-102",
		MeterType:   domain.TypeSmart,
		SiteID:      siteID,
	})
	if !errors.Is(err, domain.ErrDuplicateNumber) {
		t.Fatalf("err = %v, want ErrDuplicateNumber", err)
	}
}

func TestCreateMeterDeniedOutsideAssignedSites(t *testing.T) {
	svc, node := setupMeterService(t, &authzStub{denySite: true})
	caller := authctx.Caller{UserID: node.Generate(), Role: authorization.RoleSiteManager}

	_, err := svc.Create(context.Background(), caller, domain.CreateMeterRequest{
		MeterNumber: "MTR-103",
		MeterType:   domain.TypeManual,
		SiteID:      node.Generate().String(),
	})
	if !errors.Is(err, authorization.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	svc, node := setupMeterService(t, &authzStub{})
	ctx := context.Background()
	caller := authctx.Caller{UserID: node.Generate(), Role: authorization.RoleSiteManager}

	meter, err := svc.Create(ctx, caller, domain.CreateMeterRequest{
		MeterNumber: "MTR-104",
		MeterType:   domain.TypeManual,
		SiteID:      node.Generate().String(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.UpdateStatus(ctx, caller, domain.UpdateStatusRequest{
		ID:     meter.ID.String(),
		Status: "inactive",
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != domain.StatusInactive {
		t.Fatalf("status = %s, want INACTIVE", updated.Status)
	}

	_, err = svc.UpdateStatus(ctx, caller, domain.UpdateStatusRequest{
		ID:     meter.ID.String(),
		Status: "BROKEN",
	})
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	svc, node := setupMeterService(t, &authzStub{})
	ctx := context.Background()
	caller := authctx.Caller{UserID: node.Generate(), Role: authorization.RoleSiteManager}
	siteID := node.Generate().String()

	active, err := svc.Create(ctx, caller, domain.CreateMeterRequest{
		MeterNumber: "MTR-105",
		MeterType:   domain.TypeManual,
		SiteID:      siteID,
	})
	if err != nil {
		t.Fatalf("create active: %v", err)
	}
	retired, err := svc.Create(ctx, caller, domain.CreateMeterRequest{
		MeterNumber: "MTR-106",
		MeterType:   domain.TypeManual,
		SiteID:      siteID,
	})
	if err != nil {
		t.Fatalf("create retired: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, caller, domain.UpdateStatusRequest{
		ID:     retired.ID.String(),
		Status: domain.StatusInactive,
	}); err != nil {
		t.Fatalf("retire: %v", err)
	}

	meters, err := svc.List(ctx, caller, domain.ListMeterRequest{Status: "active"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(meters) != 1 || meters[0].ID != active.ID {
		t.Fatalf("meters = %v, want only %s", meters, active.ID)
	}
}
