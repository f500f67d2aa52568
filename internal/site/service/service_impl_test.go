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
	"github.com/smallgrid/aquabill/internal/site/domain"
	"github.com/smallgrid/aquabill/internal/site/repository"
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
	if authorization.IsSuperAdmin(caller.Role) {
		return stmt
	}
	return stmt.Where(fmt.Sprintf("%s IN (SELECT site_id FROM site_assignments WHERE user_id = ?)", siteColumn), caller.UserID)
}

func setupSiteService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&domain.Site{}, &domain.SiteAssignment{}); err != nil {
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
		Authz: authzStub{},
	})
	return svc, db, node
}

func TestCreateSiteSlugsCode(t *testing.T) {
	svc, _, _ := setupSiteService(t)
	ctx := context.Background()

	site, err := svc.Create(ctx, domain.CreateSiteRequest{Name: "Harare North Court"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if site.Code != "harare-north-court" {
		t.Fatalf("code = %s, want harare-north-court", site.Code)
	}
}

func TestCreateSiteSuffixesDuplicateCode(t *testing.T) {
	svc, _, _ := setupSiteService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, domain.CreateSiteRequest{Name: "Court A"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.Create(ctx, domain.CreateSiteRequest{Name: "Court A"})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.Code != "court-a-2" {
		t.Fatalf("code = %s, want court-a-2", second.Code)
	}
}

func TestCreateSiteRejectsEmptyName(t *testing.T) {
	svc, _, _ := setupSiteService(t)

	_, err := svc.Create(context.Background(), domain.CreateSiteRequest{Name: "   "})
	if !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("err = %v, want ErrInvalidName", err)
	}
}

func TestAssignRejectsDuplicate(t *testing.T) {
	svc, _, node := setupSiteService(t)
	ctx := context.Background()

	site, err := svc.Create(ctx, domain.CreateSiteRequest{Name: "Court B"})
	if err != nil {
		t.Fatalf("create site: %v", err)
	}
	userID := node.Generate()

	if _, err := svc.Assign(ctx, domain.AssignRequest{UserID: userID.String(), SiteID: site.ID.String()}); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	_, err = svc.Assign(ctx, domain.AssignRequest{UserID: userID.String(), SiteID: site.ID.String()})
	if !errors.Is(err, domain.ErrDuplicateAssignment) {
		t.Fatalf("err = %v, want ErrDuplicateAssignment", err)
	}
}

func TestAssignUnknownSite(t *testing.T) {
	svc, _, node := setupSiteService(t)

	_, err := svc.Assign(context.Background(), domain.AssignRequest{
		UserID: node.Generate().String(),
		SiteID: node.Generate().String(),
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListScopesToAssignedSites(t *testing.T) {
	svc, _, node := setupSiteService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, domain.CreateSiteRequest{Name: "Court A"})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := svc.Create(ctx, domain.CreateSiteRequest{Name: "Court B"}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	manager := authctx.Caller{UserID: node.Generate(), Role: authorization.RoleSiteManager}
	if _, err := svc.Assign(ctx, domain.AssignRequest{UserID: manager.UserID.String(), SiteID: first.ID.String()}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	visible, err := svc.List(ctx, manager)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != first.ID {
		t.Fatalf("visible = %v, want only %s", visible, first.ID)
	}

	all, err := svc.List(ctx, authctx.Caller{UserID: node.Generate(), Role: authorization.RoleSuperAdmin})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}
}

func TestUnassignRemovesAssignment(t *testing.T) {
	svc, db, node := setupSiteService(t)
	ctx := context.Background()

	site, err := svc.Create(ctx, domain.CreateSiteRequest{Name: "Court C"})
	if err != nil {
		t.Fatalf("create site: %v", err)
	}
	assignment, err := svc.Assign(ctx, domain.AssignRequest{
		UserID: node.Generate().String(),
		SiteID: site.ID.String(),
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	if err := svc.Unassign(ctx, assignment.ID.String()); err != nil {
		t.Fatalf("unassign: %v", err)
	}

	var count int64
	if err := db.Model(&domain.SiteAssignment{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("assignments = %d, want 0", count)
	}
}
