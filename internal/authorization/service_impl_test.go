package authorization

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallgrid/aquabill/internal/authctx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type siteAssignment struct {
	ID     snowflake.ID `gorm:"primaryKey"`
	UserID snowflake.ID
	SiteID snowflake.ID
}

func (siteAssignment) TableName() string {
	return "site_assignments"
}

func setupAuthz(t *testing.T) (Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&siteAssignment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	enforcer, err := NewEnforcer(db)
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Enforcer: enforcer,
	})
	return svc, db, node
}

func TestAuthorizeCapabilityTable(t *testing.T) {
	svc, _, node := setupAuthz(t)
	ctx := context.Background()

	admin := authctx.Caller{UserID: node.Generate(), Role: RoleSuperAdmin}
	manager := authctx.Caller{UserID: node.Generate(), Role: RoleSiteManager}
	reader := authctx.Caller{UserID: node.Generate(), Role: RoleMeterReader}

	cases := []struct {
		name   string
		caller authctx.Caller
		object string
		action string
		allow  bool
	}{
		{"admin wildcard", admin, ObjectUser, ActionCreate, true},
		{"admin tariff create", admin, ObjectTariff, ActionCreate, true},
		{"manager customer create", manager, ObjectCustomer, ActionCreate, true},
		{"manager payment create", manager, ObjectPayment, ActionCreate, true},
		{"manager tariff view", manager, ObjectTariff, ActionView, true},
		{"manager tariff create denied", manager, ObjectTariff, ActionCreate, false},
		{"manager user create denied", manager, ObjectUser, ActionCreate, false},
		{"reader reading create", reader, ObjectReading, ActionCreate, true},
		{"reader customer view", reader, ObjectCustomer, ActionView, true},
		{"reader payment create denied", reader, ObjectPayment, ActionCreate, false},
		{"reader customer create denied", reader, ObjectCustomer, ActionCreate, false},
		{"reader analytics denied", reader, ObjectAnalytics, ActionView, false},
	}

	for _, tc := range cases {
		err := svc.Authorize(ctx, tc.caller, tc.object, tc.action)
		if tc.allow && err != nil {
			t.Fatalf("%s: unexpected deny: %v", tc.name, err)
		}
		if !tc.allow && !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s: err = %v, want ErrForbidden", tc.name, err)
		}
	}
}

func TestAuthorizeRejectsUnknownRole(t *testing.T) {
	svc, _, node := setupAuthz(t)

	err := svc.Authorize(context.Background(), authctx.Caller{UserID: node.Generate(), Role: "janitor"}, ObjectSite, ActionView)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestAuthorizeRequiresCaller(t *testing.T) {
	svc, _, _ := setupAuthz(t)

	err := svc.Authorize(context.Background(), authctx.Caller{}, ObjectSite, ActionView)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthorizeSiteAssignment(t *testing.T) {
	svc, db, node := setupAuthz(t)
	ctx := context.Background()

	manager := authctx.Caller{UserID: node.Generate(), Role: RoleSiteManager}
	assigned := node.Generate()
	other := node.Generate()

	if err := db.Create(&siteAssignment{ID: node.Generate(), UserID: manager.UserID, SiteID: assigned}).Error; err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	if err := svc.AuthorizeSite(ctx, manager, assigned); err != nil {
		t.Fatalf("assigned site: %v", err)
	}
	if err := svc.AuthorizeSite(ctx, manager, other); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other site: err = %v, want ErrForbidden", err)
	}

	admin := authctx.Caller{UserID: node.Generate(), Role: RoleSuperAdmin}
	if err := svc.AuthorizeSite(ctx, admin, other); err != nil {
		t.Fatalf("super admin bypass: %v", err)
	}
}

func TestScopeNarrowsStatements(t *testing.T) {
	svc, db, node := setupAuthz(t)

	type court struct {
		ID     snowflake.ID `gorm:"primaryKey"`
		SiteID snowflake.ID
	}
	if err := db.AutoMigrate(&court{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	visible := node.Generate()
	hidden := node.Generate()
	if err := db.Create(&court{ID: node.Generate(), SiteID: visible}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := db.Create(&court{ID: node.Generate(), SiteID: hidden}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	manager := authctx.Caller{UserID: node.Generate(), Role: RoleSiteManager}
	if err := db.Create(&siteAssignment{ID: node.Generate(), UserID: manager.UserID, SiteID: visible}).Error; err != nil {
		t.Fatalf("assign: %v", err)
	}

	var rows []court
	if err := svc.Scope(manager, db.Model(&court{}), "site_id").Find(&rows).Error; err != nil {
		t.Fatalf("scoped find: %v", err)
	}
	if len(rows) != 1 || rows[0].SiteID != visible {
		t.Fatalf("rows = %v, want only site %s", rows, visible)
	}

	admin := authctx.Caller{UserID: node.Generate(), Role: RoleSuperAdmin}
	if err := svc.Scope(admin, db.Model(&court{}), "site_id").Find(&rows).Error; err != nil {
		t.Fatalf("admin find: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("admin rows = %d, want 2", len(rows))
	}

	nobody := authctx.Caller{UserID: node.Generate()}
	if err := svc.Scope(nobody, db.Model(&court{}), "site_id").Find(&rows).Error; err != nil {
		t.Fatalf("role-less find: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("role-less rows = %d, want 0", len(rows))
	}
}
