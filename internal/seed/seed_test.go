package seed

import (
	"errors"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallgrid/aquabill/internal/authorization"
	identitydomain "github.com/smallgrid/aquabill/internal/identity/domain"
	"github.com/smallgrid/aquabill/internal/identity/password"
	"gorm.io/gorm"
)

func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&identitydomain.Role{}, &identitydomain.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestEnsureRolesIdempotent(t *testing.T) {
	db := setupSeedDB(t)

	if err := EnsureRoles(db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := EnsureRoles(db); err != nil {
		t.Fatalf("second run: %v", err)
	}

	var count int64
	if err := db.Model(&identitydomain.Role{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("roles = %d, want 3", count)
	}
}

func TestEnsureAdminBootstrapsSuperAdmin(t *testing.T) {
	db := setupSeedDB(t)

	if err := EnsureRoles(db); err != nil {
		t.Fatalf("roles: %v", err)
	}
	if err := EnsureAdmin(db, "Admin@Example.com", "bootstrap-pass"); err != nil {
		t.Fatalf("admin: %v", err)
	}

	var user identitydomain.User
	if err := db.Where("email = ?", "admin@example.com").First(&user).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !password.Verify("bootstrap-pass", user.PasswordHash) {
		t.Fatal("stored hash does not verify")
	}

	var role identitydomain.Role
	if err := db.Where("id = ?", user.RoleID).First(&role).Error; err != nil {
		t.Fatalf("load role: %v", err)
	}
	if role.Name != authorization.RoleSuperAdmin {
		t.Fatalf("role = %s, want SUPER_ADMIN", role.Name)
	}
}

func TestEnsureAdminExistingEmail(t *testing.T) {
	db := setupSeedDB(t)

	if err := EnsureRoles(db); err != nil {
		t.Fatalf("roles: %v", err)
	}
	if err := EnsureAdmin(db, "admin@example.com", "bootstrap-pass"); err != nil {
		t.Fatalf("first admin: %v", err)
	}

	err := EnsureAdmin(db, "admin@example.com", "other-pass")
	if !errors.Is(err, ErrAdminExists) {
		t.Fatalf("err = %v, want ErrAdminExists", err)
	}
}
