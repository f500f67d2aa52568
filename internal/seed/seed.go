package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/aquabill/internal/authorization"
	identitydomain "github.com/smallgrid/aquabill/internal/identity/domain"
	"github.com/smallgrid/aquabill/internal/identity/password"
	"gorm.io/gorm"
)

// ErrAdminExists signals that the bootstrap user is already present.
var ErrAdminExists = errors.New("admin_exists")

var canonicalRoles = []identitydomain.Role{
	{Name: authorization.RoleSuperAdmin, Description: "Full access across all sites"},
	{Name: authorization.RoleSiteManager, Description: "Site-scoped management of customers, meters and billing"},
	{Name: authorization.RoleMeterReader, Description: "Site-scoped reading submission and review"},
}

// EnsureRoles creates the canonical roles if missing. Safe to call on
// every startup.
func EnsureRoles(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, role := range canonicalRoles {
			var existing identitydomain.Role
			err := tx.Where("LOWER(name) = LOWER(?)", role.Name).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			now := time.Now().UTC()
			role.ID = node.Generate()
			role.CreatedAt = now
			role.UpdatedAt = now
			if err := tx.Create(&role).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureAdmin creates the SUPER_ADMIN bootstrap user. Returns
// ErrAdminExists when the email is already registered.
func EnsureAdmin(db *gorm.DB, email, rawPassword string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return errors.New("admin email is required")
	}
	if rawPassword == "" {
		return errors.New("admin password is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing identitydomain.User
		err := tx.Where("LOWER(email) = LOWER(?)", email).First(&existing).Error
		if err == nil {
			return ErrAdminExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var role identitydomain.Role
		if err := tx.Where("LOWER(name) = LOWER(?)", authorization.RoleSuperAdmin).First(&role).Error; err != nil {
			return err
		}

		hashed, err := password.Hash(rawPassword)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		user := identitydomain.User{
			ID:           node.Generate(),
			Email:        email,
			DisplayName:  "Administrator",
			PasswordHash: hashed,
			RoleID:       &role.ID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.Create(&user).Error
	})
}
