package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertUser(ctx context.Context, db *gorm.DB, user *User) error
	FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	ListUsers(ctx context.Context, db *gorm.DB) ([]*User, error)
	UpdateUserRole(ctx context.Context, db *gorm.DB, userID snowflake.ID, roleID *snowflake.ID) error

	InsertRole(ctx context.Context, db *gorm.DB, role *Role) error
	FindRoleByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Role, error)
	FindRoleByName(ctx context.Context, db *gorm.DB, name string) (*Role, error)
	ListRoles(ctx context.Context, db *gorm.DB) ([]*Role, error)
}
