package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/aquabill/internal/identity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertUser(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Omit("Role").Create(user).Error
}

func (r *repo) FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).
		Preload("Role").
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).
		Preload("Role").
		Where("LOWER(email) = LOWER(?)", email).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repo) ListUsers(ctx context.Context, db *gorm.DB) ([]*domain.User, error) {
	var users []*domain.User
	err := db.WithContext(ctx).
		Preload("Role").
		Order("created_at desc, id desc").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) UpdateUserRole(ctx context.Context, db *gorm.DB, userID snowflake.ID, roleID *snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Update("role_id", roleID).Error
}

func (r *repo) InsertRole(ctx context.Context, db *gorm.DB, role *domain.Role) error {
	return db.WithContext(ctx).Create(role).Error
}

func (r *repo) FindRoleByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Role, error) {
	var role domain.Role
	err := db.WithContext(ctx).Where("id = ?", id).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *repo) FindRoleByName(ctx context.Context, db *gorm.DB, name string) (*domain.Role, error) {
	var role domain.Role
	err := db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *repo) ListRoles(ctx context.Context, db *gorm.DB) ([]*domain.Role, error) {
	var roles []*domain.Role
	err := db.WithContext(ctx).Order("name asc").Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}
