package domain

import (
	"context"
	"errors"

	"github.com/smallgrid/aquabill/internal/authctx"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type CreateUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	RoleName    string `json:"role"`
}

type AssignRoleRequest struct {
	UserID   string
	RoleName string
}

type CreateRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (TokenPair, error)
	Refresh(ctx context.Context, req RefreshRequest) (TokenPair, error)
	Me(ctx context.Context, caller authctx.Caller) (User, error)

	CreateUser(ctx context.Context, req CreateUserRequest) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id string) (User, error)
	AssignRole(ctx context.Context, req AssignRoleRequest) (User, error)

	CreateRole(ctx context.Context, req CreateRoleRequest) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
}

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrTooManyAttempts    = errors.New("too_many_attempts")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrEmailTaken         = errors.New("email_taken")
	ErrRoleTaken          = errors.New("role_taken")
	ErrNotFound           = errors.New("not_found")
)

// LoginThrottle limits repeated login attempts per principal.
type LoginThrottle interface {
	Allow(ctx context.Context, key string) (bool, error)
}
