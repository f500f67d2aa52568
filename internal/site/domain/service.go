package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/aquabill/internal/authctx"
)

type CreateSiteRequest struct {
	Name      string         `json:"name"`
	Address   string         `json:"address"`
	Latitude  *float64       `json:"latitude"`
	Longitude *float64       `json:"longitude"`
	Metadata  map[string]any `json:"metadata"`
}

type UpdateSiteRequest struct {
	ID        string
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type AssignRequest struct {
	UserID string `json:"user_id"`
	SiteID string `json:"site_id"`
}

type AssignmentFilter struct {
	UserID snowflake.ID
	SiteID snowflake.ID
}

type Service interface {
	Create(ctx context.Context, req CreateSiteRequest) (Site, error)
	Update(ctx context.Context, req UpdateSiteRequest) (Site, error)
	GetByID(ctx context.Context, caller authctx.Caller, id string) (Site, error)
	List(ctx context.Context, caller authctx.Caller) ([]Site, error)

	Assign(ctx context.Context, req AssignRequest) (SiteAssignment, error)
	Unassign(ctx context.Context, assignmentID string) error
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]SiteAssignment, error)
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrDuplicateCode       = errors.New("duplicate_code")
	ErrDuplicateAssignment = errors.New("duplicate_assignment")
)
