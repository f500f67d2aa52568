package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallgrid/aquabill/internal/authctx"
)

type CreateMeterRequest struct {
	MeterNumber string     `json:"meter_number"`
	MeterType   string     `json:"meter_type"`
	SiteID      string     `json:"site_id"`
	InstalledAt *time.Time `json:"installed_at"`
}

type ListMeterRequest struct {
	SiteID string `form:"site_id"`
	Status string `form:"status"`
}

type UpdateStatusRequest struct {
	ID     string
	Status string `json:"status"`
}

type Service interface {
	Create(ctx context.Context, caller authctx.Caller, req CreateMeterRequest) (Meter, error)
	GetByID(ctx context.Context, caller authctx.Caller, id string) (Meter, error)
	List(ctx context.Context, caller authctx.Caller, req ListMeterRequest) ([]Meter, error)
	UpdateStatus(ctx context.Context, caller authctx.Caller, req UpdateStatusRequest) (Meter, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidMeterNumber = errors.New("invalid_meter_number")
	ErrInvalidMeterType   = errors.New("invalid_meter_type")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrDuplicateNumber    = errors.New("duplicate_meter_number")
	ErrNotFound           = errors.New("not_found")
)
