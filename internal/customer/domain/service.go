package domain

import (
	"context"
	"errors"

	"github.com/smallgrid/aquabill/internal/authctx"
	"github.com/smallgrid/aquabill/pkg/db/pagination"
)

type CreateCustomerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	PlotNo    string `json:"plot_no"`
	CourtName string `json:"court_name"`
	SiteID    string `json:"site_id"`
	MeterID   string `json:"meter_id"`
}

type UpdateCustomerRequest struct {
	ID            string
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	PlotNo        string `json:"plot_no"`
	CourtName     string `json:"court_name"`
	UsageStatus   string `json:"usage_status"`
	AccountStatus string `json:"account_status"`
	MeterID       string `json:"meter_id"`
}

type ListCustomerRequest struct {
	PageToken     string `form:"page_token"`
	PageSize      int    `form:"page_size"`
	SiteID        string `form:"site_id"`
	AccountStatus string `form:"account_status"`
	Search        string `form:"search"`
}

// CustomerView is a customer plus its latest ledger summary.
type CustomerView struct {
	Customer
	LatestBilling *LatestBilling `json:"latest_billing,omitempty"`
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []CustomerView `json:"customers"`
}

type Service interface {
	Create(ctx context.Context, caller authctx.Caller, req CreateCustomerRequest) (Customer, error)
	Update(ctx context.Context, caller authctx.Caller, req UpdateCustomerRequest) (Customer, error)
	GetByID(ctx context.Context, caller authctx.Caller, id string) (CustomerView, error)
	List(ctx context.Context, caller authctx.Caller, req ListCustomerRequest) (ListCustomerResponse, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrNotFound         = errors.New("not_found")
	ErrMeterNotFound    = errors.New("meter_not_found")
	ErrMeterAttached    = errors.New("meter_already_attached")
	ErrMeterWrongSite   = errors.New("meter_wrong_site")
)
