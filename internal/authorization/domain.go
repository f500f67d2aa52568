package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/aquabill/internal/authctx"
	"gorm.io/gorm"
)

// Capability objects.
const (
	ObjectSite      = "site"
	ObjectMeter     = "meter"
	ObjectCustomer  = "customer"
	ObjectTariff    = "tariff"
	ObjectBilling   = "billing_record"
	ObjectReading   = "reading"
	ObjectPayment   = "payment"
	ObjectUser      = "user"
	ObjectRole      = "role"
	ObjectAnalytics = "analytics"
)

// Capability actions.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidObject   = errors.New("invalid_object")
	ErrInvalidAction   = errors.New("invalid_action")
)

// Service evaluates role capabilities and site assignments.
type Service interface {
	// Authorize checks that the caller's role holds the object/action
	// capability. Callers without a recognized role are denied.
	Authorize(ctx context.Context, caller authctx.Caller, object, action string) error

	// AuthorizeSite checks that the caller may touch resources of the
	// given site. SUPER_ADMIN bypasses the assignment check.
	AuthorizeSite(ctx context.Context, caller authctx.Caller, siteID snowflake.ID) error

	// Scope narrows a statement to the rows whose siteColumn belongs to
	// one of the caller's assigned sites. SUPER_ADMIN statements pass
	// through unchanged; role-less callers match nothing.
	Scope(caller authctx.Caller, stmt *gorm.DB, siteColumn string) *gorm.DB
}
