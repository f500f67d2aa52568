package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallgrid/aquabill/internal/authctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, caller authctx.Caller, object string, action string) error {
	_ = ctx

	if caller.UserID == 0 {
		return ErrUnauthenticated
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	role, ok := CanonicalRole(caller.Role)
	if !ok {
		return ErrForbidden
	}

	allowed, err := s.enforcer.Enforce(roleSubject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("capability denied",
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) AuthorizeSite(ctx context.Context, caller authctx.Caller, siteID snowflake.ID) error {
	if caller.UserID == 0 {
		return ErrUnauthenticated
	}
	if IsSuperAdmin(caller.Role) {
		return nil
	}
	if _, ok := CanonicalRole(caller.Role); !ok {
		return ErrForbidden
	}

	var count int64
	err := s.db.WithContext(ctx).
		Table("site_assignments").
		Where("user_id = ? AND site_id = ?", caller.UserID, siteID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) Scope(caller authctx.Caller, stmt *gorm.DB, siteColumn string) *gorm.DB {
	if IsSuperAdmin(caller.Role) {
		return stmt
	}
	if _, ok := CanonicalRole(caller.Role); !ok || caller.UserID == 0 {
		return stmt.Where("1 = 0")
	}

	return stmt.Where(
		fmt.Sprintf("%s IN (SELECT site_id FROM site_assignments WHERE user_id = ?)", siteColumn),
		caller.UserID,
	)
}

func roleSubject(role string) string {
	return fmt.Sprintf("role:%s", strings.ToLower(role))
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// SUPER_ADMIN holds every capability.
		{roleSubject(RoleSuperAdmin), "*", "*"},

		// Site managers run their assigned sites end to end.
		{roleSubject(RoleSiteManager), ObjectSite, ActionView},
		{roleSubject(RoleSiteManager), ObjectMeter, ActionView},
		{roleSubject(RoleSiteManager), ObjectMeter, ActionCreate},
		{roleSubject(RoleSiteManager), ObjectMeter, ActionUpdate},
		{roleSubject(RoleSiteManager), ObjectCustomer, ActionView},
		{roleSubject(RoleSiteManager), ObjectCustomer, ActionCreate},
		{roleSubject(RoleSiteManager), ObjectCustomer, ActionUpdate},
		{roleSubject(RoleSiteManager), ObjectTariff, ActionView},
		{roleSubject(RoleSiteManager), ObjectBilling, ActionView},
		{roleSubject(RoleSiteManager), ObjectReading, ActionView},
		{roleSubject(RoleSiteManager), ObjectReading, ActionCreate},
		{roleSubject(RoleSiteManager), ObjectPayment, ActionView},
		{roleSubject(RoleSiteManager), ObjectPayment, ActionCreate},
		{roleSubject(RoleSiteManager), ObjectAnalytics, ActionView},

		// Meter readers submit and view readings only.
		{roleSubject(RoleMeterReader), ObjectSite, ActionView},
		{roleSubject(RoleMeterReader), ObjectMeter, ActionView},
		{roleSubject(RoleMeterReader), ObjectCustomer, ActionView},
		{roleSubject(RoleMeterReader), ObjectBilling, ActionView},
		{roleSubject(RoleMeterReader), ObjectReading, ActionView},
		{roleSubject(RoleMeterReader), ObjectReading, ActionCreate},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy[0], policy[1], policy[2])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return err
		}
	}
	return nil
}
