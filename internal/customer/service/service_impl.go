package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/aquabill/internal/authctx"
	"github.com/smallgrid/aquabill/internal/authorization"
	"github.com/smallgrid/aquabill/internal/clock"
	"github.com/smallgrid/aquabill/internal/customer/domain"
	meterdomain "github.com/smallgrid/aquabill/internal/meter/domain"
	"github.com/smallgrid/aquabill/pkg/db"
	"github.com/smallgrid/aquabill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	MeterRepo meterdomain.Repository
	Authz     authorization.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	meterRepo meterdomain.Repository
	authz     authorization.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("customer.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		meterRepo: p.MeterRepo,
		authz:     p.Authz,
	}
}

func (s *Service) Create(ctx context.Context, caller authctx.Caller, req domain.CreateCustomerRequest) (domain.Customer, error) {
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	siteID, err := parseID(req.SiteID)
	if err != nil {
		return domain.Customer{}, err
	}
	if err := s.authz.AuthorizeSite(ctx, caller, siteID); err != nil {
		return domain.Customer{}, err
	}

	var meterID *snowflake.ID
	if strings.TrimSpace(req.MeterID) != "" {
		id, err := s.resolveMeter(ctx, req.MeterID, siteID, 0)
		if err != nil {
			return domain.Customer{}, err
		}
		meterID = id
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:            s.genID.Generate(),
		FirstName:     firstName,
		LastName:      lastName,
		Phone:         strings.TrimSpace(req.Phone),
		Email:         strings.TrimSpace(strings.ToLower(req.Email)),
		PlotNo:        strings.TrimSpace(req.PlotNo),
		CourtName:     strings.TrimSpace(req.CourtName),
		UsageStatus:   domain.UsageActive,
		AccountStatus: domain.AccountActive,
		SiteID:        siteID,
		MeterID:       meterID,
		CreatedBy:     caller.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Customer{}, domain.ErrMeterAttached
		}
		return domain.Customer{}, err
	}

	s.log.Info("customer created",
		zap.String("customer_id", customer.ID.String()),
		zap.String("site_id", siteID.String()),
	)
	return customer, nil
}

func (s *Service) Update(ctx context.Context, caller authctx.Caller, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	if err := s.authz.AuthorizeSite(ctx, caller, customer.SiteID); err != nil {
		return domain.Customer{}, err
	}

	if v := strings.TrimSpace(req.FirstName); v != "" {
		customer.FirstName = v
	}
	if v := strings.TrimSpace(req.LastName); v != "" {
		customer.LastName = v
	}
	if v := strings.TrimSpace(req.Phone); v != "" {
		customer.Phone = v
	}
	if v := strings.TrimSpace(req.Email); v != "" {
		customer.Email = strings.ToLower(v)
	}
	if v := strings.TrimSpace(req.PlotNo); v != "" {
		customer.PlotNo = v
	}
	if v := strings.TrimSpace(req.CourtName); v != "" {
		customer.CourtName = v
	}
	if v := strings.ToUpper(strings.TrimSpace(req.UsageStatus)); v != "" {
		if !domain.ValidUsageStatus(v) {
			return domain.Customer{}, domain.ErrInvalidStatus
		}
		customer.UsageStatus = v
	}
	if v := strings.ToUpper(strings.TrimSpace(req.AccountStatus)); v != "" {
		if !domain.ValidAccountStatus(v) {
			return domain.Customer{}, domain.ErrInvalidStatus
		}
		customer.AccountStatus = v
	}
	if strings.TrimSpace(req.MeterID) != "" {
		meterID, err := s.resolveMeter(ctx, req.MeterID, customer.SiteID, customer.ID)
		if err != nil {
			return domain.Customer{}, err
		}
		customer.MeterID = meterID
	}
	customer.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, customer); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Customer{}, domain.ErrMeterAttached
		}
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) GetByID(ctx context.Context, caller authctx.Caller, id string) (domain.CustomerView, error) {
	customerID, err := parseID(id)
	if err != nil {
		return domain.CustomerView{}, err
	}

	customer, err := s.repo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return domain.CustomerView{}, err
	}
	if customer == nil {
		return domain.CustomerView{}, domain.ErrNotFound
	}
	if err := s.authz.AuthorizeSite(ctx, caller, customer.SiteID); err != nil {
		return domain.CustomerView{}, err
	}

	view := domain.CustomerView{Customer: *customer}
	latest, err := s.repo.LatestBillingFor(ctx, s.db, []snowflake.ID{customer.ID})
	if err != nil {
		return domain.CustomerView{}, err
	}
	if summary, ok := latest[customer.ID]; ok {
		view.LatestBilling = &summary
	}
	return view, nil
}

func (s *Service) List(ctx context.Context, caller authctx.Caller, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	filter := domain.ListFilter{
		AccountStatus: strings.ToUpper(strings.TrimSpace(req.AccountStatus)),
		Search:        strings.TrimSpace(req.Search),
	}
	if strings.TrimSpace(req.SiteID) != "" {
		siteID, err := parseID(req.SiteID)
		if err != nil {
			return domain.ListCustomerResponse{}, err
		}
		filter.SiteID = siteID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	stmt := s.authz.Scope(caller, s.db.Model(&domain.Customer{}), "site_id")
	items, err := s.repo.List(ctx, stmt, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(customer *domain.Customer) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        customer.ID.String(),
			CreatedAt: customer.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		if item != nil {
			ids = append(ids, item.ID)
		}
	}
	latest, err := s.repo.LatestBillingFor(ctx, s.db, ids)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	customers := make([]domain.CustomerView, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		view := domain.CustomerView{Customer: *item}
		if summary, ok := latest[item.ID]; ok {
			view.LatestBilling = &summary
		}
		customers = append(customers, view)
	}

	resp := domain.ListCustomerResponse{Customers: customers}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// resolveMeter validates a meter reference for attachment. The meter must
// exist, belong to the customer's site, and not already be attached to
// another customer.
func (s *Service) resolveMeter(ctx context.Context, raw string, siteID snowflake.ID, selfID snowflake.ID) (*snowflake.ID, error) {
	meterID, err := parseID(raw)
	if err != nil {
		return nil, err
	}

	meter, err := s.meterRepo.FindByID(ctx, s.db, meterID)
	if err != nil {
		return nil, err
	}
	if meter == nil {
		return nil, domain.ErrMeterNotFound
	}
	if meter.SiteID != siteID {
		return nil, domain.ErrMeterWrongSite
	}

	attached, err := s.repo.FindByMeter(ctx, s.db, meterID)
	if err != nil {
		return nil, err
	}
	if attached != nil && attached.ID != selfID {
		return nil, domain.ErrMeterAttached
	}

	return &meterID, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
