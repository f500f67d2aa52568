package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/aquabill/internal/authctx"
	"github.com/smallgrid/aquabill/internal/authorization"
	"github.com/smallgrid/aquabill/internal/clock"
	"github.com/smallgrid/aquabill/internal/meter/domain"
	"github.com/smallgrid/aquabill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Authz authorization.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	authz authorization.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("meter.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		authz: p.Authz,
	}
}

func (s *Service) Create(ctx context.Context, caller authctx.Caller, req domain.CreateMeterRequest) (domain.Meter, error) {
	number := strings.TrimSpace(req.MeterNumber)
	if number == "" {
		return domain.Meter{}, domain.ErrInvalidMeterNumber
	}

	meterType := strings.ToUpper(strings.TrimSpace(req.MeterType))
	if !domain.ValidType(meterType) {
		return domain.Meter{}, domain.ErrInvalidMeterType
	}

	siteID, err := parseID(req.SiteID)
	if err != nil {
		return domain.Meter{}, err
	}
	if err := s.authz.AuthorizeSite(ctx, caller, siteID); err != nil {
		return domain.Meter{}, err
	}

	existing, err := s.repo.FindByNumber(ctx, s.db, number)
	if err != nil {
		return domain.Meter{}, err
	}
	if existing != nil {
		return domain.Meter{}, domain.ErrDuplicateNumber
	}

	now := s.clock.Now()
	meter := domain.Meter{
		ID:          s.genID.Generate(),
		MeterNumber: number,
		MeterType:   meterType,
		SiteID:      siteID,
		Status:      domain.StatusActive,
		InstalledAt: req.InstalledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &meter); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Meter{}, domain.ErrDuplicateNumber
		}
		return domain.Meter{}, err
	}

	s.log.Info("meter created",
		zap.String("meter_id", meter.ID.String()),
		zap.String("meter_number", meter.MeterNumber),
	)
	return meter, nil
}

func (s *Service) GetByID(ctx context.Context, caller authctx.Caller, id string) (domain.Meter, error) {
	meterID, err := parseID(id)
	if err != nil {
		return domain.Meter{}, err
	}

	meter, err := s.repo.FindByID(ctx, s.db, meterID)
	if err != nil {
		return domain.Meter{}, err
	}
	if meter == nil {
		return domain.Meter{}, domain.ErrNotFound
	}

	if err := s.authz.AuthorizeSite(ctx, caller, meter.SiteID); err != nil {
		return domain.Meter{}, err
	}
	return *meter, nil
}

func (s *Service) List(ctx context.Context, caller authctx.Caller, req domain.ListMeterRequest) ([]domain.Meter, error) {
	filter := domain.ListFilter{
		Status: strings.ToUpper(strings.TrimSpace(req.Status)),
	}
	if strings.TrimSpace(req.SiteID) != "" {
		siteID, err := parseID(req.SiteID)
		if err != nil {
			return nil, err
		}
		filter.SiteID = siteID
	}

	stmt := s.authz.Scope(caller, s.db.Model(&domain.Meter{}), "site_id")
	items, err := s.repo.List(ctx, stmt, filter)
	if err != nil {
		return nil, err
	}

	meters := make([]domain.Meter, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		meters = append(meters, *item)
	}
	return meters, nil
}

func (s *Service) UpdateStatus(ctx context.Context, caller authctx.Caller, req domain.UpdateStatusRequest) (domain.Meter, error) {
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if !domain.ValidStatus(status) {
		return domain.Meter{}, domain.ErrInvalidStatus
	}

	meter, err := s.GetByID(ctx, caller, req.ID)
	if err != nil {
		return domain.Meter{}, err
	}

	if err := s.repo.UpdateStatus(ctx, s.db, meter.ID, status); err != nil {
		return domain.Meter{}, err
	}

	meter.Status = status
	return meter, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
