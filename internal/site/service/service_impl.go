package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallgrid/aquabill/internal/authctx"
	"github.com/smallgrid/aquabill/internal/authorization"
	"github.com/smallgrid/aquabill/internal/clock"
	"github.com/smallgrid/aquabill/internal/site/domain"
	"github.com/smallgrid/aquabill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
		log:   p.Log.Named("site.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		authz: p.Authz,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateSiteRequest) (domain.Site, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Site{}, domain.ErrInvalidName
	}

	code, err := s.uniqueCode(ctx, name)
	if err != nil {
		return domain.Site{}, err
	}

	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	now := s.clock.Now()
	site := domain.Site{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		Address:   strings.TrimSpace(req.Address),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &site); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Site{}, domain.ErrDuplicateCode
		}
		return domain.Site{}, err
	}

	s.log.Info("site created",
		zap.String("site_id", site.ID.String()),
		zap.String("code", site.Code),
	)
	return site, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateSiteRequest) (domain.Site, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Site{}, err
	}

	site, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Site{}, err
	}
	if site == nil {
		return domain.Site{}, domain.ErrNotFound
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		site.Name = name
	}
	if address := strings.TrimSpace(req.Address); address != "" {
		site.Address = address
	}
	if req.Latitude != nil {
		site.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		site.Longitude = req.Longitude
	}
	site.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, site); err != nil {
		return domain.Site{}, err
	}
	return *site, nil
}

func (s *Service) GetByID(ctx context.Context, caller authctx.Caller, id string) (domain.Site, error) {
	siteID, err := parseID(id)
	if err != nil {
		return domain.Site{}, err
	}

	site, err := s.repo.FindByID(ctx, s.db, siteID)
	if err != nil {
		return domain.Site{}, err
	}
	if site == nil {
		return domain.Site{}, domain.ErrNotFound
	}

	if err := s.authz.AuthorizeSite(ctx, caller, site.ID); err != nil {
		return domain.Site{}, err
	}
	return *site, nil
}

func (s *Service) List(ctx context.Context, caller authctx.Caller) ([]domain.Site, error) {
	stmt := s.authz.Scope(caller, s.db.Model(&domain.Site{}), "id")
	items, err := s.repo.List(ctx, stmt)
	if err != nil {
		return nil, err
	}

	sites := make([]domain.Site, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		sites = append(sites, *item)
	}
	return sites, nil
}

func (s *Service) Assign(ctx context.Context, req domain.AssignRequest) (domain.SiteAssignment, error) {
	userID, err := parseID(req.UserID)
	if err != nil {
		return domain.SiteAssignment{}, err
	}
	siteID, err := parseID(req.SiteID)
	if err != nil {
		return domain.SiteAssignment{}, err
	}

	site, err := s.repo.FindByID(ctx, s.db, siteID)
	if err != nil {
		return domain.SiteAssignment{}, err
	}
	if site == nil {
		return domain.SiteAssignment{}, domain.ErrNotFound
	}

	existing, err := s.repo.FindAssignment(ctx, s.db, userID, siteID)
	if err != nil {
		return domain.SiteAssignment{}, err
	}
	if existing != nil {
		return domain.SiteAssignment{}, domain.ErrDuplicateAssignment
	}

	assignment := domain.SiteAssignment{
		ID:        s.genID.Generate(),
		UserID:    userID,
		SiteID:    siteID,
		CreatedAt: s.clock.Now(),
	}

	if err := s.repo.InsertAssignment(ctx, s.db, &assignment); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.SiteAssignment{}, domain.ErrDuplicateAssignment
		}
		return domain.SiteAssignment{}, err
	}

	s.log.Info("site assigned",
		zap.String("user_id", userID.String()),
		zap.String("site_id", siteID.String()),
	)
	return assignment, nil
}

func (s *Service) Unassign(ctx context.Context, assignmentID string) error {
	id, err := parseID(assignmentID)
	if err != nil {
		return err
	}
	return s.repo.DeleteAssignment(ctx, s.db, id)
}

func (s *Service) ListAssignments(ctx context.Context, filter domain.AssignmentFilter) ([]domain.SiteAssignment, error) {
	items, err := s.repo.ListAssignments(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	assignments := make([]domain.SiteAssignment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		assignments = append(assignments, *item)
	}
	return assignments, nil
}

// uniqueCode slugs the site name, suffixing on collision.
func (s *Service) uniqueCode(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		return "", domain.ErrInvalidName
	}

	code := base
	for i := 2; ; i++ {
		existing, err := s.repo.FindByCode(ctx, s.db, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
		code = fmt.Sprintf("%s-%d", base, i)
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
