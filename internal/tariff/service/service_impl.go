package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/aquabill/internal/clock"
	"github.com/smallgrid/aquabill/internal/tariff/domain"
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
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tariff.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateUnitPriceRequest) (domain.UnitPrice, error) {
	if req.Price.IsZero() || req.Price.IsNegative() {
		return domain.UnitPrice{}, domain.ErrInvalidPrice
	}

	effective := req.EffectiveDate
	if effective.IsZero() {
		effective = s.clock.Now()
	}

	price := domain.UnitPrice{
		ID:            s.genID.Generate(),
		Price:         req.Price,
		EffectiveDate: effective.UTC(),
		CreatedAt:     s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, &price); err != nil {
		return domain.UnitPrice{}, err
	}

	s.log.Info("unit price created",
		zap.String("price", price.Price.String()),
		zap.Time("effective_date", price.EffectiveDate),
	)
	return price, nil
}

func (s *Service) List(ctx context.Context) ([]domain.UnitPrice, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	prices := make([]domain.UnitPrice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		prices = append(prices, *item)
	}
	return prices, nil
}

func (s *Service) CurrentAt(ctx context.Context, t time.Time) (domain.UnitPrice, error) {
	if t.IsZero() {
		t = s.clock.Now()
	}

	price, err := s.repo.FindCurrentAt(ctx, s.db, t)
	if err != nil {
		return domain.UnitPrice{}, err
	}
	if price == nil {
		return domain.UnitPrice{}, domain.ErrNoTariff
	}
	return *price, nil
}
