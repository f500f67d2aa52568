package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallgrid/aquabill/internal/tariff/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, price *domain.UnitPrice) error {
	return db.WithContext(ctx).Create(price).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.UnitPrice, error) {
	var prices []*domain.UnitPrice
	err := db.WithContext(ctx).
		Order("effective_date desc, id desc").
		Find(&prices).Error
	if err != nil {
		return nil, err
	}
	return prices, nil
}

func (r *repo) FindCurrentAt(ctx context.Context, db *gorm.DB, t time.Time) (*domain.UnitPrice, error) {
	var price domain.UnitPrice
	err := db.WithContext(ctx).
		Where("effective_date <= ?", t).
		Order("effective_date desc, id desc").
		First(&price).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &price, nil
}
