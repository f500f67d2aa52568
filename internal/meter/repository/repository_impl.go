package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/aquabill/internal/meter/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, meter *domain.Meter) error {
	return db.WithContext(ctx).Create(meter).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Meter, error) {
	var meter domain.Meter
	err := db.WithContext(ctx).Where("id = ?", id).First(&meter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &meter, nil
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, number string) (*domain.Meter, error) {
	var meter domain.Meter
	err := db.WithContext(ctx).Where("meter_number = ?", number).First(&meter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &meter, nil
}

func (r *repo) List(ctx context.Context, stmt *gorm.DB, filter domain.ListFilter) ([]*domain.Meter, error) {
	stmt = stmt.WithContext(ctx).Model(&domain.Meter{})
	if filter.SiteID != 0 {
		stmt = stmt.Where("site_id = ?", filter.SiteID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	var meters []*domain.Meter
	err := stmt.Order("created_at desc, id desc").Find(&meters).Error
	if err != nil {
		return nil, err
	}
	return meters, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) error {
	return db.WithContext(ctx).
		Model(&domain.Meter{}).
		Where("id = ?", id).
		Update("status", status).Error
}
