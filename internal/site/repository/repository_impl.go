package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/aquabill/internal/site/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, site *domain.Site) error {
	return db.WithContext(ctx).Create(site).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Site, error) {
	var site domain.Site
	err := db.WithContext(ctx).Where("id = ?", id).First(&site).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &site, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Site, error) {
	var site domain.Site
	err := db.WithContext(ctx).Where("code = ?", code).First(&site).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &site, nil
}

// List runs over a pre-scoped statement so callers only see their sites.
func (r *repo) List(ctx context.Context, stmt *gorm.DB) ([]*domain.Site, error) {
	var sites []*domain.Site
	err := stmt.WithContext(ctx).
		Model(&domain.Site{}).
		Order("created_at desc, id desc").
		Find(&sites).Error
	if err != nil {
		return nil, err
	}
	return sites, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, site *domain.Site) error {
	return db.WithContext(ctx).
		Model(&domain.Site{}).
		Where("id = ?", site.ID).
		Updates(map[string]any{
			"name":       site.Name,
			"address":    site.Address,
			"latitude":   site.Latitude,
			"longitude":  site.Longitude,
			"updated_at": site.UpdatedAt,
		}).Error
}

func (r *repo) InsertAssignment(ctx context.Context, db *gorm.DB, assignment *domain.SiteAssignment) error {
	return db.WithContext(ctx).Create(assignment).Error
}

func (r *repo) FindAssignment(ctx context.Context, db *gorm.DB, userID, siteID snowflake.ID) (*domain.SiteAssignment, error) {
	var assignment domain.SiteAssignment
	err := db.WithContext(ctx).
		Where("user_id = ? AND site_id = ?", userID, siteID).
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *repo) ListAssignments(ctx context.Context, db *gorm.DB, filter domain.AssignmentFilter) ([]*domain.SiteAssignment, error) {
	stmt := db.WithContext(ctx).Model(&domain.SiteAssignment{})
	if filter.UserID != 0 {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if filter.SiteID != 0 {
		stmt = stmt.Where("site_id = ?", filter.SiteID)
	}

	var assignments []*domain.SiteAssignment
	err := stmt.Order("created_at desc, id desc").Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repo) DeleteAssignment(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.SiteAssignment{}).Error
}
