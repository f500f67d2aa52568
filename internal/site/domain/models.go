package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Site struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Code      string            `gorm:"not null;uniqueIndex" json:"code"`
	Name      string            `gorm:"not null" json:"name"`
	Address   string            `json:"address,omitempty"`
	Latitude  *float64          `json:"latitude,omitempty"`
	Longitude *float64          `json:"longitude,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

type SiteAssignment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:idx_site_assignments_user_site" json:"user_id"`
	SiteID    snowflake.ID `gorm:"not null;uniqueIndex:idx_site_assignments_user_site;index" json:"site_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}
