package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	TypeManual = "MANUAL"
	TypeSmart  = "SMART"

	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

type Meter struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	MeterNumber string       `gorm:"not null;uniqueIndex" json:"meter_number"`
	MeterType   string       `gorm:"not null" json:"meter_type"`
	SiteID      snowflake.ID `gorm:"not null;index" json:"site_id"`
	Status      string       `gorm:"not null;default:ACTIVE" json:"status"`
	InstalledAt *time.Time   `json:"installed_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// ValidType reports whether the meter type is one of the known kinds.
func ValidType(meterType string) bool {
	return meterType == TypeManual || meterType == TypeSmart
}

// ValidStatus reports whether the status is a known lifecycle state.
func ValidStatus(status string) bool {
	return status == StatusActive || status == StatusInactive
}
