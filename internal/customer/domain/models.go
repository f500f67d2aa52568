package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	UsageActive   = "ACTIVE"
	UsageInactive = "INACTIVE"

	AccountActive    = "ACTIVE"
	AccountSuspended = "SUSPENDED"
)

type Customer struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	FirstName     string        `gorm:"not null" json:"first_name"`
	LastName      string        `gorm:"not null" json:"last_name"`
	Phone         string        `json:"phone,omitempty"`
	Email         string        `json:"email,omitempty"`
	PlotNo        string        `json:"plot_no,omitempty"`
	CourtName     string        `json:"court_name,omitempty"`
	UsageStatus   string        `gorm:"not null;default:ACTIVE" json:"usage_status"`
	AccountStatus string        `gorm:"not null;default:ACTIVE" json:"account_status"`
	SiteID        snowflake.ID  `gorm:"not null;index" json:"site_id"`
	MeterID       *snowflake.ID `gorm:"uniqueIndex" json:"meter_id,omitempty"`
	CreatedBy     snowflake.ID  `json:"created_by"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// LatestBilling summarizes the customer's most recent ledger entry.
type LatestBilling struct {
	CurrentBalance  string     `json:"current_balance"`
	AmountDue       string     `json:"amount_due"`
	LastReadingDate *time.Time `json:"last_reading_date,omitempty"`
	PaymentStatus   string     `json:"payment_status"`
}

// ValidUsageStatus reports whether the value is a known usage state.
func ValidUsageStatus(status string) bool {
	return status == UsageActive || status == UsageInactive
}

// ValidAccountStatus reports whether the value is a known account state.
func ValidAccountStatus(status string) bool {
	return status == AccountActive || status == AccountSuspended
}
