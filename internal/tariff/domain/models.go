package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type UnitPrice struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	Price         decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"price"`
	EffectiveDate time.Time       `gorm:"not null;index" json:"effective_date"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}
