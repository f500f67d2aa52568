package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"not null;uniqueIndex" json:"name"`
	Description string       `json:"description,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

type User struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	Email        string        `gorm:"not null;uniqueIndex" json:"email"`
	DisplayName  string        `json:"display_name,omitempty"`
	PasswordHash string        `gorm:"not null" json:"-"`
	RoleID       *snowflake.ID `gorm:"index" json:"role_id,omitempty"`
	Role         *Role         `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// RoleName returns the user's role name, empty when no role is assigned.
func (u User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}
