package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical identity entity.
type User struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Username        string     `gorm:"type:text;not null;uniqueIndex"`
	Email           string     `gorm:"type:text;not null;uniqueIndex"`
	Name            string     `gorm:"column:name;not null;default:''"`
	PasswordHash    string     `gorm:"column:password_hash;not null"`
	IsActive        bool       `gorm:"column:is_active;not null"`
	CreatedViaAdmin bool       `gorm:"column:created_via_admin;not null;default:false"`
	LastLoginAt     *time.Time `gorm:"column:last_login_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
