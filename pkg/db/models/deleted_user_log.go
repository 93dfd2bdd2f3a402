package models

import (
	"time"

	"github.com/google/uuid"
)

// DeletedUserLog is the audit trail row written when an account is removed.
type DeletedUserLog struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	Username  string     `gorm:"column:username;not null"`
	Email     string     `gorm:"column:email;not null"`
	Name      string     `gorm:"column:name;not null;default:''"`
	DeletedBy *uuid.UUID `gorm:"column:deleted_by;type:uuid"`
	DeletedAt time.Time  `gorm:"column:deleted_at;autoCreateTime"`
}
