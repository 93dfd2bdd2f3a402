package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pointbank/pointbank-backend/pkg/enums"
)

// UserProfile carries the role classification and roster grouping for a user.
type UserProfile struct {
	ID              int64       `gorm:"column:id;primaryKey;autoIncrement"`
	UserID          uuid.UUID   `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Role            enums.Role  `gorm:"column:role;type:text;not null;default:'student'"`
	Comment         string      `gorm:"column:comment;not null;default:''"`
	IsActiveStudent bool        `gorm:"column:is_active_student;not null"`
	ClassID         *int64      `gorm:"column:class_id"`
	Class           *ClassMaster `gorm:"foreignKey:ClassID"`
	CreatedAt       time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}
