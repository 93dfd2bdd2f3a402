package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pointbank/pointbank-backend/pkg/enums"
)

// Order aggregates the line items charged against a user's point balance.
// The ID is an externally visible random token, never a sequence.
type Order struct {
	ID          string            `gorm:"column:id;type:text;primaryKey"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	TotalAmount int               `gorm:"column:total_amount;not null"`
	Fee         int               `gorm:"column:fee;not null;default:0"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	DeliveredAt *time.Time        `gorm:"column:delivered_at"`
	CanceledAt  *time.Time        `gorm:"column:canceled_at"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
