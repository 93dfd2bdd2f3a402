package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pointbank/pointbank-backend/pkg/enums"
)

// PointTransaction records an immutable balance-affecting event. Rows are
// append-only; BalanceAfter snapshots the account balance immediately after
// the delta was applied.
type PointTransaction struct {
	ID           int64                 `gorm:"column:id;primaryKey;autoIncrement"`
	UserID       uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Points       int                   `gorm:"column:points;not null"`
	Kind         enums.TransactionKind `gorm:"column:kind;type:text;not null"`
	Description  string                `gorm:"column:description;not null;default:''"`
	BalanceAfter int                   `gorm:"column:balance_after;not null"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}
