package models

import (
	"time"

	"github.com/google/uuid"
)

// BalanceAccount holds the current point balance for one user. The balance is
// mutated only by the ledger service and always equals the fold of every
// PointTransaction delta ever applied for the user.
type BalanceAccount struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Balance   int       `gorm:"column:balance;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
