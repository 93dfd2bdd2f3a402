package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/pointbank/pointbank-backend/pkg/db/models"
	"github.com/pointbank/pointbank-backend/pkg/enums"
	pkgpagination "github.com/pointbank/pointbank-backend/pkg/pagination"
)

// ListParams selects a page of transaction history.
type ListParams struct {
	UserID uuid.UUID
	pkgpagination.Params
}

// ListResult is one page of history plus the cursor for the next page.
type ListResult struct {
	Items  []TransactionView `json:"items"`
	Cursor string            `json:"cursor"`
}

// TransactionView is the read model for one ledger entry.
type TransactionView struct {
	ID           int64                 `json:"id"`
	UserID       uuid.UUID             `json:"user_id"`
	Points       int                   `json:"points"`
	Kind         enums.TransactionKind `json:"kind"`
	Description  string                `json:"description"`
	BalanceAfter int                   `json:"balance_after"`
	CreatedAt    time.Time             `json:"created_at"`
}

type listQuery struct {
	userID   uuid.UUID
	limit    int
	cursor   *pkgpagination.Cursor
	cursorID int64
}

func toTransactionView(m models.PointTransaction) TransactionView {
	return TransactionView{
		ID:           m.ID,
		UserID:       m.UserID,
		Points:       m.Points,
		Kind:         m.Kind,
		Description:  m.Description,
		BalanceAfter: m.BalanceAfter,
		CreatedAt:    m.CreatedAt,
	}
}
