package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/pointbank/pointbank-backend/pkg/db/models"
	"github.com/pointbank/pointbank-backend/pkg/enums"
	pkgpagination "github.com/pointbank/pointbank-backend/pkg/pagination"
)

// OrderLineInput is one requested line. Exactly one of ItemID (internal
// catalog) or ExternalRef (external catalog code) must be set. Name and
// Price are required for external lines; internal lines snapshot them from
// the catalog.
type OrderLineInput struct {
	ItemID      *string
	ExternalRef string
	Name        string
	Price       int
	Quantity    int
	Fee         int
}

// CreateOrderInput carries everything needed to place and settle an order.
type CreateOrderInput struct {
	UserID uuid.UUID
	Items  []OrderLineInput
	Fee    int
}

// SettlementResult reports the order plus the purchaser's balance after the
// ledger movement, so callers answer without a second read.
type SettlementResult struct {
	Order      *models.Order `json:"order"`
	NewBalance int           `json:"new_balance"`
}

// TransitionInput identifies the order and the authenticated actor for a
// state transition.
type TransitionInput struct {
	OrderID     string
	ActorUserID uuid.UUID
	ActorRole   enums.Role
}

// ListParams selects a page of orders for the given actor.
type ListParams struct {
	ActorUserID uuid.UUID
	ActorRole   enums.Role
	pkgpagination.Params
}

// OrderSummary is the list read model.
type OrderSummary struct {
	ID          string            `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	TotalAmount int               `json:"total_amount"`
	Fee         int               `json:"fee"`
	Status      enums.OrderStatus `json:"status"`
	TotalItems  int               `json:"total_items"`
	DeliveredAt *time.Time        `json:"delivered_at,omitempty"`
	CanceledAt  *time.Time        `json:"canceled_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ListResult wraps the paginated orders plus the next page cursor.
type ListResult struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type listQuery struct {
	userID uuid.UUID
	limit  int
	cursor *pkgpagination.Cursor
}

func toOrderSummary(m models.Order) OrderSummary {
	total := 0
	for _, item := range m.Items {
		total += item.Quantity
	}
	return OrderSummary{
		ID:          m.ID,
		UserID:      m.UserID,
		TotalAmount: m.TotalAmount,
		Fee:         m.Fee,
		Status:      m.Status,
		TotalItems:  total,
		DeliveredAt: m.DeliveredAt,
		CanceledAt:  m.CanceledAt,
		CreatedAt:   m.CreatedAt,
	}
}
