package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pointbank/pointbank-backend/internal/ledger"
	"github.com/pointbank/pointbank-backend/pkg/db/models"
	"github.com/pointbank/pointbank-backend/pkg/enums"
	pkgerrors "github.com/pointbank/pointbank-backend/pkg/errors"
	"github.com/pointbank/pointbank-backend/pkg/metrics"
	pkgpagination "github.com/pointbank/pointbank-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// settlementLedger is the slice of the ledger service order settlement needs.
type settlementLedger interface {
	BalanceForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.BalanceAccount, error)
	ApplyDelta(ctx context.Context, tx *gorm.DB, input ledger.ApplyDeltaInput) (*models.PointTransaction, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.BalanceAccount, error)
}

// catalogLoader resolves internal catalog items so line snapshots use the
// catalog's current name and price.
type catalogLoader interface {
	FindByID(ctx context.Context, id string) (*models.Item, error)
}

// Service runs the order settlement state machine.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*SettlementResult, error)
	CancelOrder(ctx context.Context, input TransitionInput) (*SettlementResult, error)
	MarkDelivered(ctx context.Context, input TransitionInput) (*models.Order, error)
	GetOrder(ctx context.Context, input TransitionInput) (*models.Order, error)
	ListOrders(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	ledger  settlementLedger
	catalog catalogLoader
	metrics *metrics.SettlementMetrics
}

// NewService builds the settlement service. The metrics collector is
// optional.
func NewService(repo Repository, tx txRunner, ledgerSvc settlementLedger, catalog catalogLoader, m *metrics.SettlementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		ledger:  ledgerSvc,
		catalog: catalog,
		metrics: m,
	}, nil
}

// generateOrderID returns the externally visible order token. Random, never
// sequential, so order volume cannot be inferred from an id.
func generateOrderID() string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "PB-" + hex[:10]
}

// CreateOrder validates the lines, checks the purchaser's balance under a row
// lock, debits the grand total through the ledger, and persists the order as
// success. The whole settlement runs inside one transaction: a ledger failure
// rolls the order row back entirely.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*SettlementResult, error) {
	start := time.Now()

	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one line item")
	}
	if input.Fee < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fee must be non-negative")
	}

	lines, goodsTotal, err := s.resolveLines(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	grandTotal := goodsTotal + input.Fee

	order := &models.Order{
		ID:          generateOrderID(),
		UserID:      input.UserID,
		TotalAmount: grandTotal,
		Fee:         input.Fee,
		Status:      enums.OrderStatusPending,
		Items:       lines,
	}

	var newBalance int
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		account, err := s.ledger.BalanceForUpdate(ctx, tx, input.UserID)
		if err != nil {
			return err
		}
		if account.Balance < grandTotal {
			return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "insufficient points").
				WithDetails(map[string]int{"balance": account.Balance, "required": grandTotal})
		}

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		txn, err := s.ledger.ApplyDelta(ctx, tx, ledger.ApplyDeltaInput{
			UserID:      input.UserID,
			Delta:       -grandTotal,
			Kind:        enums.TransactionKindSpend,
			Description: "order " + order.ID,
		})
		if err != nil {
			return err
		}
		newBalance = txn.BalanceAfter

		if err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, map[string]any{
			"status": enums.OrderStatusSuccess,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle order")
		}
		order.Status = enums.OrderStatusSuccess
		return nil
	})
	if err != nil {
		s.metrics.IncFailure("create_order")
		return nil, err
	}

	s.metrics.IncSuccess("create_order")
	s.metrics.ObserveDuration("create_order", time.Since(start))
	return &SettlementResult{Order: order, NewBalance: newBalance}, nil
}

// CancelOrder refunds the full total to the original purchaser and marks the
// order canceled. Owners and elevated roles may cancel; the refund targets
// order.user_id regardless of who cancels. Already-canceled orders return
// unchanged.
func (s *service) CancelOrder(ctx context.Context, input TransitionInput) (*SettlementResult, error) {
	start := time.Now()

	order, err := s.loadForActor(ctx, input, true)
	if err != nil {
		return nil, err
	}

	// Status decisions happen inside the transaction on a locked re-read: a
	// rival cancel or delivery between the load above and the refund below
	// must not produce a second refund.
	var (
		newBalance      int
		alreadyCanceled bool
	)
	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		current, err := txRepo.FindByIDForUpdate(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		switch current.Status {
		case enums.OrderStatusDelivered:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot cancel a delivered order")
		case enums.OrderStatusCanceled:
			order = current
			alreadyCanceled = true
			return nil
		}

		ok, err := txRepo.TransitionStatus(ctx, order.ID, enums.OrderStatusSuccess, map[string]any{
			"status":      enums.OrderStatusCanceled,
			"canceled_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already transitioned")
		}

		txn, err := s.ledger.ApplyDelta(ctx, tx, ledger.ApplyDeltaInput{
			UserID:      order.UserID,
			Delta:       order.TotalAmount,
			Kind:        enums.TransactionKindRefund,
			Description: "refund order " + order.ID,
		})
		if err != nil {
			return err
		}
		newBalance = txn.BalanceAfter
		return nil
	})
	if err != nil {
		s.metrics.IncFailure("cancel_order")
		return nil, err
	}

	if alreadyCanceled {
		account, err := s.ledger.GetBalance(ctx, order.UserID)
		if err != nil {
			return nil, err
		}
		return &SettlementResult{Order: order, NewBalance: account.Balance}, nil
	}

	order.Status = enums.OrderStatusCanceled
	order.CanceledAt = &now

	s.metrics.IncSuccess("cancel_order")
	s.metrics.ObserveDuration("cancel_order", time.Since(start))
	return &SettlementResult{Order: order, NewBalance: newBalance}, nil
}

// MarkDelivered is the owner's self-service acknowledgment. Status-only, no
// ledger effect. Already-delivered orders return unchanged.
func (s *service) MarkDelivered(ctx context.Context, input TransitionInput) (*models.Order, error) {
	order, err := s.loadForActor(ctx, input, false)
	if err != nil {
		return nil, err
	}

	// The conditional transition arbitrates against a concurrent cancel: a
	// canceled order must never flip to delivered, no matter how the two
	// requests interleave.
	now := time.Now().UTC()
	ok, err := s.repo.TransitionStatus(ctx, order.ID, enums.OrderStatusSuccess, map[string]any{
		"status":       enums.OrderStatusDelivered,
		"delivered_at": now,
	})
	if err != nil {
		s.metrics.IncFailure("mark_delivered")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order delivered")
	}
	if !ok {
		current, err := s.repo.FindByID(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if current.Status == enums.OrderStatusDelivered {
			return current, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot deliver a canceled order")
	}
	order.Status = enums.OrderStatusDelivered
	order.DeliveredAt = &now

	s.metrics.IncSuccess("mark_delivered")
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.loadForActor(ctx, input, true)
}

func (s *service) ListOrders(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		userID: params.ActorUserID,
		limit:  pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	var (
		rows []models.Order
		err  error
	)
	if params.ActorRole.Elevated() {
		rows, err = s.repo.ListAll(ctx, query)
	} else {
		rows, err = s.repo.ListByUser(ctx, query)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		// the cursor names the last row handed out; the filter is exclusive
		last := rows[limit-1]
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	summaries := make([]OrderSummary, len(rows))
	for i, row := range rows {
		summaries[i] = toOrderSummary(row)
	}
	return &ListResult{Orders: summaries, NextCursor: nextCursor}, nil
}

// loadForActor resolves the order and applies the ownership rule. Elevated
// roles pass when allowElevated is set; otherwise only the owner may act.
func (s *service) loadForActor(ctx context.Context, input TransitionInput, allowElevated bool) (*models.Order, error) {
	if input.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.UserID != input.ActorUserID {
		if !allowElevated || !input.ActorRole.Elevated() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to actor")
		}
	}
	return order, nil
}

// resolveLines turns the request lines into snapshot rows and sums the goods
// total. Internal lines snapshot name/price from the catalog; external lines
// carry their own.
func (s *service) resolveLines(ctx context.Context, inputs []OrderLineInput) ([]models.OrderItem, int, error) {
	lines := make([]models.OrderItem, 0, len(inputs))
	goodsTotal := 0

	for i, in := range inputs {
		if in.Quantity <= 0 {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: quantity must be positive", i))
		}
		if in.Fee < 0 {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: fee must be non-negative", i))
		}

		hasItem := in.ItemID != nil && *in.ItemID != ""
		hasExternal := in.ExternalRef != ""
		if hasItem == hasExternal {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("line %d: exactly one of item id or external ref required", i))
		}

		line := models.OrderItem{
			Quantity: in.Quantity,
			Fee:      in.Fee,
		}
		if hasItem {
			item, err := s.catalog.FindByID(ctx, *in.ItemID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("line %d: item not found", i))
				}
				return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve catalog item")
			}
			line.ItemID = in.ItemID
			line.ItemName = item.Name
			line.Price = item.Price
		} else {
			if in.Name == "" {
				return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: name required for external ref", i))
			}
			if in.Price < 0 {
				return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: price must be non-negative", i))
			}
			line.ExternalRef = in.ExternalRef
			line.ItemName = in.Name
			line.Price = in.Price
		}

		goodsTotal += line.Price * line.Quantity
		lines = append(lines, line)
	}
	return lines, goodsTotal, nil
}
