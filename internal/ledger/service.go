package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pointbank/pointbank-backend/pkg/db/models"
	"github.com/pointbank/pointbank-backend/pkg/enums"
	pkgerrors "github.com/pointbank/pointbank-backend/pkg/errors"
	"github.com/pointbank/pointbank-backend/pkg/metrics"
	pkgpagination "github.com/pointbank/pointbank-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service applies balance deltas atomically and serves transaction history.
type Service interface {
	ApplyDelta(ctx context.Context, tx *gorm.DB, input ApplyDeltaInput) (*models.PointTransaction, error)
	EnsureAccount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
	RemoveAccount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.BalanceAccount, error)
	BalanceForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.BalanceAccount, error)
	ListTransactions(ctx context.Context, params ListParams) (*ListResult, error)
	ListAllTransactions(ctx context.Context, params ListParams) (*ListResult, error)
}

// ApplyDeltaInput captures one balance mutation. Delta is signed: positive
// credits the account, negative debits it.
type ApplyDeltaInput struct {
	UserID      uuid.UUID
	Delta       int
	Kind        enums.TransactionKind
	Description string
}

type service struct {
	repo    Repository
	tx      txRunner
	metrics *metrics.SettlementMetrics
}

// NewService wires the ledger service. The metrics collector is optional.
func NewService(repo Repository, tx txRunner, m *metrics.SettlementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, tx: tx, metrics: m}, nil
}

// ApplyDelta locks the account row, updates the balance, and appends the
// transaction record with its balance_after snapshot. The ledger applies any
// signed delta; floor policies like "insufficient points" belong to the
// caller, checked under BalanceForUpdate before invoking this. When tx is
// non-nil all writes join the caller's transaction; otherwise ApplyDelta runs
// its own.
func (s *service) ApplyDelta(ctx context.Context, tx *gorm.DB, input ApplyDeltaInput) (*models.PointTransaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction kind %q", input.Kind))
	}

	var created *models.PointTransaction
	apply := func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		account, err := repo.FindAccountForUpdate(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "balance account not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock balance account")
		}

		balance := account.Balance + input.Delta
		if err := repo.UpdateBalance(ctx, input.UserID, balance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
		}

		txn := &models.PointTransaction{
			UserID:       input.UserID,
			Points:       input.Delta,
			Kind:         input.Kind,
			Description:  input.Description,
			BalanceAfter: balance,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append transaction")
		}
		created = txn
		return nil
	}

	var err error
	if tx != nil {
		err = apply(tx)
	} else {
		err = s.tx.WithTx(ctx, apply)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.AddPointsMoved(string(input.Kind), input.Delta)
	return created, nil
}

// EnsureAccount creates the zero-balance account for a new user. Joining the
// caller's transaction keeps user provisioning all-or-nothing.
func (s *service) EnsureAccount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	account := &models.BalanceAccount{UserID: userID, Balance: 0}
	if err := s.repo.WithTx(tx).CreateAccount(ctx, account); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create balance account")
	}
	return nil
}

// RemoveAccount tears the account down when its user is deleted. The
// transaction log keeps the user's history.
func (s *service) RemoveAccount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	if err := s.repo.WithTx(tx).DeleteAccount(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete balance account")
	}
	return nil
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (*models.BalanceAccount, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	account, err := s.repo.FindAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "balance account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load balance account")
	}
	return account, nil
}

// BalanceForUpdate reads the account under a row lock inside the caller's
// transaction. Callers use it to check their floor policy before ApplyDelta
// without racing concurrent settlements.
func (s *service) BalanceForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.BalanceAccount, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	account, err := s.repo.WithTx(tx).FindAccountForUpdate(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "balance account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock balance account")
	}
	return account, nil
}

func (s *service) ListTransactions(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.listPage(ctx, params, s.repo.ListByUser)
}

func (s *service) ListAllTransactions(ctx context.Context, params ListParams) (*ListResult, error) {
	return s.listPage(ctx, params, s.repo.ListAll)
}

func (s *service) listPage(
	ctx context.Context,
	params ListParams,
	fetch func(ctx context.Context, opts listQuery) ([]models.PointTransaction, error),
) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		userID: params.UserID,
		limit:  pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		id, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
		query.cursorID = id
	}

	rows, err := fetch(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		// the cursor names the last row handed out; the filter is exclusive
		last := rows[limit-1]
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        strconv.FormatInt(last.ID, 10),
		})
	}

	items := make([]TransactionView, len(rows))
	for i, row := range rows {
		items[i] = toTransactionView(row)
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}
