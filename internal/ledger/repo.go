package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pointbank/pointbank-backend/pkg/db/models"
)

// Repository manages persistence for balance accounts and the append-only
// transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateAccount(ctx context.Context, account *models.BalanceAccount) error
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
	FindAccount(ctx context.Context, userID uuid.UUID) (*models.BalanceAccount, error)
	FindAccountForUpdate(ctx context.Context, userID uuid.UUID) (*models.BalanceAccount, error)
	UpdateBalance(ctx context.Context, userID uuid.UUID, balance int) error
	CreateTransaction(ctx context.Context, txn *models.PointTransaction) error
	ListByUser(ctx context.Context, opts listQuery) ([]models.PointTransaction, error)
	ListAll(ctx context.Context, opts listQuery) ([]models.PointTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateAccount(ctx context.Context, account *models.BalanceAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.BalanceAccount{}).Error
}

func (r *repository) FindAccount(ctx context.Context, userID uuid.UUID) (*models.BalanceAccount, error) {
	var account models.BalanceAccount
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindAccountForUpdate takes a row lock on the account so concurrent
// settlements against the same user serialize.
func (r *repository) FindAccountForUpdate(ctx context.Context, userID uuid.UUID) (*models.BalanceAccount, error) {
	var account models.BalanceAccount
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) UpdateBalance(ctx context.Context, userID uuid.UUID, balance int) error {
	return r.db.WithContext(ctx).
		Model(&models.BalanceAccount{}).
		Where("user_id = ?", userID).
		Update("balance", balance).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.PointTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// ListByUser returns the user's transactions newest-first using cursor
// pagination.
func (r *repository) ListByUser(ctx context.Context, opts listQuery) ([]models.PointTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", opts.userID)
	return r.list(query, opts)
}

// ListAll returns transactions across every user newest-first.
func (r *repository) ListAll(ctx context.Context, opts listQuery) ([]models.PointTransaction, error) {
	return r.list(r.db.WithContext(ctx), opts)
}

func (r *repository) list(query *gorm.DB, opts listQuery) ([]models.PointTransaction, error) {
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursorID)
	}
	var rows []models.PointTransaction
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(opts.limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
