package orders

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pointbank/pointbank-backend/pkg/db/models"
	"github.com/pointbank/pointbank-backend/pkg/enums"
)

// Repository manages persistence for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, updates map[string]any) error
	TransitionStatus(ctx context.Context, id string, from enums.OrderStatus, updates map[string]any) (bool, error)
	ListByUser(ctx context.Context, opts listQuery) ([]models.Order, error)
	ListAll(ctx context.Context, opts listQuery) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate loads the order under a row lock. Call inside a
// transaction when the status read feeds a transition decision.
func (r *repository) FindByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus writes the status column plus any transition timestamps in one
// statement.
func (r *repository) UpdateStatus(ctx context.Context, id string, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// TransitionStatus applies the updates only while the order still holds the
// expected status. Returns false when a rival transition won the row first.
func (r *repository) TransitionStatus(ctx context.Context, id string, from enums.OrderStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListByUser(ctx context.Context, opts listQuery) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", opts.userID)
	return r.list(query, opts)
}

func (r *repository) ListAll(ctx context.Context, opts listQuery) ([]models.Order, error) {
	return r.list(r.db.WithContext(ctx), opts)
}

func (r *repository) list(query *gorm.DB, opts listQuery) ([]models.Order, error) {
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}
	var rows []models.Order
	if err := query.
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(opts.limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
