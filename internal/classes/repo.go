package classes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pointbank/pointbank-backend/pkg/db/models"
)

// Repository manages class masters and student assignments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, class *models.ClassMaster) error
	FindByID(ctx context.Context, id int64) (*models.ClassMaster, error)
	List(ctx context.Context) ([]models.ClassMaster, error)
	Delete(ctx context.Context, id int64) error
	AssignStudents(ctx context.Context, userIDs []uuid.UUID, classID *int64) (int64, error)
	UnassignClass(ctx context.Context, classID int64) error
	ListRanked(ctx context.Context, classID int64) ([]RankedStudent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a classes repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, class *models.ClassMaster) error {
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.ClassMaster, error) {
	var class models.ClassMaster
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&class).Error; err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *repository) List(ctx context.Context) ([]models.ClassMaster, error) {
	var classes []models.ClassMaster
	if err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.ClassMaster{}).Error
}

// AssignStudents moves the given students into classID (nil unassigns).
// Returns the number of student profiles actually updated.
func (r *repository) AssignStudents(ctx context.Context, userIDs []uuid.UUID, classID *int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UserProfile{}).
		Where("user_id IN ?", userIDs).
		Where("role = ?", "student").
		Update("class_id", classID)
	return result.RowsAffected, result.Error
}

// UnassignClass clears the class from every member profile before the class
// row is deleted.
func (r *repository) UnassignClass(ctx context.Context, classID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.UserProfile{}).
		Where("class_id = ?", classID).
		Update("class_id", nil).Error
}

func (r *repository) ListRanked(ctx context.Context, classID int64) ([]RankedStudent, error) {
	var rows []RankedStudent
	err := r.db.WithContext(ctx).
		Table("users").
		Select(`users.id AS user_id,
			users.username,
			users.name,
			COALESCE(balance_accounts.balance, 0) AS balance`).
		Joins("JOIN user_profiles ON user_profiles.user_id = users.id").
		Joins("LEFT JOIN balance_accounts ON balance_accounts.user_id = users.id").
		Where("user_profiles.class_id = ?", classID).
		Where("user_profiles.role = ?", "student").
		Where("users.is_active = ?", true).
		Order("balance DESC, users.username ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
