package points

import (
	"context"

	"gorm.io/gorm"
)

// Repository serves the roster read model joining users, profiles, classes,
// and balances.
type Repository interface {
	ListStudents(ctx context.Context, params RosterParams) ([]StudentRow, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a points repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListStudents(ctx context.Context, params RosterParams) ([]StudentRow, error) {
	query := r.db.WithContext(ctx).
		Table("users").
		Select(`users.id AS user_id,
			users.username,
			users.name,
			user_profiles.class_id,
			COALESCE(class_masters.name, '') AS class_name,
			COALESCE(balance_accounts.balance, 0) AS balance,
			user_profiles.is_active_student`).
		Joins("JOIN user_profiles ON user_profiles.user_id = users.id").
		Joins("LEFT JOIN class_masters ON class_masters.id = user_profiles.class_id").
		Joins("LEFT JOIN balance_accounts ON balance_accounts.user_id = users.id").
		Where("user_profiles.role = ?", "student").
		Where("users.is_active = ?", true)

	switch params.Scope {
	case RosterScopeUnassigned:
		query = query.Where("user_profiles.class_id IS NULL")
	case RosterScopeClass:
		query = query.Where("user_profiles.class_id = ?", params.ClassID)
	}

	var rows []StudentRow
	if err := query.Order("users.username ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
