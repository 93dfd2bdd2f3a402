package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pointbank/pointbank-backend/pkg/config"
	"github.com/pointbank/pointbank-backend/pkg/db"
	"github.com/pointbank/pointbank-backend/pkg/db/models"
	"github.com/pointbank/pointbank-backend/pkg/enums"
	pkgerrors "github.com/pointbank/pointbank-backend/pkg/errors"
	"github.com/pointbank/pointbank-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// accountProvisioner is the ledger's account lifecycle surface. Every user
// gets a balance account in the same transaction that creates the user, so no
// ledger operation can ever target an unprovisioned user.
type accountProvisioner interface {
	EnsureAccount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
	RemoveAccount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

// RegisterInput carries the onboarding payload.
type RegisterInput struct {
	Username        string
	Email           string
	Name            string
	Password        string
	Role            enums.Role
	ClassID         *int64
	CreatedViaAdmin bool
}

// DeleteInput identifies the target account and the admin removing it.
type DeleteInput struct {
	ActorUserID  uuid.UUID
	ActorRole    enums.Role
	TargetUserID uuid.UUID
}

// Service covers the user lifecycle.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*UserResponse, error)
	DeleteUser(ctx context.Context, input DeleteInput) error
}

type service struct {
	tx          txRunner
	ledger      accountProvisioner
	passwordCfg config.PasswordConfig
}

// NewService wires the users service.
func NewService(tx txRunner, ledger accountProvisioner, passwordCfg config.PasswordConfig) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger provisioner required")
	}
	return &service{tx: tx, ledger: ledger, passwordCfg: passwordCfg}, nil
}

// Register creates the user, their role profile, and their zero-balance
// account in one transaction.
func (s *service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	role := input.Role
	if role == "" {
		role = enums.RoleStudent
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", input.Role))
	}

	passwordHash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var user *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)

		if _, err := repo.FindByUsername(ctx, username); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "username already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check username")
		}
		if _, err := repo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check email")
		}

		created, err := repo.Create(ctx, CreateUserDTO{
			Username:        username,
			Email:           email,
			Name:            strings.TrimSpace(input.Name),
			PasswordHash:    passwordHash,
			CreatedViaAdmin: input.CreatedViaAdmin,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "username or email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		if err := repo.CreateProfile(ctx, &models.UserProfile{
			UserID:          created.ID,
			Role:            role,
			IsActiveStudent: role == enums.RoleStudent,
			ClassID:         input.ClassID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create profile")
		}

		if err := s.ledger.EnsureAccount(ctx, tx, created.ID); err != nil {
			return err
		}

		user = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) GetUser(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var resp *UserResponse
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		profile, err := repo.FindProfileByUserID(ctx, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
		}
		view := FromModel(user, profile)
		resp = &view
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// DeleteUser removes an account and writes the audit log row in one
// transaction. Admin only. The user's transactions and orders are retained
// for history; the balance account and profile go with the user.
func (s *service) DeleteUser(ctx context.Context, input DeleteInput) error {
	if input.ActorRole != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "deleting users requires the admin role")
	}
	if input.TargetUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "target user id required")
	}
	if input.TargetUserID == input.ActorUserID {
		return pkgerrors.New(pkgerrors.CodeValidation, "admins cannot delete their own account")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)

		user, err := repo.FindByID(ctx, input.TargetUserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}

		deletedBy := input.ActorUserID
		if err := repo.CreateDeletedLog(ctx, &models.DeletedUserLog{
			UserID:    user.ID,
			Username:  user.Username,
			Email:     user.Email,
			Name:      user.Name,
			DeletedBy: &deletedBy,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write deletion log")
		}

		if err := tx.WithContext(ctx).
			Where("user_id = ?", user.ID).
			Delete(&models.UserProfile{}).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete profile")
		}
		if err := s.ledger.RemoveAccount(ctx, tx, user.ID); err != nil {
			return err
		}
		if err := repo.Delete(ctx, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
		}
		return nil
	})
}
