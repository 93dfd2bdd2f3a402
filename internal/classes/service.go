package classes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pointbank/pointbank-backend/pkg/db"
	"github.com/pointbank/pointbank-backend/pkg/db/models"
	"github.com/pointbank/pointbank-backend/pkg/enums"
	pkgerrors "github.com/pointbank/pointbank-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RankedStudent is one row of the class ranking, ordered by balance.
type RankedStudent struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Balance  int       `json:"balance"`
	Rank     int       `json:"rank"`
}

// AssignInput moves students into a class; a nil ClassID unassigns them.
type AssignInput struct {
	ActorRole enums.Role
	UserIDs   []uuid.UUID
	ClassID   *int64
}

// Service manages class masters, membership, and the balance ranking. All
// operations are teacher/admin gated.
type Service interface {
	CreateClass(ctx context.Context, actorRole enums.Role, name string) (*models.ClassMaster, error)
	ListClasses(ctx context.Context, actorRole enums.Role) ([]models.ClassMaster, error)
	DeleteClass(ctx context.Context, actorRole enums.Role, classID int64) error
	AssignStudents(ctx context.Context, input AssignInput) (int64, error)
	Ranking(ctx context.Context, actorRole enums.Role, classID int64) ([]RankedStudent, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires the classes service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("classes repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreateClass(ctx context.Context, actorRole enums.Role, name string) (*models.ClassMaster, error) {
	if !actorRole.Elevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "class management requires an elevated role")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "class name required")
	}

	class := &models.ClassMaster{Name: name}
	if err := s.repo.Create(ctx, class); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "class name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create class")
	}
	return class, nil
}

func (s *service) ListClasses(ctx context.Context, actorRole enums.Role) ([]models.ClassMaster, error) {
	if !actorRole.Elevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "class management requires an elevated role")
	}

	classes, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list classes")
	}
	return classes, nil
}

// DeleteClass unassigns every member and removes the class in one
// transaction, so no profile is left pointing at a deleted class.
func (s *service) DeleteClass(ctx context.Context, actorRole enums.Role, classID int64) error {
	if !actorRole.Elevated() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "class management requires an elevated role")
	}
	if classID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "class id required")
	}

	if _, err := s.loadClass(ctx, classID); err != nil {
		return err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UnassignClass(ctx, classID); err != nil {
			return err
		}
		return repo.Delete(ctx, classID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete class")
	}
	return nil
}

// AssignStudents moves one or many students. Only rows with the student role
// change; the returned count lets callers report partial matches.
func (s *service) AssignStudents(ctx context.Context, input AssignInput) (int64, error) {
	if !input.ActorRole.Elevated() {
		return 0, pkgerrors.New(pkgerrors.CodeForbidden, "class management requires an elevated role")
	}
	if len(input.UserIDs) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one user id required")
	}
	if input.ClassID != nil {
		if _, err := s.loadClass(ctx, *input.ClassID); err != nil {
			return 0, err
		}
	}

	updated, err := s.repo.AssignStudents(ctx, input.UserIDs, input.ClassID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign students")
	}
	return updated, nil
}

// Ranking orders the class's students by balance, densely ranked: equal
// balances share a rank.
func (s *service) Ranking(ctx context.Context, actorRole enums.Role, classID int64) ([]RankedStudent, error) {
	if !actorRole.Elevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "class management requires an elevated role")
	}
	if _, err := s.loadClass(ctx, classID); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListRanked(ctx, classID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rank class")
	}

	rank := 0
	prevBalance := 0
	for i := range rows {
		if i == 0 || rows[i].Balance != prevBalance {
			rank = i + 1
		}
		rows[i].Rank = rank
		prevBalance = rows[i].Balance
	}
	return rows, nil
}

func (s *service) loadClass(ctx context.Context, id int64) (*models.ClassMaster, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "class not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load class")
	}
	return class, nil
}
