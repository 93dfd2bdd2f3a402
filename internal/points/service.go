package points

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/pointbank/pointbank-backend/internal/ledger"
	"github.com/pointbank/pointbank-backend/pkg/db/models"
	"github.com/pointbank/pointbank-backend/pkg/enums"
	pkgerrors "github.com/pointbank/pointbank-backend/pkg/errors"
	"github.com/pointbank/pointbank-backend/pkg/logger"
	pkgpagination "github.com/pointbank/pointbank-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// grantLedger is the slice of the ledger service point grants need.
type grantLedger interface {
	BalanceForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.BalanceAccount, error)
	ApplyDelta(ctx context.Context, tx *gorm.DB, input ledger.ApplyDeltaInput) (*models.PointTransaction, error)
	ListTransactions(ctx context.Context, params ledger.ListParams) (*ledger.ListResult, error)
	ListAllTransactions(ctx context.Context, params ledger.ListParams) (*ledger.ListResult, error)
}

// Service covers elevated point movements and history access control.
type Service interface {
	GrantPoints(ctx context.Context, input GrantPointsInput) (*GrantResult, error)
	GetHistory(ctx context.Context, params HistoryParams) (*ledger.ListResult, error)
	GetAllHistory(ctx context.Context, params HistoryParams) (*ledger.ListResult, error)
	StudentRoster(ctx context.Context, params RosterParams) ([]StudentRow, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger grantLedger
	log    *logger.Logger
}

// NewService wires the points service.
func NewService(repo Repository, tx txRunner, ledgerSvc grantLedger, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("points repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, ledger: ledgerSvc, log: log}, nil
}

// GrantPoints credits (or debits) each user in its own transaction, so one
// user's failure never rolls back another's grant. Users without a balance
// account are skipped and reported; the batch itself only fails on invalid
// input. Teacher actors write teacher_grant transactions, admins
// admin_adjust.
func (s *service) GrantPoints(ctx context.Context, input GrantPointsInput) (*GrantResult, error) {
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.Elevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "granting points requires an elevated role")
	}
	if input.Amount == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-zero")
	}
	if len(input.UserIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one user id required")
	}

	kind := enums.TransactionKindTeacherGrant
	if input.ActorRole == enums.RoleAdmin {
		kind = enums.TransactionKindAdminAdjust
	}

	result := &GrantResult{Outcomes: make([]GrantOutcome, 0, len(input.UserIDs))}
	var storageErrs error

	for _, userID := range input.UserIDs {
		if userID == uuid.Nil {
			result.Outcomes = append(result.Outcomes, GrantOutcome{
				UserID: userID,
				Status: GrantStatusSkipped,
				Reason: "empty user id",
			})
			result.Skipped++
			continue
		}

		outcome := s.grantOne(ctx, userID, input.Amount, kind, input.Description)
		switch outcome.Status {
		case GrantStatusGranted:
			result.Granted++
		case GrantStatusSkipped:
			result.Skipped++
		default:
			result.Failed++
			storageErrs = multierr.Append(storageErrs, fmt.Errorf("grant %s: %s", userID, outcome.Reason))
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if storageErrs != nil {
		s.log.Error(ctx, "point grant batch had failures", storageErrs)
	}
	return result, nil
}

func (s *service) grantOne(ctx context.Context, userID uuid.UUID, amount int, kind enums.TransactionKind, description string) GrantOutcome {
	outcome := GrantOutcome{UserID: userID}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		account, err := s.ledger.BalanceForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if account.Balance+amount < 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "deduction exceeds balance")
		}

		txn, err := s.ledger.ApplyDelta(ctx, tx, ledger.ApplyDeltaInput{
			UserID:      userID,
			Delta:       amount,
			Kind:        kind,
			Description: description,
		})
		if err != nil {
			return err
		}
		outcome.NewBalance = &txn.BalanceAfter
		return nil
	})
	if err != nil {
		typed := pkgerrors.As(err)
		switch {
		case typed != nil && typed.Code() == pkgerrors.CodeNotFound:
			outcome.Status = GrantStatusSkipped
			outcome.Reason = "user has no balance account"
		case typed != nil && typed.Code() == pkgerrors.CodeInsufficientPoints:
			outcome.Status = GrantStatusFailed
			outcome.Reason = "deduction exceeds balance"
		default:
			outcome.Status = GrantStatusFailed
			outcome.Reason = err.Error()
		}
		return outcome
	}

	outcome.Status = GrantStatusGranted
	return outcome
}

// GetHistory serves a user's transaction page. Students read their own
// history only; elevated roles read anyone's.
func (s *service) GetHistory(ctx context.Context, params HistoryParams) (*ledger.ListResult, error) {
	if params.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if params.TargetUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target user id required")
	}
	if params.TargetUserID != params.ActorUserID && !params.ActorRole.Elevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "history belongs to another user")
	}

	return s.ledger.ListTransactions(ctx, ledger.ListParams{
		UserID: params.TargetUserID,
		Params: pkgpagination.Params{Limit: params.Limit, Cursor: params.Cursor},
	})
}

// GetAllHistory serves the cross-user oversight feed for elevated roles.
func (s *service) GetAllHistory(ctx context.Context, params HistoryParams) (*ledger.ListResult, error) {
	if params.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !params.ActorRole.Elevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "oversight requires an elevated role")
	}

	return s.ledger.ListAllTransactions(ctx, ledger.ListParams{
		Params: pkgpagination.Params{Limit: params.Limit, Cursor: params.Cursor},
	})
}

// StudentRoster lists students with balances for elevated actors.
func (s *service) StudentRoster(ctx context.Context, params RosterParams) ([]StudentRow, error) {
	if !params.ActorRole.Elevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "roster requires an elevated role")
	}
	if params.Scope == "" {
		params.Scope = RosterScopeAll
	}
	if params.Scope == RosterScopeClass && params.ClassID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "class id required for class scope")
	}

	rows, err := s.repo.ListStudents(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list students")
	}
	return rows, nil
}
