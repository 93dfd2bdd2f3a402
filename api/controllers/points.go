package controllers

import (
	"math"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pointbank/pointbank-backend/api/responses"
	"github.com/pointbank/pointbank-backend/api/validators"
	"github.com/pointbank/pointbank-backend/internal/ledger"
	"github.com/pointbank/pointbank-backend/internal/points"
	pkgerrors "github.com/pointbank/pointbank-backend/pkg/errors"
	"github.com/pointbank/pointbank-backend/pkg/logger"
	"github.com/pointbank/pointbank-backend/pkg/pagination"
)

type grantPointsRequest struct {
	UserIDs     []string `json:"user_ids" validate:"required,min=1"`
	Amount      int      `json:"amount" validate:"required"`
	Description string   `json:"description" validate:"max=200"`
}

// GrantPoints credits (or debits) a batch of students, one outcome per user.
func GrantPoints(svc points.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "points service unavailable"))
			return
		}

		actorID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body grantPointsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userIDs := make([]uuid.UUID, 0, len(body.UserIDs))
		for _, raw := range body.UserIDs {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "invalid user id").WithDetails(map[string]any{"user_id": raw}))
				return
			}
			userIDs = append(userIDs, id)
		}

		result, err := svc.GrantPoints(r.Context(), points.GrantPointsInput{
			ActorUserID: actorID,
			ActorRole:   role,
			UserIDs:     userIDs,
			Amount:      body.Amount,
			Description: body.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetBalance returns the caller's current balance.
func GetBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		userID, _, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.GetBalance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"user_id": account.UserID,
			"balance": account.Balance,
		})
	}
}

// TransactionHistory pages the caller's history, or another user's when the
// actor is elevated and passes ?user_id=.
func TransactionHistory(svc points.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "points service unavailable"))
			return
		}

		actorID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target := actorID
		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			parsed, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid user id"))
				return
			}
			target = parsed
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetHistory(r.Context(), points.HistoryParams{
			TargetUserID: target,
			ActorUserID:  actorID,
			ActorRole:    role,
			Limit:        limit,
			Cursor:       strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AllTransactionHistory pages every user's history for elevated actors.
func AllTransactionHistory(svc points.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "points service unavailable"))
			return
		}

		actorID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetAllHistory(r.Context(), points.HistoryParams{
			ActorUserID: actorID,
			ActorRole:   role,
			Limit:       limit,
			Cursor:      strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// StudentRoster lists students with balances for elevated actors. Scope is
// all, unassigned, or class (with class_id).
func StudentRoster(svc points.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "points service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scope := points.RosterScope(strings.TrimSpace(r.URL.Query().Get("scope")))
		if scope == "" {
			scope = points.RosterScopeAll
		}
		classID, err := validators.ParseQueryInt(r, "class_id", 0, 0, math.MaxInt32)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.StudentRoster(r.Context(), points.RosterParams{
			ActorRole: role,
			Scope:     scope,
			ClassID:   int64(classID),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"students": rows})
	}
}
