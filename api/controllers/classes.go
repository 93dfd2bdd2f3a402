package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pointbank/pointbank-backend/api/responses"
	"github.com/pointbank/pointbank-backend/api/validators"
	"github.com/pointbank/pointbank-backend/internal/classes"
	pkgerrors "github.com/pointbank/pointbank-backend/pkg/errors"
	"github.com/pointbank/pointbank-backend/pkg/logger"
)

type createClassRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type assignStudentsRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1"`
	ClassID *int64   `json:"class_id"`
}

func parseClassID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid class id")
	}
	return id, nil
}

// CreateClass adds a class master row.
func CreateClass(svc classes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "classes service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createClassRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		class, err := svc.CreateClass(r.Context(), role, body.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, class)
	}
}

// ListClasses returns every class master.
func ListClasses(svc classes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "classes service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListClasses(r.Context(), role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"classes": list})
	}
}

// DeleteClass removes a class and unassigns its members.
func DeleteClass(svc classes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "classes service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		classID, err := parseClassID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteClass(r.Context(), role, classID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AssignStudents moves students into a class, or unassigns them when
// class_id is null.
func AssignStudents(svc classes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "classes service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body assignStudentsRequest
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

		assigned, err := svc.AssignStudents(r.Context(), classes.AssignInput{
			ActorRole: role,
			UserIDs:   userIDs,
			ClassID:   body.ClassID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"assigned": assigned})
	}
}

// ClassRanking lists class members ordered by balance.
func ClassRanking(svc classes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "classes service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		classID, err := parseClassID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ranking, err := svc.Ranking(r.Context(), role, classID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"ranking": ranking})
	}
}
