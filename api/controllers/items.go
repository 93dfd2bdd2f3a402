package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pointbank/pointbank-backend/api/responses"
	"github.com/pointbank/pointbank-backend/api/validators"
	"github.com/pointbank/pointbank-backend/internal/items"
	pkgerrors "github.com/pointbank/pointbank-backend/pkg/errors"
	"github.com/pointbank/pointbank-backend/pkg/logger"
)

type createItemRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Price       int    `json:"price" validate:"min=0"`
	Stock       int    `json:"stock" validate:"min=0"`
	Description string `json:"description" validate:"max=1000"`
	IsPublished *bool  `json:"is_published"`
}

type updateItemRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Price       *int    `json:"price" validate:"omitempty,min=0"`
	Stock       *int    `json:"stock" validate:"omitempty,min=0"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	IsPublished *bool   `json:"is_published"`
}

// CreateItem adds a catalog entry. Teacher/admin only.
func CreateItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateItem(r.Context(), items.CreateItemInput{
			ActorRole:   role,
			Name:        body.Name,
			Price:       body.Price,
			Stock:       body.Stock,
			Description: body.Description,
			IsPublished: body.IsPublished,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// UpdateItem patches an existing catalog entry. Teacher/admin only.
func UpdateItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateItem(r.Context(), items.UpdateItemInput{
			ActorRole:   role,
			ItemID:      chi.URLParam(r, "id"),
			Name:        body.Name,
			Price:       body.Price,
			Stock:       body.Stock,
			Description: body.Description,
			IsPublished: body.IsPublished,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// DeleteItem removes a catalog entry; order lines keep their snapshots.
func DeleteItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteItem(r.Context(), role, chi.URLParam(r, "id")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// GetItem returns the detail; unpublished items stay hidden from students.
func GetItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetItem(r.Context(), role, chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// ListItems returns the catalog; students only see published entries.
func ListItems(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListItems(r.Context(), role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": list})
	}
}
