package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pointbank/pointbank-backend/api/responses"
	"github.com/pointbank/pointbank-backend/api/validators"
	internalorders "github.com/pointbank/pointbank-backend/internal/orders"
	pkgerrors "github.com/pointbank/pointbank-backend/pkg/errors"
	"github.com/pointbank/pointbank-backend/pkg/logger"
	"github.com/pointbank/pointbank-backend/pkg/pagination"
)

type orderLineRequest struct {
	ItemID      *string `json:"item_id"`
	ExternalRef string  `json:"external_ref"`
	Name        string  `json:"name"`
	Price       int     `json:"price" validate:"min=0"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	Fee         int     `json:"fee" validate:"min=0"`
}

type createOrderRequest struct {
	Items []orderLineRequest `json:"items" validate:"required,min=1,dive"`
	Fee   int                `json:"fee" validate:"min=0"`
}

// CreateOrder settles a purchase: balance check, debit, and order persistence
// happen atomically in the service.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, _, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]internalorders.OrderLineInput, 0, len(body.Items))
		for _, item := range body.Items {
			lines = append(lines, internalorders.OrderLineInput{
				ItemID:      item.ItemID,
				ExternalRef: item.ExternalRef,
				Name:        item.Name,
				Price:       item.Price,
				Quantity:    item.Quantity,
				Fee:         item.Fee,
			})
		}

		result, err := svc.CreateOrder(r.Context(), internalorders.CreateOrderInput{
			UserID: userID,
			Items:  lines,
			Fee:    body.Fee,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CancelOrder refunds the purchase to the original buyer.
func CancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, func(r *http.Request, svc internalorders.Service, input internalorders.TransitionInput) (any, error) {
		return svc.CancelOrder(r.Context(), input)
	})
}

// DeliverOrder marks the order as received by its owner.
func DeliverOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, func(r *http.Request, svc internalorders.Service, input internalorders.TransitionInput) (any, error) {
		return svc.MarkDelivered(r.Context(), input)
	})
}

func transitionHandler(
	svc internalorders.Service,
	logg *logger.Logger,
	apply func(*http.Request, internalorders.Service, internalorders.TransitionInput) (any, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := apply(r, svc, internalorders.TransitionInput{
			OrderID:     chi.URLParam(r, "id"),
			ActorUserID: userID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetOrder returns the order detail for its owner or an elevated actor.
func GetOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), internalorders.TransitionInput{
			OrderID:     chi.URLParam(r, "id"),
			ActorUserID: userID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListOrders pages orders newest first, scoped by role.
func ListOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListOrders(r.Context(), internalorders.ListParams{
			ActorUserID: userID,
			ActorRole:   role,
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
