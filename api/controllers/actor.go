package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pointbank/pointbank-backend/api/middleware"
	"github.com/pointbank/pointbank-backend/pkg/enums"
	pkgerrors "github.com/pointbank/pointbank-backend/pkg/errors"
)

// requestActor resolves the authenticated caller from the request context.
func requestActor(r *http.Request) (uuid.UUID, enums.Role, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role := enums.Role(middleware.RoleFromContext(r.Context()))
	if !role.IsValid() {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing role")
	}
	return userID, role, nil
}
