package auth

import (
	"github.com/pointbank/pointbank-backend/internal/users"
)

// LoginRequest captures the credentials sent to the login endpoint. Username
// also accepts the account email.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the token pair and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	User         users.UserResponse `json:"user"`
}
