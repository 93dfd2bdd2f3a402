package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/pointbank/pointbank-backend/pkg/db/models"
	"github.com/pointbank/pointbank-backend/pkg/enums"
)

// CreateUserDTO carries the persisted fields for a new user row.
type CreateUserDTO struct {
	Username        string
	Email           string
	Name            string
	PasswordHash    string
	CreatedViaAdmin bool
}

// ToModel maps the DTO onto the gorm model.
func (dto CreateUserDTO) ToModel() *models.User {
	return &models.User{
		ID:              uuid.New(),
		Username:        dto.Username,
		Email:           dto.Email,
		Name:            dto.Name,
		PasswordHash:    dto.PasswordHash,
		IsActive:        true,
		CreatedViaAdmin: dto.CreatedViaAdmin,
	}
}

// UserResponse is the API-safe projection of a user plus their profile.
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        enums.Role `json:"role"`
	ClassID     *int64     `json:"class_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FromModel builds the response projection. The profile may be nil when the
// caller only has the user row.
func FromModel(user *models.User, profile *models.UserProfile) UserResponse {
	resp := UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Name:        user.Name,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
	if profile != nil {
		resp.Role = profile.Role
		resp.ClassID = profile.ClassID
	}
	return resp
}
