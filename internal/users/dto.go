package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	"github.com/mgutierrezc/shopline-backend/pkg/enums"
)

// UserDTO is the read model returned by user endpoints.
type UserDTO struct {
	ID        uuid.UUID  `json:"id"`
	Fullname  string     `json:"fullname"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Discount  int        `json:"discount"`
	Role      enums.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToDTO maps the model to its read representation, resolving the effective role.
func ToDTO(user *models.User) *UserDTO {
	if user == nil {
		return nil
	}
	assignments := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		assignments = append(assignments, role.Name)
	}
	return &UserDTO{
		ID:        user.ID,
		Fullname:  user.Fullname,
		Username:  user.Username,
		Email:     user.Email,
		Discount:  user.Discount,
		Role:      enums.ResolveRole(assignments),
		CreatedAt: user.CreatedAt,
	}
}
