package users

import (
	"github.com/google/uuid"
)

// RegisterInput is the validated body of a registration request.
type RegisterInput struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,e164"`
}

// UserDTO is the transport shape returned after registration.
type UserDTO struct {
	ID              uuid.UUID   `json:"id"`
	Email           string      `json:"email"`
	Phone           string      `json:"phone,omitempty"`
	NotificationIDs []uuid.UUID `json:"notification_ids"`
}

func toDTO(u *User) *UserDTO {
	dto := &UserDTO{ID: u.ID, Email: u.Email, Phone: u.Phone, NotificationIDs: []uuid.UUID{}}
	for _, n := range u.Notifications().All() {
		if n.Persisted() {
			dto.NotificationIDs = append(dto.NotificationIDs, n.ID)
		}
	}
	return dto
}
