package users

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/notifyd/internal/notify"
	"github.com/angelmondragon/notifyd/pkg/db/models"
)

// NotifyableType is the polymorphic type stored on a user's notifications.
const NotifyableType = "User"

// User is the notifyable view of a users row.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Phone string    `json:"phone,omitempty"`

	notifications notify.Collection
}

// NewUser assigns the id up front so notifications can reference it before
// the row exists.
func NewUser(email, phone string) *User {
	return &User{ID: uuid.New(), Email: email, Phone: phone}
}

func FromModel(m *models.User) *User {
	if m == nil {
		return nil
	}
	u := &User{ID: m.ID}
	if m.Email != nil {
		u.Email = *m.Email
	}
	if m.Phone != nil {
		u.Phone = *m.Phone
	}
	return u
}

func (u *User) ToModel() *models.User {
	m := &models.User{ID: u.ID}
	if u.Email != "" {
		email := u.Email
		m.Email = &email
	}
	if u.Phone != "" {
		phone := u.Phone
		m.Phone = &phone
	}
	return m
}

func (u *User) NotifyableType() string            { return NotifyableType }
func (u *User) NotifyableID() string              { return u.ID.String() }
func (u *User) NotifyEmail() string               { return u.Email }
func (u *User) NotifyPhone() string               { return u.Phone }
func (u *User) Notifications() *notify.Collection { return &u.notifications }
