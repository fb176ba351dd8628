package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the example notifyable host: anything with an email and a phone.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     *string   `gorm:"column:email;type:text"`
	Phone     *string   `gorm:"column:phone;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
