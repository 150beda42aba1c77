package models

import (
	"time"

	"github.com/google/uuid"
)

// User is created on the first successful identity sync and refreshed on
// every later one. Users are never deleted.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IdentityRef string    `gorm:"uniqueIndex;not null" json:"-"` // subject of the identity token
	Email       string    `json:"email"`
	DisplayName string    `gorm:"not null" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PublicUser is what other users get to see on a profile page.
type PublicUser struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, DisplayName: u.DisplayName, CreatedAt: u.CreatedAt}
}

type SyncRequest struct {
	IdentityRef string `json:"identity_ref"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}
