package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         *string   `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose password hash in JSON
	Image        *string   `json:"image"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPassword reports whether the account can sign in with credentials
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// ProfileUpdate carries the profile fields to change. Nil fields are kept;
// an empty Image clears the stored image.
type ProfileUpdate struct {
	Name  *string `json:"name,omitempty"`
	Image *string `json:"image,omitempty"`
}
