package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account held by the auth layer. The signaling core never sees
// it; after login only the derived Identity crosses that boundary.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewUser(name, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AsIdentity projects the account into the {id, name} pair the signaling
// core works with.
func (u *User) AsIdentity() Identity {
	return Identity{ID: u.ID.String(), DisplayName: u.Name}
}
