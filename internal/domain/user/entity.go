package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Principal is the authenticated identity attached to a session.
type Principal struct {
	ID    uuid.UUID
	Email string
}

func (u User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email}
}

func (p Principal) IsZero() bool {
	return p.ID == uuid.Nil
}
