package dto

import (
	"time"

	"github.com/google/uuid"
)

type PrincipalResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type SessionResponse struct {
	Principal  PrincipalResponse `json:"principal"`
	ExpiresAt  time.Time         `json:"expires_at"`
	RedirectTo string            `json:"redirect_to"`
}
