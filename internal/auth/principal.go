package auth

import "github.com/google/uuid"

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}
