package jwt

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents JWT custom claims
type Claims struct {
	UserID    uuid.UUID   `json:"user_id"`
	Role      string      `json:"role"`
	CompanyID *uuid.UUID  `json:"company_id,omitempty"`
	TeamIDs   []uuid.UUID `json:"team_ids,omitempty"`
	jwt.RegisteredClaims
}
