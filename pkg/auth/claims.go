package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Email      string
	IsBooker   bool
	IsAgent    bool
	IsAdmin    bool
	IsVerified bool
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients. The role
// flags mirror the user row at mint time; the settlement paths re-read the
// row before moving money, so stale flags only widen routing, never access.
type AccessTokenClaims struct {
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	IsBooker   bool      `json:"is_booker"`
	IsAgent    bool      `json:"is_agent"`
	IsAdmin    bool      `json:"is_admin"`
	IsVerified bool      `json:"is_verified"`
	jwt.RegisteredClaims
}
