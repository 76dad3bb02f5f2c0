package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims is the JWT payload issued to researchers.
type AccessTokenClaims struct {
	UserID   uuid.UUID `json:"uid"`
	Username string    `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// AccessTokenPayload carries the inputs for minting a token.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Username string
	JTI      string
}
