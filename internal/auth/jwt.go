package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTimeout matches the fixed 24h staff session expiry.
const SessionTimeout = 24 * time.Hour

type SessionClaims struct {
	Terminal string `json:"terminal"`
	jwt.RegisteredClaims
}

func GenerateToken(secret, terminal string) (string, error) {
	claims := &SessionClaims{
		Terminal: terminal,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(SessionTimeout)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
