package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/phuoc-stack/foodapp-backend/pkg/config"
)

// Identity is who a locally minted token speaks for.
type Identity struct {
	UserID   uuid.UUID
	Username string
}

// Mint signs a token the Verifier for cfg will accept, valid from now for
// cfg.ExpirationMinutes.
func Mint(cfg config.JWTConfig, now time.Time, who Identity) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errors.New("jwt secret is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration must be positive")
	case who.UserID == uuid.Nil:
		return "", errors.New("user id is required")
	}

	claims := Claims{
		UserID:   who.UserID,
		Username: who.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    cfg.Issuer,
			Subject:   who.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
		},
	}
	return jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
}
