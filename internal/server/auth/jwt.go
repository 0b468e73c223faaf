// Package auth verifies the owner JWTs presented to the owner HTTP and gRPC
// endpoints. Tokens are minted by the account service; GenerateToken exists
// for tooling and tests.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the owner id next to the registered claims. The subject is
// used when UserID is empty.
type Claims struct {
	jwt.RegisteredClaims
	UserID string
}

func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: userID,
	})

	return token.SignedString(secretKey)
}

// GetUserIDFromToken validates tokenString and returns the owner id.
// Expired tokens yield common.ErrTokenExpired, everything else that fails
// verification yields common.ErrInvalidAccessToken.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidAccessToken
	}

	if !token.Valid {
		return "", common.ErrInvalidAccessToken
	}

	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return "", common.ErrInvalidAccessToken
	}
	return id, nil
}
