// Package auth verifies the access tokens that carry an owner identity.
// Tokens are issued elsewhere; GenerateToken exists for tooling and tests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/clouddrive/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the owner the token acts for.
type Claims struct {
	jwt.RegisteredClaims
	OwnerID int64 `json:"owner_id"`
}

func GenerateToken(ownerID int64, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		OwnerID: ownerID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetOwnerIDFromToken verifies an HS256 token and returns its positive
// owner id. Every failure wraps common.ErrInvalidToken.
func GetOwnerIDFromToken(tokenString string, secretKey []byte) (int64, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("%w: token expired", common.ErrInvalidToken)
		}
		return 0, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return 0, common.ErrInvalidToken
	}
	if claims.OwnerID <= 0 {
		return 0, fmt.Errorf("%w: missing owner", common.ErrInvalidToken)
	}

	return claims.OwnerID, nil
}
