package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaims are the JWT claims carried by a bearer token.
type UserClaims struct {
	UserID uint64 `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

var errEmptySecret = errors.New("security: empty jwt secret")

// SignUserToken issues an HS256 token for the given user identity.
func SignUserToken(secret string, userID uint64, email, role string, expiry time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errEmptySecret
	}
	now := time.Now().UTC()
	claims := UserClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseUserToken validates a token string and returns its claims.
func ParseUserToken(secret, tokenString string) (*UserClaims, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errEmptySecret
	}
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("security: invalid token")
	}
	return claims, nil
}
