package auth

import (
	"errors"
	"time"

	"github.com/error-99/videocall/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carry the verified identity inside a signed token. The signaling
// core trusts these and nothing the client reports later.
type Claims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates the HS256 tokens handed out at login.
type TokenManager struct {
	secret   []byte
	tokenTTL time.Duration
}

func NewTokenManager(secret string, tokenTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

func (m *TokenManager) Generate(user *domain.User) (string, error) {
	now := time.Now()

	claims := &Claims{
		UserID:      user.ID.String(),
		DisplayName: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "videocall",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.secret)
}

// Validate parses the token and returns the claims it carries, or
// ErrInvalidToken for anything unparsable, forged, or expired.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Identity projects the claims into the pair the signaling core consumes.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{ID: c.UserID, DisplayName: c.DisplayName}
}
