// Package auth mints and verifies the bearer tokens that carry the acting user.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskboard/internal/models"
)

const issuer = "taskboard"

// ErrInvalidToken is returned for tokens that fail signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims of an access token.
type Claims struct {
	UserID   int64       `json:"userId"`
	Username string      `json:"username,omitempty"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor returns the user the claims describe.
func (c *Claims) Actor() models.Actor {
	return models.Actor{ID: c.UserID, Username: c.Username, Role: c.Role}
}

// Issue signs an HS256 access token for actor valid for ttl.
func Issue(secret []byte, actor models.Actor, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("issue token: empty secret")
	}
	if actor.ID <= 0 || !actor.Role.IsValid() {
		return "", fmt.Errorf("issue token: invalid actor %d/%q", actor.ID, actor.Role)
	}
	now := time.Now()
	claims := &Claims{
		UserID:   actor.ID,
		Username: actor.Username,
		Role:     actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Parse verifies token against secret and returns the actor it names.
func Parse(secret []byte, token string) (models.Actor, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return models.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return models.Actor{}, ErrInvalidToken
	}
	return checkClaims(claims)
}

// Peek reads the actor from token without verifying the signature. Clients use
// it to learn who they are; only the backend trusts a token.
func Peek(token string) (models.Actor, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return models.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return checkClaims(claims)
}

func checkClaims(c *Claims) (models.Actor, error) {
	if c.UserID <= 0 {
		return models.Actor{}, fmt.Errorf("%w: missing userId", ErrInvalidToken)
	}
	if !c.Role.IsValid() {
		return models.Actor{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, c.Role)
	}
	return c.Actor(), nil
}
