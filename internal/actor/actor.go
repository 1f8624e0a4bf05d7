// Package actor carries the authenticated caller through a request context.
package actor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for a malformed, expired or wrongly signed
// bearer token.
var ErrInvalidToken = errors.New("actor: invalid token")

// Actor is the authenticated caller of a request.
type Actor struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles"`
}

// HasRole reports whether the actor holds role.
func (a *Actor) HasRole(role string) bool {
	return a != nil && slices.Contains(a.Roles, role)
}

type key struct{}

// NewContext returns a copy of parent carrying a.
func NewContext(parent context.Context, a *Actor) context.Context {
	return context.WithValue(parent, key{}, a)
}

// FromContext extracts the actor from ctx.
func FromContext(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(key{}).(*Actor)
	return a, ok && a != nil
}

type claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// Sign issues an HS256 token for a valid for ttl.
func Sign(a Actor, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   a.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: a.Roles,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates an HS256 token and returns its actor.
func Parse(token, secret string) (*Actor, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Actor{Subject: c.Subject, Roles: c.Roles}, nil
}

// ParseBearer parses an Authorization header value. An empty header yields
// a nil actor and no error.
func ParseBearer(header, secret string) (*Actor, error) {
	if header == "" {
		return nil, nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, ErrInvalidToken
	}
	return Parse(strings.TrimSpace(token), secret)
}
