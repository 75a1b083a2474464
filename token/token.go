// SPDX-License-Identifier: BSD-3-Clause

// Package token decodes JWT bearer tokens without verifying their signature.
// Verification is the server's job; the client only needs the claims payload
// to pick a storage scope and to know when a token has expired.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when a token is not a valid three-segment
// base64url JWT or its payload cannot be parsed.
var ErrMalformed = errors.New("token: malformed JWT")

// Storage scopes a token can request through its "storage" claim.
const (
	StorageSession = "session"
	StorageLocal   = "local"
)

// Claims holds the decoded payload segment of a JWT.
type Claims struct {
	// ExpiresAt is the decoded "exp" claim. Zero means the token never expires.
	ExpiresAt time.Time
	// Storage is the requested storage scope ("session" or "local").
	// Empty defaults to the persistent scope.
	Storage string
	// Extra carries every other claim verbatim.
	Extra map[string]any
}

// Decode parses the payload segment of a three-segment JWT. The signature
// segment is not verified. Any structural defect (wrong segment count,
// illegal base64url padding, unparseable payload) wraps ErrMalformed.
func Decode(raw string) (Claims, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromMapClaims(claims), nil
}

func fromMapClaims(mc jwt.MapClaims) Claims {
	c := Claims{Extra: make(map[string]any, len(mc))}
	for k, v := range mc {
		c.Extra[k] = v
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if s, ok := mc["storage"].(string); ok {
		c.Storage = s
	}
	return c
}

// Expired reports whether the token expired before now.
// Tokens without an "exp" claim never expire.
func (c Claims) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return c.ExpiresAt.Before(now)
}

// Subject returns the "sub" claim if present.
func (c Claims) Subject() string {
	if s, ok := c.Extra["sub"].(string); ok {
		return s
	}
	return ""
}
